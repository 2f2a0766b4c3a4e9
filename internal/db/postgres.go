package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/gradingdb/internal/config"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// Querier is the part of pgx shared by the pool and a transaction. Repositories run on a
// Querier so the same code serves inside and outside a unit of work. Begin on a transaction
// opens a savepoint.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// PostgresDB database connection structure
type PostgresDB struct {
	Pool      *pgxpool.Pool
	txOptions pgx.TxOptions
	txTimeout time.Duration
}

var isolationLevels = map[string]pgx.TxIsoLevel{
	"read committed":  pgx.ReadCommitted,
	"repeatable read": pgx.RepeatableRead,
	"serializable":    pgx.Serializable,
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.GetPostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)

	maxLifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection max lifetime: %w", err)
	}
	poolConfig.MaxConnLifetime = maxLifetime

	txTimeout, err := time.ParseDuration(cfg.Database.TxTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction timeout: %w", err)
	}

	isoLevel, ok := isolationLevels[cfg.Database.IsolationLevel]
	if !ok {
		return nil, fmt.Errorf("unsupported isolation level %q", cfg.Database.IsolationLevel)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	return &PostgresDB{
		Pool:      pool,
		txOptions: pgx.TxOptions{IsoLevel: isoLevel},
		txTimeout: txTimeout,
	}, nil
}

// Close closing method
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs fn as one unit of work. Everything fn writes through tx is committed
// when fn returns nil and rolled back when it returns an error or panics.
func (db *PostgresDB) WithTransaction(ctx context.Context, fn TransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && db.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.txTimeout)
		defer cancel()
	}

	sessionID := uuid.New().String()
	log := logger.WithField("sessionID", sessionID)

	tx, err := db.Pool.BeginTx(ctx, db.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	log.Debug().Str("isolation", string(db.txOptions.IsoLevel)).Msg("Unit of work started")

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			log.Error().Interface("panic", r).Msg("Unit of work rolled back after panic")
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %w, rollback error: %v", err, rbErr)
		}
		log.Debug().Err(err).Msg("Unit of work rolled back")
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", dberrors.Classify(err))
	}
	log.Debug().Msg("Unit of work committed")

	return nil
}
