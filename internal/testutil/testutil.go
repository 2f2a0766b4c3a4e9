// Package testutil provides a PostgreSQL database for integration tests.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/gradingdb/internal/app/migrations"
	"github.com/yigit/gradingdb/internal/config"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// DSNEnv names the variable holding the connection string of a disposable test database
const DSNEnv = "GRADINGDB_TEST_DSN"

// lockKey serializes test packages that share the database
const lockKey = 20240611

var tables = []string{
	"solution_feedback", "solutions", "feedback_options", "widgets", "pages",
	"submissions", "problems", "scans", "exams", "graders", "students",
}

// SetupTestDB connects to the test database, applies the migrations and empties every table.
// The test is skipped when no database is configured. The connection is closed on cleanup.
func SetupTestDB(t *testing.T) *db.PostgresDB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(DSNEnv))
	if dsn == "" {
		t.Skipf("set %s to run database integration tests", DSNEnv)
	}

	logger.Configure(logger.Config{Level: logger.WarnLevel, Pretty: true})

	cfg := config.Default()
	cfg.Database.URL = dsn
	cfg.Database.MaxOpenConns = 20

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(database.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lockDatabase(t, ctx, database.Pool)

	if _, err := migrations.NewMigrator(database.Pool, logger.Get()).Migrate(ctx); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	if _, err := database.Pool.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("truncate test db: %v", err)
	}

	return database
}

// lockDatabase holds a session advisory lock until the test ends, so packages running in
// parallel do not truncate each other's data
func lockDatabase(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock connection: %v", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		conn.Release()
		t.Fatalf("lock test db: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockKey)
		conn.Release()
	})
}
