package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appMigrations "github.com/yigit/gradingdb/internal/app/migrations"
	appServices "github.com/yigit/gradingdb/internal/app/services"
	"github.com/yigit/gradingdb/internal/config"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/logger"
	"github.com/yigit/gradingdb/internal/pkg/token"
)

// DefaultConfigPath is where the configuration file is looked up
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Str("isolation", cfg.Database.IsolationLevel).Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(database.Pool, lgr).Migrate(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")

	return database, nil
}

// BuildServices wires the grading services onto the database
func BuildServices(cfg *config.Config, database *db.PostgresDB) *appServices.Services {
	return appServices.NewServices(database, token.NewGenerator(cfg.Token.MaxAttempts))
}
