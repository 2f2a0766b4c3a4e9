package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Database struct {
		// URL, when set, takes precedence over the individual connection fields
		URL             string `yaml:"url" env:"DATABASE_URL"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		// IsolationLevel is the isolation of every unit of work
		IsolationLevel string `yaml:"isolation_level" env:"DB_ISOLATION_LEVEL"`
		TxTimeout      string `yaml:"tx_timeout" env:"DB_TX_TIMEOUT"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Token struct {
		MaxAttempts int `yaml:"max_attempts" env:"TOKEN_MAX_ATTEMPTS"`
	} `yaml:"token"`

	Seed struct {
		RosterPath string `yaml:"roster_path" env:"SEED_ROSTER_PATH"`
	} `yaml:"seed"`
}

// Supported isolation levels for units of work
var isolationLevels = map[string]bool{
	"read committed":  true,
	"repeatable read": true,
	"serializable":    true,
}

// Default returns a configuration holding only the default values
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

// LoadConfig loads configuration from a file, an optional .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// A missing .env is normal outside local development
	_ = godotenv.Load()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "grading"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.IsolationLevel = "repeatable read"
	config.Database.TxTimeout = "30s"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Token.MaxAttempts = 5
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive, got %d", config.Database.MaxOpenConns)
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid connection max lifetime format: %w", err)
	}

	if _, err := time.ParseDuration(config.Database.TxTimeout); err != nil {
		return fmt.Errorf("invalid transaction timeout format: %w", err)
	}

	level := strings.ToLower(strings.TrimSpace(config.Database.IsolationLevel))
	if !isolationLevels[level] {
		return fmt.Errorf("unsupported isolation level %q", config.Database.IsolationLevel)
	}
	config.Database.IsolationLevel = level

	if config.Token.MaxAttempts < 1 {
		return fmt.Errorf("token max attempts must be at least 1, got %d", config.Token.MaxAttempts)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
