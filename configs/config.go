package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"moresql-service/pkg/dsn"
)

// Config holds the application configuration.
type Config struct {
	DbConfig         DbConfig
	RedisConfig      RedisConfig
	LogConfig        LogConfig
	ListenAddr       string
	RoutesFile       string
	StatementTimeout time.Duration
}

// DbConfig holds database-related configuration.
type DbConfig struct {
	Credentials    dsn.Credentials
	MaxConns       int32
	MigrationsPath string
	SSLMode        string
}

// RedisConfig enables the response cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads .env, when present, and then the environment.
// A missing or unusable database URI is returned as *dsn.ConfigurationError.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded, using environment only")
	}

	creds, err := dsn.Parse(os.Getenv("MORESQL_DATABASE_URI"))
	if err != nil {
		return nil, err
	}

	timeout, err := durationEnv("MORESQL_STATEMENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	maxConns, err := intEnv("MORESQL_POOL_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	if maxConns < 1 {
		return nil, fmt.Errorf("MORESQL_POOL_MAX_CONNS must be positive, got %d", maxConns)
	}
	redisDB, err := intEnv("MORESQL_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		DbConfig: DbConfig{
			Credentials:    creds,
			MaxConns:       int32(maxConns),
			MigrationsPath: os.Getenv("MORESQL_MIGRATIONS_PATH"),
			SSLMode:        os.Getenv("MORESQL_SSLMODE"),
		},
		RedisConfig: RedisConfig{
			Addr:     os.Getenv("MORESQL_REDIS_ADDR"),
			Password: os.Getenv("MORESQL_REDIS_PASSWORD"),
			DB:       redisDB,
		},
		LogConfig: LogConfig{
			Level:  stringEnv("MORESQL_LOG_LEVEL", "info"),
			Format: stringEnv("MORESQL_LOG_FORMAT", "text"),
		},
		ListenAddr:       stringEnv("MORESQL_LISTEN_ADDR", ":2222"),
		RoutesFile:       stringEnv("MORESQL_ROUTES_FILE", "routes.yaml"),
		StatementTimeout: timeout,
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s value %q: negative", key, v)
	}
	return d, nil
}
