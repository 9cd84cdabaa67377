package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moresql-service/configs"
)

// Db wraps the Postgres connection pool. Each call checks out its own
// connection, so concurrent requests never share a cursor.
type Db struct {
	*pgxpool.Pool
}

// ConnString renders the configured credentials as a postgres:// URL.
func ConnString(cfg configs.DbConfig) string {
	var query url.Values
	if cfg.SSLMode != "" {
		query = url.Values{"sslmode": {cfg.SSLMode}}
	}
	return cfg.Credentials.URL(query).String()
}

func NewConnection(ctx context.Context, cfg *configs.Config) (*Db, error) {
	connString := ConnString(cfg.DbConfig)

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	poolCfg.MaxConns = cfg.DbConfig.MaxConns
	poolCfg.MaxConnLifetime = 5 * time.Minute
	// Describe each call instead of caching prepared statements, so
	// argument types still come from the procedure signature.
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.DbConfig.MigrationsPath != "" {
		if err := Migrate(cfg.DbConfig.MigrationsPath, connString); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Db{pool}, nil
}

// Migrate applies the SQL migrations found in path.
func Migrate(path, connString string) error {
	m, err := migrate.New("file://"+path, connString)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
