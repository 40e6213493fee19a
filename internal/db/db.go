package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/feastro/apiserver/config"
	_ "github.com/lib/pq"
)

const (
	driverName      = "postgres"
	applicationName = "feastro-apiserver"
	pingTimeout     = 5 * time.Second
	connectTimeout  = 10 * time.Second
)

// MigrationsURL is the golang-migrate source for the schema, relative to
// the repository root.
const MigrationsURL = "file://internal/db/migrations"

// DSN builds a lib/pq connection URL. The password is escaped, so any
// characters are allowed.
func DSN(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	if cfg.UseSSL {
		q.Set("sslmode", "require")
	}
	q.Set("application_name", applicationName)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout/time.Second)))

	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.DBName,
		RawQuery: q.Encode(),
	}).String()
}

// Open returns a pooled handle that has answered a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open(driverName, DSN(cfg))
	if err != nil {
		return nil, err
	}
	configurePool(conn, cfg)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s@%s:%d: %w", cfg.DBName, cfg.Host, cfg.Port, err)
	}
	return conn, nil
}

// configurePool applies the pool limits. Zero values leave the
// database/sql defaults in place.
func configurePool(conn *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
