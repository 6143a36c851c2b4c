package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// PostgresChecker pings PostgreSQL through database/sql
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a lazy connection; nothing is dialled until a check
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &PostgresChecker{db: db}, nil
}

// Type returns "postgres"
func (c *PostgresChecker) Type() string { return "postgres" }

// HealthCheck pings the database
func (c *PostgresChecker) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the connection
func (c *PostgresChecker) Close() error {
	return c.db.Close()
}

// RedisChecker pings Redis
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker wraps an existing client
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Type returns "redis"
func (c *RedisChecker) Type() string { return "redis" }

// HealthCheck pings Redis
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Pinger is anything that can confirm a remote answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks the upstream API
type BackendChecker struct {
	pinger Pinger
}

// NewBackendChecker wraps the backend client
func NewBackendChecker(p Pinger) *BackendChecker {
	return &BackendChecker{pinger: p}
}

// Type returns "backend"
func (c *BackendChecker) Type() string { return "backend" }

// HealthCheck pings the backend
func (c *BackendChecker) HealthCheck(ctx context.Context) error {
	return c.pinger.Ping(ctx)
}

// StoreChecker checks a store that exposes Ping
type StoreChecker struct {
	kind  string
	store Pinger
}

// NewStoreChecker wraps a store under a type name
func NewStoreChecker(kind string, store Pinger) *StoreChecker {
	return &StoreChecker{kind: kind, store: store}
}

// Type returns the configured kind
func (c *StoreChecker) Type() string { return c.kind }

// HealthCheck pings the store
func (c *StoreChecker) HealthCheck(ctx context.Context) error {
	return c.store.Ping(ctx)
}
