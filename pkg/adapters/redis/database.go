package redis

import (
	"context"
	"time"

	"github.com/aretw0/stacktester/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Database implements ports.Database using Redis.
//
// Layout under the prefix:
//
//	data    hash  key -> value
//	index   zset  every live key, score 0, ordered lexicographically
//	ver     hash  key -> per-key write counter
//	version string, global commit counter
type Database struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
}

var _ ports.Database = (*Database)(nil)

// Option configures the Database.
type Option func(*Database)

// WithPrefix sets the key prefix for all structures.
func WithPrefix(prefix string) Option {
	return func(d *Database) {
		d.prefix = prefix
	}
}

// WithTimeout bounds every round trip to Redis.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Database) {
		d.timeout = timeout
	}
}

// New creates a new Redis database with options.
func New(address, password string, db int, opts ...Option) *Database {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis database from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Database {
	d := &Database{
		client:  client,
		prefix:  "stacktester:",
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements ports.Database.
func (d *Database) Name() string {
	return "redis"
}

// CreateTransaction implements ports.Database.
func (d *Database) CreateTransaction() (ports.Transaction, error) {
	return &Transaction{db: d, pointReads: make(map[string]string)}, nil
}

// Ping checks connectivity.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (d *Database) Close() error {
	return d.client.Close()
}

func (d *Database) dataKey() string    { return d.prefix + "data" }
func (d *Database) indexKey() string   { return d.prefix + "index" }
func (d *Database) verKey() string     { return d.prefix + "ver" }
func (d *Database) versionKey() string { return d.prefix + "version" }

func (d *Database) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}
