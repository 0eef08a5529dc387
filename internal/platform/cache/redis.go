package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client. An optional password and database index
// may be passed as opts.
func New(ctx context.Context, addr string, opts ...func(*redis.Options)) (*redis.Client, error) {
	options := &redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// WithAuth sets the password and database index.
func WithAuth(password string, db int) func(*redis.Options) {
	return func(o *redis.Options) {
		o.Password = password
		o.DB = db
	}
}
