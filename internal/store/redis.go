package store

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
)

// dialTimeout bounds every connect/read/write against the store so no
// operation can hang the ingestion or query path.
const dialTimeout = 5 * time.Second

// Client wraps a redigo pool. Each operation borrows a connection and
// returns it, so the client is safe for concurrent use.
type Client struct {
	pool *redis.Pool
}

// Dial creates a Client for the given address and database.
func Dial(addr string, db int) *Client {
	pool := &redis.Pool{
		MaxIdle:     8,
		MaxActive:   64,
		Wait:        true,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialDatabase(db),
				redis.DialConnectTimeout(dialTimeout),
				redis.DialReadTimeout(dialTimeout),
				redis.DialWriteTimeout(dialTimeout))
		},
	}
	return &Client{pool: pool}
}

// NewWithPool wraps an existing pool. Used by tests to point the
// client at a miniredis instance.
func NewWithPool(pool *redis.Pool) *Client {
	return &Client{pool: pool}
}

// Close releases the underlying pool.
func (c *Client) Close() error {
	return c.pool.Close()
}

// Do executes a single command on a pooled connection.
func (c *Client) Do(cmd string, args ...interface{}) (interface{}, error) {
	conn := c.pool.Get()
	defer conn.Close()
	return conn.Do(cmd, args...)
}

// DoContext executes a single command honoring the context deadline.
func (c *Client) DoContext(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.DoContext(ctx, "PING")
	return err
}

// Keys returns all keys matching pattern using incremental SCAN.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var keys []string
	cursor := 0
	for {
		values, err := redis.Values(redis.DoContext(conn, ctx, "SCAN", cursor, "MATCH", pattern, "COUNT", 100))
		if err != nil {
			return nil, err
		}
		var batch []string
		if _, err := redis.Scan(values, &cursor, &batch); err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			return keys, nil
		}
	}
}
