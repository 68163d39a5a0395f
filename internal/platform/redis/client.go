// Package redis connects the token revocation list to Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"datatrail/internal/platform/config"
)

// Client is the revocation list's connection. It embeds the go-redis client
// so the list can issue commands directly.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL and pings it. It returns nil, nil when no URL is
// configured so callers can fall back to the in-memory list.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ClientName = "datatrail"
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// Health pings the server. It backs the /readyz probe.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
