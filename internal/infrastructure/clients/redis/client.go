package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mondokter/mondokter-backend/pkg/config"
	"github.com/mondokter/mondokter-backend/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection shared by the cache and the event bus.
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client, retrying the initial ping with
// exponential backoff so container startup ordering does not matter.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Printf("Redis connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
	}
	err := retry.Do(context.Background(), retryConfig, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis after retries: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
