package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redisURL. An empty URL disables Redis and
// returns a nil client.
func NewRedisClient(ctx context.Context, logger *slog.Logger, redisURL string) (redis.UniversalClient, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "Redis not configured, workflow step cache disabled")

		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to redis", "addr", opts.Addr)

	return client, nil
}
