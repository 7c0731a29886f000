// Package redis owns the shared Redis connection used by the pub/sub fan-out
// bridge and the wrap-up job queue.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client embeds the go-redis client so callers get the full command surface.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient dials Redis and fails fast if the server is unreachable, so a
// misconfigured address surfaces at startup rather than on the first publish.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", addr))
	return &Client{Client: rdb, logger: logger}, nil
}
