package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis. An empty URI means Redis is disabled and
// returns a nil client without error.
func ConnectRedis(ctx context.Context, redisURI string) (*redis.Client, error) {
	if redisURI == "" {
		slog.Info("redis disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("connected to redis", "addr", opt.Addr)
	return client, nil
}

// DisconnectRedis closes the client if there is one.
func DisconnectRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
