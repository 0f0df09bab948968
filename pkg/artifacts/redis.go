package artifacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "library-sorter:artifacts:"

type Redis struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, addr string, log *zap.Logger) (*goredis.Client, func(), error) {
	client := goredis.NewClient(
		&goredis.Options{
			Network:         "tcp",
			Addr:            addr,
			DB:              0,
			MaxRetries:      3,
			MinRetryBackoff: 50 * time.Millisecond,
			MaxRetryBackoff: 2 * time.Second,
			DialTimeout:     10 * time.Second,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
		},
	)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("new redis client ping: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.Warn("error closing redis client", zap.Error(err))
		}
	}, nil
}

// NewRedis keeps artifacts for ttl; zero keeps them until overwritten.
func NewRedis(client *goredis.Client, ttl time.Duration) Redis {
	return Redis{client: client, ttl: ttl}
}

func (r Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put %s: %w", key, err)
	}
	return nil
}

func (r Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return value, true, nil
}
