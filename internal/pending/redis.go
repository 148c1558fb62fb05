package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRegistry shares pending entries between several proxies through one redis.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

var _ Registry = (*RedisRegistry)(nil)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisRegistry) key(key string) string {
	return fmt.Sprintf("%s:pending:%s", r.prefix, key)
}

func (r *RedisRegistry) TryBegin(ctx context.Context, key string) (*Lease, error) {
	lease := newLease(key)

	ok, err := r.client.SetNX(ctx, r.key(key), lease.Token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending key: %w", err)
	}
	if !ok {
		return nil, ErrPending
	}
	return lease, nil
}

func (r *RedisRegistry) End(ctx context.Context, lease *Lease) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.key(lease.Key)}, lease.Token).Err(); err != nil {
		return fmt.Errorf("failed to release pending key: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Active(ctx context.Context, lease *Lease) bool {
	token, err := r.client.Get(ctx, r.key(lease.Key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to check pending key",
				zap.String("key", lease.Key),
				zap.Error(err))
		}
		return false
	}
	return token == lease.Token
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
