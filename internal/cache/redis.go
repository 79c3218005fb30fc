package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"atstailor/internal/config"
	"atstailor/internal/errors"
)

type lookup struct {
	data  []byte
	found bool
}

// RedisStore is the L2 store. Every call runs through a circuit breaker so a
// failing redis degrades the cache to L1 only instead of adding latency.
type RedisStore struct {
	rdb     redis.UniversalClient
	cb      *gobreaker.CircuitBreaker[lookup]
	timeout time.Duration
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(ctx context.Context, cfg config.CacheConfig, logger *errors.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid redis URL", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeCacheFailed, "redis unreachable", err).
			WithContext("addr", opts.Addr)
	}
	if logger != nil {
		logger.Info("cache L2 redis connected", "addr", opts.Addr)
	}
	return newRedisStore(rdb, cfg, logger), nil
}

func newRedisStore(rdb redis.UniversalClient, cfg config.CacheConfig, logger *errors.Logger) *RedisStore {
	timeout := cfg.RedisTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{rdb: rdb, cb: newBreaker(cfg.CircuitBreaker, logger), timeout: timeout}
}

// newBreaker returns nil when the breaker is disabled.
func newBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[lookup] {
	if !cfg.Enabled {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        "cache-redis",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
					"failure_threshold", cfg.FailureThreshold)
			}
		},
	}
	return gobreaker.NewCircuitBreaker[lookup](settings)
}

func (r *RedisStore) execute(fn func() (lookup, error)) (lookup, error) {
	if r.cb == nil {
		return fn()
	}
	return r.cb.Execute(fn)
}

// Get fetches key. A missing key is not an error and does not count as a breaker failure.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := r.execute(func() (lookup, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		data, err := r.rdb.Get(ctx, key).Bytes()
		if stderrors.Is(err, redis.Nil) {
			return lookup{}, nil
		}
		if err != nil {
			return lookup{}, err
		}
		return lookup{data: data, found: true}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return res.data, res.found, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := r.execute(func() (lookup, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return lookup{}, r.rdb.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
