package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/config"
)

// ErrStoreUnavailable reports that the key-value store could not serve a
// command. Callers making security decisions must treat it as a failure, not
// as an empty result.
var ErrStoreUnavailable = errors.New("key-value store unavailable")

// ErrUpdateContended is returned when Update loses the optimistic lock on
// every attempt.
var ErrUpdateContended = errors.New("key-value update contended")

const maxUpdateAttempts = 8

// ClientFactory builds the underlying go-redis client.
type ClientFactory func(cfg config.RedisConfig) *redis.Client

// Redis is the process-wide key-value store client. The go-redis client (and
// its connection pool) is built on first use and shared by every caller.
type Redis struct {
	cfg     config.RedisConfig
	logger  *zap.Logger
	factory ClientFactory

	once   sync.Once
	client *redis.Client
}

// NewRedis prepares a lazily connected client from the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	return NewRedisWithFactory(cfg, logger, DefaultClientFactory)
}

// NewRedisWithFactory is NewRedis with a custom client constructor.
func NewRedisWithFactory(cfg config.RedisConfig, logger *zap.Logger, factory ClientFactory) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{cfg: cfg, logger: logger, factory: factory}
}

// DefaultClientFactory builds a pooled go-redis client.
func DefaultClientFactory(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Client returns the shared go-redis client, constructing it exactly once.
func (r *Redis) Client() *redis.Client {
	r.once.Do(func() {
		r.client = r.factory(r.cfg)
		r.logger.Info("redis client initialized", zap.String("addr", r.cfg.Addr), zap.Int("pool_size", r.cfg.PoolSize))
	})
	return r.client
}

// Close closes the client and its pool.
func (r *Redis) Close() {
	if r == nil {
		return
	}
	_ = r.Client().Close()
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return errors.New("redis client not configured")
	}
	return storeError("ping", r.Client().Ping(ctx).Err())
}

// SetWithExpiry stores value under key; the key is removed after ttl.
func (r *Redis) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("set %s: ttl must be positive", key)
	}
	return storeError("set", r.Client().Set(ctx, key, value, ttl).Err())
}

// Get returns the value stored under key. A missing key yields found=false and
// a nil error.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.Client().Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError("get", err)
	}
	return val, true, nil
}

// Exists reports whether key is present.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, storeError("exists", err)
	}
	return n > 0, nil
}

// Delete removes keys; missing keys are ignored.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return storeError("del", r.Client().Del(ctx, keys...).Err())
}

// Update atomically replaces the value at key with fn's result. fn sees the
// current value and may run more than once when another writer touches key
// in between. An error from fn aborts the update and is returned unwrapped.
func (r *Redis) Update(ctx context.Context, key string, ttl time.Duration, fn func(current string, found bool) (string, error)) error {
	if ttl <= 0 {
		return fmt.Errorf("update %s: ttl must be positive", key)
	}
	client := r.Client()
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var fnErr error
		err := client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Result()
			found := true
			if errors.Is(err, redis.Nil) {
				current, found = "", false
			} else if err != nil {
				return err
			}
			next, err := fn(current, found)
			if err != nil {
				fnErr = err
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, ttl)
				return nil
			})
			return err
		}, key)
		switch {
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			r.logger.Debug("redis update contended", zap.String("key", key), zap.Int("attempt", attempt+1))
			continue
		default:
			return storeError("update", err)
		}
	}
	return fmt.Errorf("update %s: %w", key, ErrUpdateContended)
}

// AddToSet adds members to the set stored at setKey.
func (r *Redis) AddToSet(ctx context.Context, setKey string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return storeError("sadd", r.Client().SAdd(ctx, setKey, toAny(members)...).Err())
}

// RemoveFromSet removes members from the set stored at setKey.
func (r *Redis) RemoveFromSet(ctx context.Context, setKey string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return storeError("srem", r.Client().SRem(ctx, setKey, toAny(members)...).Err())
}

// SetContains reports whether member belongs to the set at setKey.
func (r *Redis) SetContains(ctx context.Context, setKey, member string) (bool, error) {
	ok, err := r.Client().SIsMember(ctx, setKey, member).Result()
	if err != nil {
		return false, storeError("sismember", err)
	}
	return ok, nil
}

// SetMembers lists the members of the set at setKey.
func (r *Redis) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	members, err := r.Client().SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, storeError("smembers", err)
	}
	return members, nil
}

// storeError wraps every non-nil command error as ErrStoreUnavailable while
// keeping the cause reachable through errors.Is/As.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("redis %s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
