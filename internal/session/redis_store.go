package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/glaucoma-agent/internal/logging"
)

// KV abstracts the Redis operations used by RedisStore to make testing easier.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// RedisKV is a KV backed by go-redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps a go-redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (c *RedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisKV) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *RedisKV) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.client.Expire(ctx, key, expiration).Err()
}

// RedisStore keeps session endpoints in Redis with a TTL so several
// replicas can share sessions.
type RedisStore struct {
	kv             KV
	fallback       string
	ttl            time.Duration
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRedisStore constructs a Redis-backed Store.
func NewRedisStore(kv KV, fallback string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		kv:             kv,
		fallback:       strings.TrimSpace(fallback),
		ttl:            ttl,
		logger:         logger.Named("session_store"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

func endpointKey(sessionID string) string {
	return fmt.Sprintf("session:%s:endpoint", sessionID)
}

func (s *RedisStore) Endpoint(ctx context.Context, sessionID string) (string, error) {
	var value string
	err := s.withRetry(ctx, "session.get_endpoint", func() error {
		v, err := s.kv.Get(ctx, endpointKey(sessionID))
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return s.fallback, nil
	}
	if err != nil {
		return "", err
	}

	// A failed refresh only shortens the session, so the read still succeeds.
	if err := s.withRetry(ctx, "session.touch_endpoint", func() error {
		return s.kv.Expire(ctx, endpointKey(sessionID), s.ttl)
	}); err != nil {
		s.logger.Warn("failed to refresh session endpoint ttl", zap.Error(err))
	}
	return value, nil
}

func (s *RedisStore) SetEndpoint(ctx context.Context, sessionID, endpoint string) error {
	return s.withRetry(ctx, "session.set_endpoint", func() error {
		return s.kv.Set(ctx, endpointKey(sessionID), strings.TrimSpace(endpoint), s.ttl)
	})
}

func (s *RedisStore) withRetry(ctx context.Context, operation string, fn func() error) error {
	backoff := s.initialBackoff
	opLogger := logging.WithOperation(s.logger, operation, "")
	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, "", ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= s.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil || errors.Is(err, redis.Nil) {
			if err == nil && attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return err
		}

		if !isTransientError(err) || attempt == s.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, "", err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, "", err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
