package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

const backendName = "redis"

// releaseLuaScript deletes the lock only while it still holds our token, so a
// lock that expired and was taken by another request is left alone.
const releaseLuaScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`

// writeLuaScript stores the cart only while the lock still holds our token. A
// holder that outlived lockTimeout gets 0 back and its write is dropped.
const writeLuaScript = `
	if redis.call("GET", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
`

// CartStore keeps each session cart as a JSON string under its own key. The
// key's TTL is refreshed on every write, so idle sessions expire on their own.
type CartStore struct {
	client  *redis.Client
	logger  *logger.Logger
	metrics *monitoring.SessionLockMetrics

	ttl           time.Duration
	lockTimeout   time.Duration
	retryDelay    time.Duration
	retryAttempts int

	releaseScript *redis.Script
	writeScript   *redis.Script
}

func NewCartStore(conn *Connection, sessionCfg config.SessionConfig, redisCfg config.RedisConfig, log *logger.Logger) *CartStore {
	attempts := redisCfg.LockRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &CartStore{
		client:        conn.GetClient(),
		logger:        log,
		metrics:       monitoring.NewSessionLockMetrics(backendName),
		ttl:           sessionCfg.TTL(),
		lockTimeout:   redisCfg.LockTimeout(),
		retryDelay:    redisCfg.LockRetryDelay(),
		retryAttempts: attempts,
		releaseScript: redis.NewScript(releaseLuaScript),
		writeScript:   redis.NewScript(writeLuaScript),
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:cart", sessionID)
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("lock:session:%s", sessionID)
}

func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.read(ctx, sessionID)
}

func (s *CartStore) read(ctx context.Context, sessionID string) (*cart.Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return cart.New(), nil
		}
		return nil, fmt.Errorf("%w: get cart: %v", domainErrors.ErrSessionStoreDegraded, err)
	}

	c := cart.New()
	if err := json.Unmarshal(raw, c); err != nil {
		s.logger.Warn("Discarding undecodable cart", "error", err, "session_id", sessionID)
		return cart.New(), nil
	}
	if c.Lines == nil {
		c.Lines = []cart.Line{}
	}
	if err := c.Validate(); err != nil {
		s.logger.Warn("Discarding invalid cart", "error", err, "session_id", sessionID)
		return cart.New(), nil
	}
	return c, nil
}

func (s *CartStore) Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	token, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stop := s.metrics.TimeOperation()
	defer func() {
		stop()
		s.unlock(sessionID, token)
	}()

	c, err := s.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	keys := []string{lockKey(sessionID), cartKey(sessionID)}
	written, err := s.writeScript.Run(ctx, s.client, keys, token, raw, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: set cart: %v", domainErrors.ErrSessionStoreDegraded, err)
	}
	if written == 0 {
		s.metrics.RecordFailure("lock_lost")
		s.logger.Warn("Session lock expired before write", "session_id", sessionID)
		return nil, domainErrors.ErrSessionLocked
	}
	return c, nil
}

// lock takes the per-session lock with SET NX, retrying while another request
// holds it. The lock expires after lockTimeout so a crashed holder cannot wedge
// the session.
func (s *CartStore) lock(ctx context.Context, sessionID string) (string, error) {
	token := uuid.NewString()
	key := lockKey(sessionID)

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		s.metrics.RecordAttempt()
		ok, err := s.client.SetNX(ctx, key, token, s.lockTimeout).Result()
		if err != nil {
			s.metrics.RecordFailure("redis_error")
			return "", fmt.Errorf("%w: acquire lock: %v", domainErrors.ErrSessionStoreDegraded, err)
		}
		if ok {
			return token, nil
		}
		s.metrics.RecordFailure("already_locked")

		if attempt == s.retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	s.logger.Warn("Session lock contended", "session_id", sessionID, "attempts", s.retryAttempts)
	return "", domainErrors.ErrSessionLocked
}

func (s *CartStore) unlock(sessionID, token string) {
	// Release even when the request context is already canceled.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.releaseScript.Run(ctx, s.client, []string{lockKey(sessionID)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Error("Failed to release session lock", "error", err, "session_id", sessionID)
	}
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: delete cart: %v", domainErrors.ErrSessionStoreDegraded, err)
	}
	return nil
}

func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *CartStore) Close() error {
	return s.client.Close()
}
