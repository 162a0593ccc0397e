package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

func setupStore(t *testing.T, attempts int) (*CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	conn := NewConnectionFromClient(client)
	t.Cleanup(func() { conn.Close() })

	sessionCfg := config.SessionConfig{TTLSeconds: 60}
	redisCfg := config.RedisConfig{
		LockTimeoutMillis: 2000,
		LockRetryMillis:   2,
		LockRetryAttempts: attempts,
	}
	return NewCartStore(conn, sessionCfg, redisCfg, logger.FromZap(zap.NewNop())), mr
}

func add(id int) func(*cart.Cart) error {
	return func(c *cart.Cart) error {
		c.AddItem(catalog.Product{ID: id, Title: "item", Price: 2})
		return nil
	}
}

func TestRedisLoadMissing(t *testing.T) {
	store, _ := setupStore(t, 3)

	c, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", c.Lines)
	}
}

func TestRedisUpdatePersistsWithTTL(t *testing.T) {
	store, mr := setupStore(t, 3)
	ctx := context.Background()

	store.Update(ctx, "s1", add(5))
	store.Update(ctx, "s1", add(5))
	if _, err := store.Update(ctx, "s1", add(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Count() != 3 || len(c.Lines) != 2 || c.Lines[0].Product.ID != 5 {
		t.Fatalf("unexpected cart: %+v", c.Lines)
	}

	if ttl := mr.TTL(cartKey("s1")); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}
	if mr.Exists(lockKey("s1")) {
		t.Fatal("lock was not released")
	}

	mr.FastForward(2 * time.Minute)
	c, _ = store.Load(ctx, "s1")
	if !c.IsEmpty() {
		t.Fatal("expired session should read as empty")
	}
}

func TestRedisUpdateErrorDoesNotPersist(t *testing.T) {
	store, _ := setupStore(t, 3)
	ctx := context.Background()
	store.Update(ctx, "s1", add(1))

	_, err := store.Update(ctx, "s1", func(c *cart.Cart) error {
		c.Clear()
		return domainErrors.ErrCartEmpty
	})
	if err != domainErrors.ErrCartEmpty {
		t.Fatalf("expected fn error, got %v", err)
	}

	c, _ := store.Load(ctx, "s1")
	if c.Count() != 1 {
		t.Fatalf("failed update was persisted: %+v", c.Lines)
	}
}

func TestRedisLockContention(t *testing.T) {
	store, mr := setupStore(t, 2)
	ctx := context.Background()

	mr.Set(lockKey("s1"), "someone-else")

	_, err := store.Update(ctx, "s1", add(1))
	if !errors.Is(err, domainErrors.ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}

	got, _ := mr.Get(lockKey("s1"))
	if got != "someone-else" {
		t.Fatal("foreign lock must not be released")
	}
}

func TestRedisUpdateDropsWriteAfterLockLost(t *testing.T) {
	store, mr := setupStore(t, 3)
	ctx := context.Background()

	if _, err := store.Update(ctx, "s1", add(1)); err != nil {
		t.Fatal(err)
	}

	// The lock expires mid-update and another request takes it.
	_, err := store.Update(ctx, "s1", func(c *cart.Cart) error {
		mr.Set(lockKey("s1"), "other-request")
		c.AddItem(catalog.Product{ID: 2, Title: "late", Price: 1})
		return nil
	})
	if !errors.Is(err, domainErrors.ErrSessionLocked) {
		t.Fatalf("expected session locked, got %v", err)
	}

	c, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Lines) != 1 || c.Lines[0].Product.ID != 1 {
		t.Fatalf("stale write was stored: %+v", c.Lines)
	}
	if got, _ := mr.Get(lockKey("s1")); got != "other-request" {
		t.Fatalf("foreign lock was released, holder is %q", got)
	}
}

func TestRedisConcurrentUpdates(t *testing.T) {
	store, _ := setupStore(t, 2000)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update(ctx, "shared", add(3)); err != nil {
				t.Errorf("update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	c, _ := store.Load(ctx, "shared")
	if len(c.Lines) != 1 || c.Count() != n {
		t.Fatalf("expected one line with quantity %d, got %+v", n, c.Lines)
	}
}

func TestRedisCorruptValueReadsEmpty(t *testing.T) {
	store, mr := setupStore(t, 3)
	mr.Set(cartKey("s1"), "{not json")

	c, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("corrupt value should read as empty cart")
	}
}

func TestRedisDeleteAndPing(t *testing.T) {
	store, mr := setupStore(t, 3)
	ctx := context.Background()
	store.Update(ctx, "s1", add(1))

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(cartKey("s1")) {
		t.Fatal("cart key still present")
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	mr.Close()
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domainErrors.ErrSessionStoreDegraded) {
		t.Fatalf("expected degraded store error, got %v", err)
	}
}
