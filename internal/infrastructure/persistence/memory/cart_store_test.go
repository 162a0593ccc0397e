package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(ttl time.Duration) (*CartStore, *clock.MockClock) {
	clk := clock.NewMockClock(epoch)
	return NewCartStore(ttl, clk), clk
}

func add(id int) func(*cart.Cart) error {
	return func(c *cart.Cart) error {
		c.AddItem(catalog.Product{ID: id, Title: "item", Price: 1})
		return nil
	}
}

func TestLoadUnknownSessionIsEmpty(t *testing.T) {
	store, _ := newStore(time.Hour)

	c, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", c.Lines)
	}
	if store.Len() != 0 {
		t.Fatal("load must not create a session")
	}
}

func TestUpdatePersistsPerSession(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()

	store.Update(ctx, "a", add(5))
	store.Update(ctx, "a", add(5))
	store.Update(ctx, "b", add(7))

	a, _ := store.Load(ctx, "a")
	b, _ := store.Load(ctx, "b")
	if a.Count() != 2 || b.Count() != 1 {
		t.Fatalf("sessions leaked into each other: a=%d b=%d", a.Count(), b.Count())
	}
}

func TestUpdateErrorLeavesCartUntouched(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()
	store.Update(ctx, "s", add(1))

	boom := errors.New("boom")
	_, err := store.Update(ctx, "s", func(c *cart.Cart) error {
		c.Clear()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	c, _ := store.Load(ctx, "s")
	if c.Count() != 1 {
		t.Fatalf("failed update was persisted: %+v", c.Lines)
	}
}

func TestUpdateRejectsInvariantViolation(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()

	_, err := store.Update(ctx, "s", func(c *cart.Cart) error {
		c.Lines = append(c.Lines, cart.Line{Product: catalog.Product{ID: 1}, Quantity: 0})
		return nil
	})
	if err == nil {
		t.Fatal("expected invariant error")
	}
	c, _ := store.Load(ctx, "s")
	if !c.IsEmpty() {
		t.Fatalf("invalid cart was stored: %+v", c.Lines)
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()
	store.Update(ctx, "s", add(1))

	c, _ := store.Load(ctx, "s")
	c.IncreaseItem(1)

	again, _ := store.Load(ctx, "s")
	if again.Count() != 1 {
		t.Fatalf("caller mutation leaked into store: %d", again.Count())
	}
}

func TestConcurrentAddsSameSession(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update(ctx, "shared", add(9)); err != nil {
				t.Errorf("update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	c, _ := store.Load(ctx, "shared")
	if len(c.Lines) != 1 {
		t.Fatalf("expected a single line, got %d", len(c.Lines))
	}
	if c.Count() != n {
		t.Fatalf("expected quantity %d, got %d", n, c.Count())
	}
}

func TestExpiry(t *testing.T) {
	store, clk := newStore(time.Hour)
	ctx := context.Background()
	store.Update(ctx, "idle", add(1))
	store.Update(ctx, "busy", add(2))

	clk.Advance(45 * time.Minute)
	store.Load(ctx, "busy")
	clk.Advance(30 * time.Minute)

	idle, _ := store.Load(ctx, "idle")
	if !idle.IsEmpty() {
		t.Fatal("expired session should read as empty")
	}

	purged, err := store.PurgeExpired(ctx, clk.Now())
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
	if store.Len() != 1 {
		t.Fatalf("expected busy session to survive, have %d", store.Len())
	}

	busy, _ := store.Load(ctx, "busy")
	if busy.Count() != 1 {
		t.Fatalf("busy session lost its cart: %+v", busy.Lines)
	}
}

func TestUpdateAfterExpiryStartsFresh(t *testing.T) {
	store, clk := newStore(time.Minute)
	ctx := context.Background()
	store.Update(ctx, "s", add(1))

	clk.Advance(2 * time.Minute)
	c, err := store.Update(ctx, "s", add(2))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Line(1); ok || c.Count() != 1 {
		t.Fatalf("expired lines carried over: %+v", c.Lines)
	}
}

func TestDeleteAndRecreate(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx := context.Background()
	store.Update(ctx, "s", add(1))

	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatal("second delete should be a no-op")
	}

	c, _ := store.Load(ctx, "s")
	if !c.IsEmpty() {
		t.Fatal("deleted session still has a cart")
	}

	c, _ = store.Update(ctx, "s", add(3))
	if c.Count() != 1 {
		t.Fatalf("recreated session unexpected: %+v", c.Lines)
	}
}

func TestCanceledContext(t *testing.T) {
	store, _ := newStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Update(ctx, "s", add(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := store.Load(ctx, "s"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
