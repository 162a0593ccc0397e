package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
)

const backendName = "memory"

type entry struct {
	mu         sync.Mutex
	cart       *cart.Cart
	lastAccess time.Time
	removed    bool
}

// CartStore holds session carts in process memory. Each session has its own
// mutex; the map lock is never held while waiting on a session lock.
type CartStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	clock    clock.Clock
	metrics  *monitoring.SessionLockMetrics
}

func NewCartStore(ttl time.Duration, clk clock.Clock) *CartStore {
	return &CartStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		clock:    clk,
		metrics:  monitoring.NewSessionLockMetrics(backendName),
	}
}

func (s *CartStore) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastAccess) >= s.ttl
}

// acquire returns the locked entry for sessionID, creating it if needed. An
// entry removed by a concurrent sweep or delete is skipped.
func (s *CartStore) acquire(sessionID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.sessions[sessionID]
		if !ok {
			e = &entry{cart: cart.New(), lastAccess: s.clock.Now()}
			s.sessions[sessionID] = e
			monitoring.SetActiveSessions(len(s.sessions))
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *CartStore) lookup(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := s.lookup(sessionID)
	if e == nil {
		return cart.New(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.clock.Now()
	if e.removed || s.expired(e, now) {
		return cart.New(), nil
	}
	e.lastAccess = now
	return e.cart.Clone(), nil
}

func (s *CartStore) Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.metrics.RecordAttempt()
	e := s.acquire(sessionID)
	stop := s.metrics.TimeOperation()
	defer func() {
		stop()
		e.mu.Unlock()
	}()

	now := s.clock.Now()
	if s.expired(e, now) {
		e.cart = cart.New()
	}

	working := e.cart.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}

	e.cart = working
	e.lastAccess = now
	return working.Clone(), nil
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	monitoring.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	return nil
}

// PurgeExpired drops sessions idle for at least the store's TTL. Sessions
// whose lock is currently held are in use and are left for the next sweep.
func (s *CartStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.sessions {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if !e.mu.TryLock() {
			continue
		}
		if s.expired(e, now) {
			e.removed = true
			delete(s.sessions, id)
			purged++
		}
		e.mu.Unlock()
	}

	monitoring.SetActiveSessions(len(s.sessions))
	monitoring.RecordSessionsPurged(backendName, purged)
	return purged, nil
}

func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *CartStore) Ping(ctx context.Context) error {
	return nil
}

func (s *CartStore) Close() error {
	return nil
}
