package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

// SessionSweeper periodically drops idle session carts from stores that do
// not expire entries on their own.
type SessionSweeper struct {
	store    ports.ExpiringCartStore
	clock    clock.Clock
	logger   *logger.Logger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewSessionSweeper(
	store ports.ExpiringCartStore,
	clk clock.Clock,
	logger *logger.Logger,
	interval time.Duration,
) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		clock:    clk,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until ctx is canceled or Stop is called.
func (s *SessionSweeper) Start(ctx context.Context) {
	s.logger.Info("Starting session sweeper", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session sweeper stopped")
			return
		case <-s.stopChan:
			s.logger.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *SessionSweeper) Sweep(ctx context.Context) int {
	purged, err := s.store.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to purge expired sessions", "error", err)
		return purged
	}
	if purged > 0 {
		s.logger.Info("Purged expired sessions", "count", purged)
	}
	return purged
}
