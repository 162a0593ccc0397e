package ports

import (
	"context"
	"time"

	"github.com/yuzvak/storefront-service/internal/domain/cart"
)

// CartStore keeps one cart per session id.
//
// Load never fails for an unknown session; it returns an empty cart. Update
// runs fn against the current cart while holding that session's lock and
// persists the result only when fn returns nil, so two requests from the same
// session never interleave their read-modify-write.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

// ExpiringCartStore is implemented by backends that need an external sweep to
// drop idle sessions. Redis expires keys on its own and does not implement it.
type ExpiringCartStore interface {
	CartStore
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
