package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yuzvak/storefront-service/internal/domain/cart"
	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

const (
	backendName = "postgres"
	table       = "session_carts"
)

const (
	insertSessionQuery = `
		INSERT INTO session_carts (session_id, cart, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO NOTHING
	`
	lockSessionQuery = `
		SELECT cart, expires_at
		FROM session_carts
		WHERE session_id = $1
		FOR UPDATE
	`
	updateSessionQuery = `
		UPDATE session_carts
		SET cart = $2, expires_at = $3, updated_at = $4
		WHERE session_id = $1
	`
	loadSessionQuery = `
		SELECT cart
		FROM session_carts
		WHERE session_id = $1 AND expires_at > $2
	`
	deleteSessionQuery = `DELETE FROM session_carts WHERE session_id = $1`
	purgeSessionsQuery = `DELETE FROM session_carts WHERE expires_at <= $1`
)

// CartStore keeps one row per session. Update serialises same-session writers
// with SELECT ... FOR UPDATE on that row.
type CartStore struct {
	db      *sql.DB
	logger  *logger.Logger
	clock   clock.Clock
	metrics *monitoring.SessionLockMetrics
	ttl     time.Duration
}

func NewCartStore(conn *Connection, ttl time.Duration, clk clock.Clock, log *logger.Logger) *CartStore {
	return &CartStore{
		db:      conn.GetDB(),
		logger:  log,
		clock:   clk,
		metrics: monitoring.NewSessionLockMetrics(backendName),
		ttl:     ttl,
	}
}

func degraded(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domainErrors.ErrSessionStoreDegraded, op, err)
}

func (s *CartStore) decode(sessionID string, raw []byte) *cart.Cart {
	c := cart.New()
	if err := json.Unmarshal(raw, c); err != nil {
		s.logger.Warn("Discarding undecodable cart", "error", err, "session_id", sessionID)
		return cart.New()
	}
	if c.Lines == nil {
		c.Lines = []cart.Line{}
	}
	if err := c.Validate(); err != nil {
		s.logger.Warn("Discarding invalid cart", "error", err, "session_id", sessionID)
		return cart.New()
	}
	return c
}

func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	var raw []byte
	row := monitoring.InstrumentQueryRow(ctx, s.db, "SELECT", table, loadSessionQuery, sessionID, s.clock.Now())
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return cart.New(), nil
		}
		return nil, degraded("load cart", err)
	}
	return s.decode(sessionID, raw), nil
}

func (s *CartStore) Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	s.metrics.RecordAttempt()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.metrics.RecordFailure("begin_failed")
		return nil, degraded("begin transaction", err)
	}
	defer tx.Rollback()

	stop := s.metrics.TimeOperation()
	defer stop()

	if _, err := monitoring.InstrumentTxExec(ctx, tx, "INSERT", table, insertSessionQuery, sessionID, `{"lines":[]}`, expiresAt, now); err != nil {
		return nil, degraded("create session", err)
	}

	var (
		raw     []byte
		expires time.Time
	)
	row := monitoring.InstrumentTxQueryRow(ctx, tx, "SELECT", table, lockSessionQuery, sessionID)
	if err := row.Scan(&raw, &expires); err != nil {
		s.metrics.RecordFailure("lock_failed")
		return nil, degraded("lock session", err)
	}

	c := cart.New()
	if expires.After(now) {
		c = s.decode(sessionID, raw)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	if _, err := monitoring.InstrumentTxExec(ctx, tx, "UPDATE", table, updateSessionQuery, sessionID, string(encoded), expiresAt, now); err != nil {
		return nil, degraded("save cart", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, degraded("commit", err)
	}
	return c, nil
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := monitoring.InstrumentExec(ctx, s.db, "DELETE", table, deleteSessionQuery, sessionID); err != nil {
		return degraded("delete session", err)
	}
	return nil
}

func (s *CartStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := monitoring.InstrumentExec(ctx, s.db, "DELETE", table, purgeSessionsQuery, now)
	if err != nil {
		return 0, degraded("purge sessions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, degraded("purge sessions", err)
	}
	monitoring.RecordSessionsPurged(backendName, int(n))
	return int(n), nil
}

func (s *CartStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CartStore) Close() error {
	return s.db.Close()
}
