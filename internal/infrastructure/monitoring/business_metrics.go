package monitoring

import (
	"errors"

	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
)

type CheckoutMetrics struct{}

func NewCheckoutMetrics() *CheckoutMetrics {
	return &CheckoutMetrics{}
}

func (m *CheckoutMetrics) RecordAttempt() {
	RecordCheckoutAttempt()
}

func (m *CheckoutMetrics) RecordSuccess(items int) {
	RecordCheckoutSuccess(items)
}

func (m *CheckoutMetrics) RecordFailure(err error) {
	RecordCheckoutFailure(failureReason(err))
}

// failureReason maps errors onto a fixed label set.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrCartEmpty):
		return "empty_cart"
	case errors.Is(err, domainErrors.ErrSessionLocked):
		return "session_locked"
	case errors.Is(err, domainErrors.ErrSessionStoreDegraded):
		return "store_unavailable"
	default:
		return "internal"
	}
}

type SessionLockMetrics struct {
	backend string
}

func NewSessionLockMetrics(backend string) *SessionLockMetrics {
	return &SessionLockMetrics{
		backend: backend,
	}
}

func (m *SessionLockMetrics) RecordAttempt() {
	RecordLockAttempt(m.backend)
}

func (m *SessionLockMetrics) RecordFailure(reason string) {
	RecordLockFailure(m.backend, reason)
}

func (m *SessionLockMetrics) TimeOperation() func() {
	return TimeSessionLock(m.backend)
}
