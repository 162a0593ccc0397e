package errors

import (
	"errors"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProductID   = errors.New("invalid product id")
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	ErrCartEmpty            = errors.New("cart is empty")
	ErrCartInvariant        = errors.New("cart invariant violated")
	ErrSessionRequired      = errors.New("session id is required")
	ErrSessionLocked        = errors.New("session is locked by another request")
	ErrSessionStoreDegraded = errors.New("session store unavailable")
)
