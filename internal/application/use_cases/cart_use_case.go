package use_cases

import (
	"context"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

type CheckoutResult struct {
	Items    int
	Subtotal float64
}

// CartUseCase applies cart mutations through the session store so that each
// one runs under that session's lock.
type CartUseCase struct {
	catalog ports.Catalog
	carts   ports.CartStore
	log     *logger.Logger
}

func NewCartUseCase(catalog ports.Catalog, carts ports.CartStore, log *logger.Logger) *CartUseCase {
	return &CartUseCase{
		catalog: catalog,
		carts:   carts,
		log:     log,
	}
}

// AddToCart snapshots the product from the catalog before taking the session
// lock, so a slow upstream never holds up other requests from the session.
func (uc *CartUseCase) AddToCart(ctx context.Context, sessionID string, productID int) (*cart.Cart, error) {
	if sessionID == "" {
		return nil, errors.ErrSessionRequired
	}
	if productID <= 0 {
		return nil, errors.ErrInvalidProductID
	}

	product, err := uc.catalog.GetProduct(ctx, productID)
	if err != nil {
		uc.log.Error("Failed to fetch product for cart", "error", err, "product_id", productID)
		return nil, err
	}

	return uc.mutate(ctx, sessionID, "add", func(c *cart.Cart) error {
		c.AddItem(*product)
		return nil
	})
}

func (uc *CartUseCase) IncreaseItem(ctx context.Context, sessionID string, productID int) (*cart.Cart, error) {
	return uc.mutate(ctx, sessionID, "increase", func(c *cart.Cart) error {
		c.IncreaseItem(productID)
		return nil
	})
}

func (uc *CartUseCase) DecreaseItem(ctx context.Context, sessionID string, productID int) (*cart.Cart, error) {
	return uc.mutate(ctx, sessionID, "decrease", func(c *cart.Cart) error {
		c.DecreaseItem(productID)
		return nil
	})
}

func (uc *CartUseCase) RemoveItem(ctx context.Context, sessionID string, productID int) (*cart.Cart, error) {
	return uc.mutate(ctx, sessionID, "remove", func(c *cart.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

// Checkout empties the cart and reports what it held. An empty cart is left
// alone and reported as ErrCartEmpty.
func (uc *CartUseCase) Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	var result CheckoutResult
	_, err := uc.mutate(ctx, sessionID, "checkout", func(c *cart.Cart) error {
		if c.IsEmpty() {
			return errors.ErrCartEmpty
		}
		result = CheckoutResult{Items: c.Count(), Subtotal: c.Subtotal()}
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("Checkout completed", "session_id", sessionID, "items", result.Items, "subtotal", result.Subtotal)
	return &result, nil
}

func (uc *CartUseCase) mutate(ctx context.Context, sessionID, op string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	if sessionID == "" {
		return nil, errors.ErrSessionRequired
	}

	c, err := uc.carts.Update(ctx, sessionID, fn)
	if err != nil {
		if err != errors.ErrCartEmpty {
			uc.log.Error("Failed to update cart", "error", err, "operation", op, "session_id", sessionID)
		}
		return nil, err
	}
	return c, nil
}
