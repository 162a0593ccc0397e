package handlers

import (
	"context"
	"net/http"

	"github.com/yuzvak/storefront-service/internal/application/use_cases"
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/response"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

type CartHandler struct {
	carts    *use_cases.CartUseCase
	renderer *response.Renderer
	log      *logger.Logger
	checkout *monitoring.CheckoutMetrics
}

func NewCartHandler(carts *use_cases.CartUseCase, renderer *response.Renderer, log *logger.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		renderer: renderer,
		log:      log,
		checkout: monitoring.NewCheckoutMetrics(),
	}
}

type cartMutation func(ctx context.Context, sessionID string, productID int) (*cart.Cart, error)

// mutation parses the product id, applies op and redirects to the page
// returned by target. Every POST ends in a redirect so a reload never repeats it.
func (h *CartHandler) mutation(op string, apply cartMutation, target func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseProductID(r)
		if err == nil {
			_, err = apply(r.Context(), middleware.SessionID(r.Context()), id)
		}
		monitoring.RecordCartOperation(op, err)
		if err != nil {
			h.log.Warn("Cart operation failed", "operation", op, "path", r.URL.Path, "error", err.Error())
			response.WriteDomainError(w, h.renderer, err)
			return
		}
		http.Redirect(w, r, target(r), http.StatusSeeOther)
	}
}

func toCart(*http.Request) string {
	return "/cart"
}

func (h *CartHandler) HandleAddToCart() http.HandlerFunc {
	return h.mutation("add", h.carts.AddToCart, func(r *http.Request) string {
		return backTarget(r, "/cart")
	})
}

func (h *CartHandler) HandleIncrease() http.HandlerFunc {
	return h.mutation("increase", h.carts.IncreaseItem, toCart)
}

func (h *CartHandler) HandleDecrease() http.HandlerFunc {
	return h.mutation("decrease", h.carts.DecreaseItem, toCart)
}

func (h *CartHandler) HandleRemove() http.HandlerFunc {
	return h.mutation("remove", h.carts.RemoveItem, toCart)
}

func (h *CartHandler) HandleCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.checkout.RecordAttempt()

		result, err := h.carts.Checkout(r.Context(), middleware.SessionID(r.Context()))
		monitoring.RecordCartOperation("checkout", err)
		if err != nil {
			h.checkout.RecordFailure(err)
			if err == errors.ErrCartEmpty {
				http.Redirect(w, r, "/cart", http.StatusSeeOther)
				return
			}
			h.log.Error("Checkout failed", "error", err.Error())
			response.WriteDomainError(w, h.renderer, err)
			return
		}

		h.checkout.RecordSuccess(result.Items)
		http.Redirect(w, r, "/thankyou", http.StatusSeeOther)
	}
}
