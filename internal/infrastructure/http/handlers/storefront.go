package handlers

import (
	"context"
	"net/http"

	"github.com/yuzvak/storefront-service/internal/application/use_cases"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/response"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

type StorefrontHandler struct {
	pages    *use_cases.StorefrontUseCase
	renderer *response.Renderer
	log      *logger.Logger
}

func NewStorefrontHandler(pages *use_cases.StorefrontUseCase, renderer *response.Renderer, log *logger.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		pages:    pages,
		renderer: renderer,
		log:      log,
	}
}

type pageFunc func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error)

func (h *StorefrontHandler) page(view string, load pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := load(r.Context(), middleware.SessionID(r.Context()), r)
		if err != nil {
			response.WriteDomainError(w, h.renderer, err)
			return
		}
		if err := h.renderer.Render(w, http.StatusOK, view, data); err != nil {
			h.log.Error("Failed to render view", "view", view, "error", err)
			response.WriteDomainError(w, h.renderer, err)
		}
	}
}

func (h *StorefrontHandler) HandleHome() http.HandlerFunc {
	return h.page("index", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		return h.pages.HomePage(ctx, sessionID)
	})
}

func (h *StorefrontHandler) HandleCategory() http.HandlerFunc {
	return h.page("index", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		return h.pages.CategoryPage(ctx, sessionID, r.PathValue("name"))
	})
}

func (h *StorefrontHandler) HandleProduct() http.HandlerFunc {
	return h.page("product", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		id, err := parseProductID(r)
		if err != nil {
			return nil, err
		}
		return h.pages.ProductPage(ctx, sessionID, id)
	})
}

func (h *StorefrontHandler) HandleCart() http.HandlerFunc {
	return h.page("cart", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		return h.pages.CartPage(ctx, sessionID)
	})
}

func (h *StorefrontHandler) HandleCheckoutPage() http.HandlerFunc {
	return h.page("checkout", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		return h.pages.CheckoutPage(ctx, sessionID)
	})
}

func (h *StorefrontHandler) HandleThankYou() http.HandlerFunc {
	return h.page("thankyou", func(ctx context.Context, sessionID string, r *http.Request) (*use_cases.ViewData, error) {
		return h.pages.ThankYouPage(ctx, sessionID)
	})
}
