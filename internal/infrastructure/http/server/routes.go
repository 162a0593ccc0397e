package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuzvak/storefront-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth())

	pages := http.NewServeMux()
	pages.HandleFunc("GET /{$}", s.storefrontHandler.HandleHome())
	pages.HandleFunc("GET /category/{name}", s.storefrontHandler.HandleCategory())
	pages.HandleFunc("GET /products/{id}", s.storefrontHandler.HandleProduct())
	pages.HandleFunc("GET /cart", s.storefrontHandler.HandleCart())
	pages.HandleFunc("GET /checkout", s.storefrontHandler.HandleCheckoutPage())
	pages.HandleFunc("GET /thankyou", s.storefrontHandler.HandleThankYou())

	pages.HandleFunc("POST /add-to-cart/{id}", s.cartHandler.HandleAddToCart())
	pages.HandleFunc("POST /cart/increase/{id}", s.cartHandler.HandleIncrease())
	pages.HandleFunc("POST /cart/decrease/{id}", s.cartHandler.HandleDecrease())
	pages.HandleFunc("POST /cart/remove/{id}", s.cartHandler.HandleRemove())
	pages.HandleFunc("POST /checkout", s.cartHandler.HandleCheckout())

	// Only storefront pages get a session cookie.
	var storefront http.Handler = pages
	storefront = middleware.NewRecoveryMiddleware(s.logger, s.renderer)(storefront)
	storefront = middleware.NewLoggingMiddleware(s.logger)(storefront)
	storefront = middleware.NewSessionMiddleware(s.sessionCfg, s.sessionIDs)(storefront)
	mux.Handle("/", storefront)

	handler := monitoring.WrapHandler(mux)
	handler = s.timeoutMiddleware(handler)

	return handler
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, s.requestTimeout, "Request timeout")
}
