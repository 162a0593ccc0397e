package monitoring

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPMetricsMiddleware struct {
	next http.Handler
}

func NewHTTPMetricsMiddleware(next http.Handler) *HTTPMetricsMiddleware {
	return &HTTPMetricsMiddleware{
		next: next,
	}
}

func (m *HTTPMetricsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	wrapped := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	handlerName := RouteName(r.URL.Path)

	m.next.ServeHTTP(wrapped, r)

	duration := time.Since(start).Seconds()
	statusCode := strconv.Itoa(wrapped.statusCode)

	HTTPRequestDuration.WithLabelValues(handlerName, r.Method, statusCode).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(handlerName, r.Method, statusCode).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RouteName maps a request path onto a route name so that product ids
// and category names never become label values.
func RouteName(path string) string {
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		return "home"
	case strings.HasPrefix(path, "category/"):
		return "category"
	case strings.HasPrefix(path, "products/"):
		return "product"
	case strings.HasPrefix(path, "add-to-cart/"):
		return "add_to_cart"
	case strings.HasPrefix(path, "cart/increase/"):
		return "cart_increase"
	case strings.HasPrefix(path, "cart/decrease/"):
		return "cart_decrease"
	case strings.HasPrefix(path, "cart/remove/"):
		return "cart_remove"
	case path == "cart":
		return "cart"
	case path == "checkout":
		return "checkout"
	case path == "thankyou":
		return "thankyou"
	case path == "metrics":
		return "metrics"
	case path == "health":
		return "health"
	default:
		return "unknown"
	}
}

func WrapHandler(handler http.Handler) http.Handler {
	return NewHTTPMetricsMiddleware(handler)
}
