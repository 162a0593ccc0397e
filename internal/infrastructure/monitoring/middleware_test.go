package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExtractHandlerName(t *testing.T) {
	tests := map[string]string{
		"/":                   "home",
		"/category/jewelery":  "category",
		"/products/17":        "product",
		"/add-to-cart/3":      "add_to_cart",
		"/cart":               "cart",
		"/cart/increase/3":    "cart_increase",
		"/cart/decrease/3":    "cart_decrease",
		"/cart/remove/3":      "cart_remove",
		"/checkout":           "checkout",
		"/thankyou":           "thankyou",
		"/metrics":            "metrics",
		"/health":             "health",
		"/wp-admin/setup.php": "unknown",
	}
	for path, want := range tests {
		if got := RouteName(path); got != want {
			t.Errorf("RouteName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestHTTPMetricsMiddlewareCountsStatus(t *testing.T) {
	handler := WrapHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("thankyou", http.MethodGet, "418"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thankyou", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("thankyou", http.MethodGet, "418"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, grew by %v", after-before)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status not propagated: %d", rec.Code)
	}
}
