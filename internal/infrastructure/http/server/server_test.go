package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	"github.com/yuzvak/storefront-service/internal/infrastructure/catalogapi"
	"github.com/yuzvak/storefront-service/internal/infrastructure/persistence/memory"
	"github.com/yuzvak/storefront-service/internal/pkg/clock"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

func fakeStoreAPI(t *testing.T, healthy *bool) *httptest.Server {
	t.Helper()
	var products []catalog.Product
	for i := 1; i <= 20; i++ {
		products = append(products, catalog.Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %d", i),
			Price:    float64(i),
			Category: []string{"electronics", "jewelery"}[i%2],
		})
	}

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		if healthy != nil && !*healthy {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, products)
	})
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"electronics", "jewelery"})
	})
	mux.HandleFunc("GET /products/category/{name}", func(w http.ResponseWriter, r *http.Request) {
		var out []catalog.Product
		for _, p := range products {
			if p.Category == r.PathValue("name") {
				out = append(out, p)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range products {
			if fmt.Sprint(p.ID) == r.PathValue("id") {
				writeJSON(w, p)
				return
			}
		}
		writeJSON(w, nil)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, healthy *bool) *harness {
	t.Helper()
	return newHarnessFor(t, fakeStoreAPI(t, healthy))
}

func newHarnessFor(t *testing.T, api *httptest.Server) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Catalog.BaseURL = api.URL
	store := memory.NewCartStore(time.Hour, clock.NewRealClock())
	log := logger.FromZap(zap.NewNop())

	s, err := NewServer(cfg, catalogapi.NewClientWithHTTP(api.URL, api.Client()), store, nil, log)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &harness{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (h *harness) do(method, path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, nil)
	if err != nil {
		h.t.Fatal(err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func cartCount(n int) string {
	return fmt.Sprintf(`<span id="cart-count">%d</span>`, n)
}

func TestStorefrontCartFlow(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(http.MethodGet, "/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Product 20") || !strings.Contains(body, cartCount(0)) {
		t.Fatalf("unexpected home page: %d", resp.StatusCode)
	}

	h.do(http.MethodPost, "/add-to-cart/5")
	h.do(http.MethodPost, "/add-to-cart/5")
	resp, body = h.do(http.MethodPost, "/add-to-cart/7")
	if resp.Request.URL.Path != "/cart" {
		t.Fatalf("expected redirect to /cart, landed on %s", resp.Request.URL.Path)
	}
	if !strings.Contains(body, cartCount(3)) {
		t.Fatal("expected cart count 3 after adding 5, 5, 7")
	}

	_, body = h.do(http.MethodPost, "/cart/decrease/7")
	if !strings.Contains(body, cartCount(2)) || strings.Contains(body, `data-product-id="7"`) {
		t.Fatal("decrease to zero should remove the line")
	}

	h.do(http.MethodPost, "/cart/remove/42")
	_, body = h.do(http.MethodPost, "/cart/increase/5")
	if !strings.Contains(body, cartCount(3)) {
		t.Fatal("increase should bump the existing line")
	}

	_, body = h.do(http.MethodGet, "/checkout")
	if !strings.Contains(body, "$15.00") {
		t.Fatal("checkout page should show the total")
	}

	resp, body = h.do(http.MethodPost, "/checkout")
	if resp.Request.URL.Path != "/thankyou" || !strings.Contains(body, cartCount(0)) {
		t.Fatalf("checkout should clear the cart and land on /thankyou, got %s", resp.Request.URL.Path)
	}

	resp, _ = h.do(http.MethodPost, "/checkout")
	if resp.Request.URL.Path != "/cart" {
		t.Fatalf("empty checkout should land on /cart, got %s", resp.Request.URL.Path)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodPost, "/add-to-cart/1")

	jar, _ := cookiejar.New(nil)
	other := &harness{t: t, srv: h.srv, client: &http.Client{Jar: jar}}
	_, body := other.do(http.MethodGet, "/cart")
	if !strings.Contains(body, cartCount(0)) {
		t.Fatal("a new visitor should see an empty cart")
	}
}

func TestAddToCartRedirectsBack(t *testing.T) {
	h := newHarness(t, nil)

	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/add-to-cart/3", nil)
	req.Header.Set("Referer", h.srv.URL+"/category/jewelery")
	noFollow := &http.Client{
		Jar:           h.client.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/category/jewelery" {
		t.Fatalf("unexpected redirect: %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	req, _ = http.NewRequest(http.MethodPost, h.srv.URL+"/add-to-cart/3", nil)
	req.Header.Set("Referer", "https://evil.example/phish")
	resp, err = noFollow.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Location") != "/cart" {
		t.Fatalf("foreign referer must not be followed, got %s", resp.Header.Get("Location"))
	}
}

func TestProductPage(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(http.MethodGet, "/products/4")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := strings.Count(body, `<li class="product">`); got != 12 {
		t.Fatalf("expected 12 related products, got %d", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/products/abc", http.StatusBadRequest},
		{http.MethodGet, "/products/0", http.StatusBadRequest},
		{http.MethodGet, "/products/999", http.StatusNotFound},
		{http.MethodPost, "/add-to-cart/999", http.StatusNotFound},
		{http.MethodPost, "/cart/remove/-1", http.StatusBadRequest},
		{http.MethodDelete, "/cart", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, _ := h.do(tt.method, tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestUpstreamFailureRendersOpaquePage(t *testing.T) {
	healthy := false
	h := newHarness(t, &healthy)

	resp, body := h.do(http.MethodGet, "/")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if strings.Contains(body, "Product") || strings.Contains(body, "status 503") {
		t.Fatal("failure page must not contain partial data or upstream details")
	}
}

func TestMissingCatalogRoutesAreUpstreamFailures(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(api.Close)
	h := newHarnessFor(t, api)

	for _, path := range []string{"/", "/category/electronics"} {
		t.Run(path, func(t *testing.T) {
			resp, body := h.do(http.MethodGet, path)
			if resp.StatusCode != http.StatusBadGateway {
				t.Fatalf("expected 502, got %d", resp.StatusCode)
			}
			if !strings.Contains(body, "trouble loading products") {
				t.Fatal("expected the catalog unavailable page")
			}
		})
	}
}

func TestHandlerTimeoutStaysUnderWriteTimeout(t *testing.T) {
	tests := map[time.Duration]time.Duration{
		30 * time.Second: 29 * time.Second,
		5 * time.Second:  4500 * time.Millisecond,
		time.Second:      900 * time.Millisecond,
	}
	for write, want := range tests {
		if got := handlerTimeout(write); got != want {
			t.Errorf("handlerTimeout(%v) = %v, want %v", write, got, want)
		}
	}
}

func TestSlowCatalogTimesOutBeforeWriteDeadline(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(api.Close)

	cfg := config.Default()
	cfg.Server.WriteTimeoutSeconds = 1
	store := memory.NewCartStore(time.Hour, clock.NewRealClock())
	s, err := NewServer(cfg, catalogapi.NewClientWithHTTP(api.URL, api.Client()), store, nil, logger.FromZap(zap.NewNop()))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "Request timeout") {
		t.Fatalf("expected timeout page, got %d %q", resp.StatusCode, body)
	}
}

func TestConcurrentAddsFromOneSession(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.do(http.MethodPost, "/add-to-cart/9")
		}()
	}
	wg.Wait()

	_, body := h.do(http.MethodGet, "/cart")
	if !strings.Contains(body, cartCount(n)) {
		t.Fatalf("expected cart count %d after concurrent adds", n)
	}
	if strings.Count(body, `data-product-id="9"`) != 1 {
		t.Fatal("concurrent adds must keep a single line")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(http.MethodGet, "/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"session_store":"UP"`) {
		t.Fatalf("unexpected health response: %d %s", resp.StatusCode, body)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatal("health checks should not get a session cookie")
	}

	resp, body = h.do(http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("unexpected metrics response: %d", resp.StatusCode)
	}
}
