package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	"github.com/yuzvak/storefront-service/internal/domain/errors"
	"github.com/yuzvak/storefront-service/internal/infrastructure/monitoring"
)

// Client reads products and categories from a Fake Store style REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.CatalogConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClientWithHTTP(cfg.BaseURL, &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

func NewClientWithHTTP(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	err := c.getJSON(ctx, "list_products", "/products", &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	var products []catalog.Product
	err := c.getJSON(ctx, "list_by_category", "/products/category/"+url.PathEscape(category), &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct treats a 404 and the API's empty 200 response for unknown ids the
// same way: ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, id int) (*catalog.Product, error) {
	if id <= 0 {
		return nil, errors.ErrInvalidProductID
	}

	var product *catalog.Product
	err := c.getJSON(ctx, "get_product", "/products/"+strconv.Itoa(id), &product)
	var status *statusError
	if stderrors.As(err, &status) && status.code == http.StatusNotFound {
		return nil, errors.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if product == nil || product.ID == 0 {
		return nil, errors.ErrProductNotFound
	}
	return product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.getJSON(ctx, "list_categories", "/products/categories", &categories)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// statusError is a non-200 upstream reply. It is a catalog outage unless the
// caller knows better for its endpoint.
type statusError struct {
	path string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %s returned status %d", errors.ErrCatalogUnavailable, e.path, e.code)
}

func (e *statusError) Unwrap() error {
	return errors.ErrCatalogUnavailable
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) (err error) {
	done := monitoring.TimeCatalogRequest(op)
	defer func() { done(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", errors.ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", errors.ErrCatalogUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{path: path, code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errors.ErrCatalogUnavailable, path, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("null")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", errors.ErrCatalogUnavailable, path, err)
	}
	return nil
}
