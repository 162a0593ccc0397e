package ports

import (
	"context"

	"github.com/yuzvak/storefront-service/internal/domain/catalog"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id int) (*catalog.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}
