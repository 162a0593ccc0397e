package use_cases

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
	"github.com/yuzvak/storefront-service/internal/pkg/sampler"
)

const DefaultRelatedCount = 12

// StorefrontUseCase assembles the read-only pages. Catalog fetches that a
// page needs together run concurrently and the first failure cancels the rest.
type StorefrontUseCase struct {
	catalog      ports.Catalog
	carts        ports.CartStore
	random       sampler.Source
	log          *logger.Logger
	relatedCount int
}

func NewStorefrontUseCase(
	catalog ports.Catalog,
	carts ports.CartStore,
	random sampler.Source,
	log *logger.Logger,
	relatedCount int,
) *StorefrontUseCase {
	if random == nil {
		random = sampler.Default
	}
	if relatedCount < 0 {
		relatedCount = DefaultRelatedCount
	}
	return &StorefrontUseCase{
		catalog:      catalog,
		carts:        carts,
		random:       random,
		log:          log,
		relatedCount: relatedCount,
	}
}

func (uc *StorefrontUseCase) loadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	if sessionID == "" {
		return cart.New(), nil
	}
	c, err := uc.carts.Load(ctx, sessionID)
	if err != nil {
		uc.log.Error("Failed to load cart", "error", err, "session_id", sessionID)
		return nil, err
	}
	return c, nil
}

func (uc *StorefrontUseCase) HomePage(ctx context.Context, sessionID string) (*ViewData, error) {
	return uc.listingPage(ctx, sessionID, "")
}

func (uc *StorefrontUseCase) CategoryPage(ctx context.Context, sessionID, category string) (*ViewData, error) {
	return uc.listingPage(ctx, sessionID, category)
}

func (uc *StorefrontUseCase) listingPage(ctx context.Context, sessionID, category string) (*ViewData, error) {
	var (
		products   []catalog.Product
		categories []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if category == "" {
			products, err = uc.catalog.ListProducts(gctx)
		} else {
			products, err = uc.catalog.ListProductsByCategory(gctx, category)
		}
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = uc.catalog.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		uc.log.Error("Failed to fetch listing", "error", err, "category", category)
		return nil, err
	}

	c, err := uc.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	title := "Home"
	if category != "" {
		title = category
	}
	data := newViewData(title, c)
	data.Products = products
	data.Categories = categories
	data.ActiveCategory = category
	return data, nil
}

// ProductPage fetches the product and the full listing together, then samples
// the related products from everything except the product itself.
func (uc *StorefrontUseCase) ProductPage(ctx context.Context, sessionID string, productID int) (*ViewData, error) {
	var (
		product    *catalog.Product
		all        []catalog.Product
		categories []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = uc.catalog.GetProduct(gctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = uc.catalog.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = uc.catalog.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		uc.log.Error("Failed to fetch product page", "error", err, "product_id", productID)
		return nil, err
	}

	c, err := uc.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data := newViewData(product.Title, c)
	data.Product = product
	data.Related = sampler.Pick(uc.random, catalog.Without(all, product.ID), uc.relatedCount)
	data.Categories = categories
	data.ActiveCategory = product.Category
	return data, nil
}

func (uc *StorefrontUseCase) CartPage(ctx context.Context, sessionID string) (*ViewData, error) {
	return uc.cartView(ctx, sessionID, "Cart")
}

func (uc *StorefrontUseCase) CheckoutPage(ctx context.Context, sessionID string) (*ViewData, error) {
	return uc.cartView(ctx, sessionID, "Checkout")
}

func (uc *StorefrontUseCase) ThankYouPage(ctx context.Context, sessionID string) (*ViewData, error) {
	return uc.cartView(ctx, sessionID, "Thank you")
}

func (uc *StorefrontUseCase) cartView(ctx context.Context, sessionID, title string) (*ViewData, error) {
	c, err := uc.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newViewData(title, c), nil
}
