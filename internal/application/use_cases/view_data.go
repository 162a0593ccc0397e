package use_cases

import (
	"github.com/yuzvak/storefront-service/internal/domain/cart"
	"github.com/yuzvak/storefront-service/internal/domain/catalog"
)

// ViewData is the data bag handed to the view renderer.
type ViewData struct {
	Title          string
	Products       []catalog.Product
	Product        *catalog.Product
	Related        []catalog.Product
	Categories     []string
	ActiveCategory string
	Cart           *cart.Cart
	CartCount      int
}

func newViewData(title string, c *cart.Cart) *ViewData {
	if c == nil {
		c = cart.New()
	}
	return &ViewData{
		Title:     title,
		Cart:      c,
		CartCount: c.Count(),
	}
}
