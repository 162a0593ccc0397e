package cart

import (
	"fmt"

	"github.com/yuzvak/storefront-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
)

// Line is one product snapshot plus the quantity held in the cart.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l Line) Total() float64 {
	return l.Product.Price * float64(l.Quantity)
}

// Cart is the ordered set of lines for one session. There is at most one line
// per product ID and every line has a quantity of at least one.
type Cart struct {
	Lines []Line `json:"lines"`
}

func New() *Cart {
	return &Cart{Lines: []Line{}}
}

func (c *Cart) indexOf(productID int) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// AddItem bumps the quantity of an existing line, keeping its original
// snapshot, or appends a new line with quantity one.
func (c *Cart) AddItem(p catalog.Product) {
	if i := c.indexOf(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, Line{Product: p, Quantity: 1})
}

func (c *Cart) IncreaseItem(productID int) {
	if i := c.indexOf(productID); i >= 0 {
		c.Lines[i].Quantity++
	}
}

// DecreaseItem drops the line once its quantity would reach zero.
func (c *Cart) DecreaseItem(productID int) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	if c.Lines[i].Quantity > 1 {
		c.Lines[i].Quantity--
		return
	}
	c.removeAt(i)
}

func (c *Cart) RemoveItem(productID int) {
	if i := c.indexOf(productID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// Count is the total number of units. A nil cart counts as empty.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) Subtotal() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, l := range c.Lines {
		total += l.Total()
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

func (c *Cart) Line(productID int) (Line, bool) {
	if c == nil {
		return Line{}, false
	}
	if i := c.indexOf(productID); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return New()
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{Lines: lines}
}

// Validate checks the uniqueness and positive-quantity invariants. Stores call
// it on decoded state and before persisting a mutation.
func (c *Cart) Validate() error {
	seen := make(map[int]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("%w: product %d has quantity %d", domainErrors.ErrCartInvariant, l.Product.ID, l.Quantity)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return fmt.Errorf("%w: duplicate line for product %d", domainErrors.ErrCartInvariant, l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
	}
	return nil
}
