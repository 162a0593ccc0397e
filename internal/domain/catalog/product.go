package catalog

// Product is a catalog record as served by the upstream API. Only ID and
// Category carry meaning here; the rest is passed through to the views.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Without returns the products whose ID differs from id, preserving order.
func Without(products []Product, id int) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
