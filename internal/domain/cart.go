package domain

import "fmt"

// CartSnapshot is the cart as last confirmed by the remote service. A
// snapshot is never modified after it is built; the engine replaces it whole.
type CartSnapshot struct {
	ItemCount  int        `json:"item_count"`
	TotalPrice int64      `json:"total_price"`
	Lines      []CartLine `json:"items"`
}

// CartLine is one distinct purchasable entry in the cart.
type CartLine struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	ProductTitle   string `json:"product_title"`
	VariantTitle   string `json:"variant_title"`
	Quantity       int    `json:"quantity"`
	FinalLinePrice int64  `json:"final_line_price"`
	URL            string `json:"url"`
	ImageURL       string `json:"image"`
}

// Validate checks the invariants the remote service must honour. A snapshot
// that fails is treated like an unparsable response.
func (s *CartSnapshot) Validate() error {
	if s.ItemCount < 0 {
		return fmt.Errorf("item_count is negative: %d", s.ItemCount)
	}
	if s.TotalPrice < 0 {
		return fmt.Errorf("total_price is negative: %d", s.TotalPrice)
	}

	seen := make(map[string]struct{}, len(s.Lines))
	sum := 0
	for i, line := range s.Lines {
		if line.Key == "" {
			return fmt.Errorf("line %d has no key", i)
		}
		if _, dup := seen[line.Key]; dup {
			return fmt.Errorf("duplicate line key %q", line.Key)
		}
		seen[line.Key] = struct{}{}

		if line.Quantity <= 0 {
			return fmt.Errorf("line %q has non-positive quantity %d", line.Key, line.Quantity)
		}
		if line.FinalLinePrice < 0 {
			return fmt.Errorf("line %q has negative price %d", line.Key, line.FinalLinePrice)
		}
		sum += line.Quantity
	}

	if sum != s.ItemCount {
		return fmt.Errorf("item_count %d does not match summed quantities %d", s.ItemCount, sum)
	}
	return nil
}

// IsEmpty reports whether the cart holds no units.
func (s *CartSnapshot) IsEmpty() bool {
	return s.ItemCount == 0
}

// FindLine returns the line with the given key.
func (s *CartSnapshot) FindLine(key string) (CartLine, bool) {
	for _, line := range s.Lines {
		if line.Key == key {
			return line, true
		}
	}
	return CartLine{}, false
}

// DisplayTitle is the line title, falling back to the product title.
func (l CartLine) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return l.ProductTitle
}

// HasVariant reports whether the variant label is worth showing. The remote
// service reports "Default Title" for products without options.
func (l CartLine) HasVariant() bool {
	return l.VariantTitle != "" && l.VariantTitle != DefaultVariantTitle
}

// DefaultVariantTitle is the placeholder variant name for single-variant
// products.
const DefaultVariantTitle = "Default Title"
