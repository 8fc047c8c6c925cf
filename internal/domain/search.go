package domain

// Suggestions is the subset of the predictive search response the widget
// uses.
type Suggestions struct {
	Products []ProductSuggestion `json:"products"`
}

// ProductSuggestion is one product hit.
type ProductSuggestion struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Price    string `json:"price"`
	ImageURL string `json:"image"`
}

// MinQueryLength is the shortest trimmed query, in characters, that triggers a
// search.
const MinQueryLength = 2

// MaxProductResults caps how many product hits are displayed.
const MaxProductResults = 6
