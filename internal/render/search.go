package render

import (
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/money"
)

// NoResultsMessage is shown when a search returns no product.
const NoResultsMessage = "Aucun resultat"

// SearchThumbnailSize is the CDN size used for result images.
const SearchThumbnailSize = "80x80"

// SearchView is the rendered result list of the search overlay. A zero view
// means nothing to show (no query yet, or a query too short to run).
type SearchView struct {
	Query     string      `json:"query"`
	Products  []SearchRow `json:"products"`
	NoResults bool        `json:"no_results"`
	Message   string      `json:"message,omitempty"`
}

// SearchRow is one product hit.
type SearchRow struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url,omitempty"`
	Price    string `json:"price"`
}

// Search renders at most domain.MaxProductResults hits for q.
func (r *Renderer) Search(q string, s *domain.Suggestions) SearchView {
	view := SearchView{Query: q, Products: []SearchRow{}}
	if s == nil || len(s.Products) == 0 {
		view.NoResults = true
		view.Message = NoResultsMessage
		return view
	}

	products := s.Products
	if len(products) > domain.MaxProductResults {
		products = products[:domain.MaxProductResults]
	}
	for _, p := range products {
		row := SearchRow{Title: p.Title, URL: p.URL}
		if p.ImageURL != "" {
			row.ImageURL = Thumbnail(p.ImageURL, SearchThumbnailSize)
		}
		row.Price = r.searchPrice(p.Price)
		view.Products = append(view.Products, row)
	}
	return view
}

// searchPrice formats a suggestion price given in major units. A price that is
// not a number is shown as the service sent it.
func (r *Renderer) searchPrice(raw string) string {
	if raw == "" {
		return ""
	}
	cents, ok := money.ParseAmount(raw)
	if !ok {
		return raw
	}
	return r.money.Format(cents)
}
