package render

import (
	"regexp"
	"strconv"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/money"
)

// Storefront copy shown by the cart panel.
const (
	EmptyCartMessage  = "Votre panier est vide"
	ContinueLabel     = "Continuer les achats"
	ContinueURL       = "/collections/all"
	CheckoutLabel     = "Process checkout"
	DefaultCheckout   = "/checkout"
	CartThumbnailSize = "120x120"
)

// CartView is everything the panel displays for one snapshot.
type CartView struct {
	ItemCount int         `json:"item_count"`
	Badge     Badge       `json:"badge"`
	Total     string      `json:"total"`
	Empty     *EmptyState `json:"empty,omitempty"`
	Lines     []LineRow   `json:"lines"`
}

// Badge is the item counter shown on every cart icon.
type Badge struct {
	Text   string `json:"text"`
	Hidden bool   `json:"hidden"`
}

// EmptyState replaces the line list when the cart holds nothing.
type EmptyState struct {
	Message       string `json:"message"`
	ContinueURL   string `json:"continue_url"`
	ContinueLabel string `json:"continue_label"`
	CheckoutURL   string `json:"checkout_url"`
	CheckoutLabel string `json:"checkout_label"`
}

// LineRow is one rendered cart line. Key binds the decrease, increase,
// quantity input and remove controls.
type LineRow struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ImageURL     string `json:"image_url,omitempty"`
	ImageAlt     string `json:"image_alt"`
	VariantLabel string `json:"variant_label,omitempty"`
	Price        string `json:"price"`
	Quantity     int    `json:"quantity"`
}

// Renderer maps snapshots to views. It holds no mutable state and is safe for
// concurrent use.
type Renderer struct {
	money       money.Formatter
	checkoutURL string
}

// NewRenderer returns a Renderer using moneyFormat for prices. An empty
// checkoutURL falls back to DefaultCheckout.
func NewRenderer(moneyFormat, checkoutURL string) *Renderer {
	if checkoutURL == "" {
		checkoutURL = DefaultCheckout
	}
	return &Renderer{money: money.NewFormatter(moneyFormat), checkoutURL: checkoutURL}
}

// Cart renders snap. A nil snapshot renders as an empty cart.
func (r *Renderer) Cart(snap *domain.CartSnapshot) CartView {
	if snap == nil {
		snap = &domain.CartSnapshot{}
	}

	view := CartView{
		ItemCount: snap.ItemCount,
		Badge:     CartBadge(snap.ItemCount),
		Total:     r.money.Format(snap.TotalPrice),
		Lines:     []LineRow{},
	}

	if snap.IsEmpty() {
		view.Empty = &EmptyState{
			Message:       EmptyCartMessage,
			ContinueURL:   ContinueURL,
			ContinueLabel: ContinueLabel,
			CheckoutURL:   r.checkoutURL,
			CheckoutLabel: CheckoutLabel,
		}
		return view
	}

	view.Lines = make([]LineRow, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		row := LineRow{
			Key:      line.Key,
			Title:    line.ProductTitle,
			URL:      line.URL,
			ImageAlt: line.DisplayTitle(),
			Price:    r.money.Format(line.FinalLinePrice),
			Quantity: line.Quantity,
		}
		if row.Title == "" {
			row.Title = line.Title
		}
		if line.ImageURL != "" {
			row.ImageURL = Thumbnail(line.ImageURL, CartThumbnailSize)
		}
		if line.HasVariant() {
			row.VariantLabel = line.VariantTitle
		}
		view.Lines = append(view.Lines, row)
	}
	return view
}

// CartBadge renders the counter. Zero hides it.
func CartBadge(count int) Badge {
	if count <= 0 {
		return Badge{Hidden: true}
	}
	return Badge{Text: strconv.Itoa(count)}
}

// thumbExt matches the final file extension of an asset URL and any query
// string after it, without crossing a path separator.
var thumbExt = regexp.MustCompile(`(\.[^./?#]+)((?:[?#][^/]*)?)$`)

// Thumbnail inserts a CDN size suffix before the file extension:
// "tee.jpg?v=1" becomes "tee_120x120.jpg?v=1". URLs without an extension are
// returned unchanged.
func Thumbnail(assetURL, size string) string {
	return thumbExt.ReplaceAllString(assetURL, "_"+size+"${1}${2}")
}
