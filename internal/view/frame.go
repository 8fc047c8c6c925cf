package view

import (
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/navigation"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search"
)

// Frame is everything the page needs to reconcile itself after a command.
type Frame struct {
	Badge      render.Badge     `json:"badge"`
	Total      string           `json:"total,omitempty"`
	Drawer     DrawerState      `json:"drawer"`
	Menu       navigation.State `json:"menu"`
	Search     search.State     `json:"search"`
	Notices    []string         `json:"notices,omitempty"`
	BodyLocked bool             `json:"body_locked"`
	Busy       bool             `json:"busy"`
	Submit     *SubmitState     `json:"submit,omitempty"`
}

// Widgets groups one visitor's widget state.
type Widgets struct {
	Drawer *Drawer
	Menu   *navigation.Menu
	Search *search.Overlay
}

// Frame folds the widgets into a frame. Pending notices are drained. The
// body stays locked while any panel is open.
func (w Widgets) Frame(busy bool) Frame {
	drawer, notices := w.Drawer.snapshot()
	menu := w.Menu.State()
	overlay := w.Search.State()

	f := Frame{
		Badge:      render.CartBadge(0),
		Drawer:     drawer,
		Menu:       menu,
		Search:     overlay,
		Notices:    notices,
		BodyLocked: drawer.Visible || menu.BodyLocked || overlay.BodyLocked,
		Busy:       busy,
	}
	if drawer.Cart != nil {
		f.Badge = drawer.Cart.Badge
		f.Total = drawer.Cart.Total
	}
	return f
}
