// Package view keeps the page-facing state of a visitor's widgets and folds it
// into the frame returned to the browser after every command.
package view

import (
	"sync"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
)

// Drawer is the cart side panel. It implements engine.Shell.
type Drawer struct {
	mu       sync.Mutex
	view     *render.CartView
	visible  bool
	focus    bool
	updating bool
	notices  []string
}

var _ engine.Shell = (*Drawer)(nil)

// NewDrawer returns a hidden drawer that has rendered nothing yet.
func NewDrawer() *Drawer {
	return &Drawer{}
}

func (d *Drawer) Render(v render.CartView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = &v
}

func (d *Drawer) ShowPanel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = true
	d.focus = true
}

func (d *Drawer) HidePanel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = false
	d.focus = false
}

func (d *Drawer) SetUpdating(updating bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updating = updating
}

func (d *Drawer) Notify(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, message)
}

// View returns the last rendered cart view, or nil.
func (d *Drawer) View() *render.CartView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// DrawerState is the drawer part of a frame.
type DrawerState struct {
	Visible    bool             `json:"visible"`
	FocusClose bool             `json:"focus_close"`
	Updating   bool             `json:"updating"`
	Cart       *render.CartView `json:"cart,omitempty"`
}

// snapshot returns the drawer state and drains pending notices. The focus
// request is one-shot as well.
func (d *Drawer) snapshot() (DrawerState, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := DrawerState{
		Visible:    d.visible,
		FocusClose: d.focus,
		Updating:   d.updating,
		Cart:       d.view,
	}
	notices := d.notices
	d.notices = nil
	d.focus = false
	return st, notices
}

// SubmitButton is the add-to-cart control of one request. It implements
// engine.Submitter.
type SubmitButton struct {
	mu       sync.Mutex
	disabled bool
	label    string
	restored bool
}

var _ engine.Submitter = (*SubmitButton)(nil)

func (b *SubmitButton) Disable(pendingLabel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = true
	b.label = pendingLabel
}

func (b *SubmitButton) Restore() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = false
	b.label = ""
	b.restored = true
}

// SubmitState is the control's state as last set.
type SubmitState struct {
	Disabled bool   `json:"disabled"`
	Label    string `json:"label,omitempty"`
	Restored bool   `json:"restored"`
}

// State returns the control's state.
func (b *SubmitButton) State() SubmitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return SubmitState{Disabled: b.disabled, Label: b.label, Restored: b.restored}
}
