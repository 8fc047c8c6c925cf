// Package navigation holds the mobile navigation panel state for a visitor.
package navigation

import "sync"

// DesktopBreakpoint is the viewport width at which the mobile panel no longer
// applies. Resizing to this width or wider closes it.
const DesktopBreakpoint = 768

// Focus names the control that should receive focus after a transition.
type Focus string

const (
	FocusNone      Focus = ""
	FocusFirstLink Focus = "first_link"
	FocusToggle    Focus = "toggle"
)

// State is the menu as the page should reflect it.
type State struct {
	Open           bool   `json:"open"`
	AriaExpanded   string `json:"aria_expanded"`
	OverlayVisible bool   `json:"overlay_visible"`
	BodyLocked     bool   `json:"body_locked"`
	Focus          Focus  `json:"focus,omitempty"`
}

// Menu is the navigation panel. Safe for concurrent use.
type Menu struct {
	mu    sync.Mutex
	open  bool
	focus Focus
}

// NewMenu returns a closed menu.
func NewMenu() *Menu {
	return &Menu{}
}

// Open shows the panel and moves focus to its first link.
func (m *Menu) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	m.focus = FocusFirstLink
}

// Close hides the panel and returns focus to the toggle.
func (m *Menu) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.focus = FocusToggle
}

// Toggle flips the panel.
func (m *Menu) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = !m.open
	if m.open {
		m.focus = FocusFirstLink
	} else {
		m.focus = FocusToggle
	}
}

// Escape closes an open panel. It reports whether anything changed.
func (m *Menu) Escape() bool {
	return m.closeIf(func() bool { return true })
}

// Resize closes an open panel once the viewport reaches the desktop
// breakpoint. It reports whether anything changed.
func (m *Menu) Resize(width int) bool {
	return m.closeIf(func() bool { return width >= DesktopBreakpoint })
}

func (m *Menu) closeIf(cond func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || !cond() {
		return false
	}
	m.open = false
	m.focus = FocusToggle
	return true
}

// IsOpen reports whether the panel is open.
func (m *Menu) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// State returns the current page state.
func (m *Menu) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	aria := "false"
	if m.open {
		aria = "true"
	}
	return State{
		Open:           m.open,
		AriaExpanded:   aria,
		OverlayVisible: m.open,
		BodyLocked:     m.open,
		Focus:          m.focus,
	}
}
