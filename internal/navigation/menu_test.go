package navigation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMenu_StartsClosed(t *testing.T) {
	st := NewMenu().State()
	assert.False(t, st.Open)
	assert.Equal(t, "false", st.AriaExpanded)
	assert.False(t, st.BodyLocked)
	assert.Equal(t, FocusNone, st.Focus)
}

func TestMenu_OpenClose(t *testing.T) {
	m := NewMenu()

	m.Open()
	st := m.State()
	assert.True(t, st.Open)
	assert.Equal(t, "true", st.AriaExpanded)
	assert.True(t, st.OverlayVisible)
	assert.True(t, st.BodyLocked)
	assert.Equal(t, FocusFirstLink, st.Focus)

	m.Close()
	st = m.State()
	assert.False(t, st.Open)
	assert.Equal(t, "false", st.AriaExpanded)
	assert.False(t, st.BodyLocked)
	assert.Equal(t, FocusToggle, st.Focus)
}

func TestMenu_Toggle(t *testing.T) {
	m := NewMenu()
	m.Toggle()
	assert.True(t, m.IsOpen())
	m.Toggle()
	assert.False(t, m.IsOpen())
}

func TestMenu_Escape(t *testing.T) {
	m := NewMenu()
	assert.False(t, m.Escape(), "closed menu ignores escape")

	m.Open()
	assert.True(t, m.Escape())
	assert.False(t, m.IsOpen())
}

func TestMenu_Resize(t *testing.T) {
	tests := []struct {
		width  int
		closes bool
	}{
		{width: 375, closes: false},
		{width: 767, closes: false},
		{width: 768, closes: true},
		{width: 1440, closes: true},
	}

	for _, tt := range tests {
		m := NewMenu()
		m.Open()
		assert.Equal(t, tt.closes, m.Resize(tt.width), "width %d", tt.width)
		assert.Equal(t, !tt.closes, m.IsOpen(), "width %d", tt.width)
	}
}

func TestMenu_ResizeWhenClosed(t *testing.T) {
	m := NewMenu()
	assert.False(t, m.Resize(1024))
	assert.Equal(t, FocusNone, m.State().Focus)
}

func TestMenu_ConcurrentToggle(t *testing.T) {
	m := NewMenu()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Toggle()
			_ = m.State()
		}()
	}
	wg.Wait()

	st := m.State()
	assert.False(t, st.Open, "an even number of toggles leaves it closed")
	assert.Equal(t, "false", st.AriaExpanded)
}
