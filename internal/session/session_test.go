package session

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/navigation"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/view"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFactory(id string) (*Session, error) {
	r := render.NewRenderer("", "")
	drawer := view.NewDrawer()
	return &Session{
		ID:     id,
		Engine: engine.New(nil, r, drawer, engine.Config{}, testLogger()),
		Widgets: view.Widgets{
			Drawer: drawer,
			Menu:   navigation.NewMenu(),
			Search: search.NewOverlay(nil, nil, r, nil, testLogger()),
		},
	}, nil
}

// fakeClock is a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_GetCreatesThenReuses(t *testing.T) {
	reg := NewRegistry(testFactory, time.Minute, testLogger())

	s, created, err := reg.Get("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_UnknownIDGetsFreshSession(t *testing.T) {
	reg := NewRegistry(testFactory, time.Minute, testLogger())

	s, created, err := reg.Get("forged-or-expired")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "forged-or-expired", s.ID)
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := NewRegistry(func(string) (*Session, error) {
		return nil, errors.New("no jar")
	}, time.Minute, testLogger())

	_, _, err := reg.Get("")
	assert.ErrorContains(t, err, "no jar")
	assert.Zero(t, reg.Len())
}

func TestRegistry_CleanupEvictsIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(testFactory, 10*time.Minute, testLogger())
	reg.nowFunc = clock.Now

	idle, _, _ := reg.Get("")
	clock.Advance(8 * time.Minute)
	active, _, _ := reg.Get("")
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, reg.cleanup())
	assert.Equal(t, 1, reg.Len())

	_, created, _ := reg.Get(idle.ID)
	assert.True(t, created, "evicted session is recreated")
	got, created, _ := reg.Get(active.ID)
	assert.False(t, created)
	assert.Same(t, active, got)
}

func TestRegistry_GetRefreshesLastSeen(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(testFactory, 10*time.Minute, testLogger())
	reg.nowFunc = clock.Now

	s, _, _ := reg.Get("")
	for i := 0; i < 3; i++ {
		clock.Advance(6 * time.Minute)
		_, _, _ = reg.Get(s.ID)
		assert.Zero(t, reg.cleanup())
	}
}

func TestMiddleware_IssuesCookieAndStoresSession(t *testing.T) {
	reg := NewRegistry(testFactory, 30*time.Minute, testLogger())

	var seen *Session
	var seenID string
	h := reg.Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		seenID = logger.SessionIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widget/state", nil))

	require.NotNil(t, seen)
	assert.Equal(t, seen.ID, seenID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, seen.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 1800, cookies[0].MaxAge)

	// Returning visitor keeps the session; the cookie is refreshed.
	req := httptest.NewRequest(http.MethodGet, "/widget/state", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	first := seen
	h.ServeHTTP(rec, req)

	assert.Same(t, first, seen)
	refreshed := rec.Result().Cookies()
	require.Len(t, refreshed, 1)
	assert.Equal(t, first.ID, refreshed[0].Value)
}

func TestMiddleware_FactoryFailure(t *testing.T) {
	reg := NewRegistry(func(string) (*Session, error) {
		return nil, errors.New("boom")
	}, time.Minute, testLogger())

	called := false
	h := reg.Middleware(false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSession_Frame(t *testing.T) {
	s, err := testFactory("x")
	require.NoError(t, err)
	f := s.Frame()
	assert.False(t, f.Busy)
	assert.True(t, f.Badge.Hidden)
}
