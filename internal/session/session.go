// Package session keeps one widget session per visitor, keyed by a cookie.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/view"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httputil"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
)

// CookieName is the visitor session cookie.
const CookieName = "sahq_session"

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_sessions_active",
	Help: "Number of live visitor sessions.",
})

// Session is one visitor's widgets and cart engine.
type Session struct {
	ID      string
	Engine  *engine.Engine
	Widgets view.Widgets
}

// Frame returns the visitor's current view frame.
func (s *Session) Frame() view.Frame {
	return s.Widgets.Frame(s.Engine.Busy())
}

// Factory builds a fresh session for id.
type Factory func(id string) (*Session, error)

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry maps session IDs to sessions and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	ttl      time.Duration
	nowFunc  func() time.Time // injectable clock for testing
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. Sessions unused for ttl are evicted
// by Run.
func NewRegistry(factory Factory, ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		nowFunc:  time.Now,
		logger:   logger,
	}
}

// Get returns the session for id, creating one when id is empty or unknown.
// The boolean reports whether a new session was created, in which case the
// returned session carries a fresh ID.
func (r *Registry) Get(id string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok && id != "" {
		e.lastSeen = r.nowFunc()
		return e.session, false, nil
	}

	newID := uuid.NewString()
	s, err := r.factory(newID)
	if err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	r.sessions[newID] = &entry{session: s, lastSeen: r.nowFunc()}
	activeSessions.Set(float64(len(r.sessions)))
	return s, true, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run evicts idle sessions every ttl until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

// cleanup evicts every session whose lastSeen is older than the TTL.
func (r *Registry) cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	evicted := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.sessions, id)
			evicted++
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	if evicted > 0 {
		r.logger.Debug("evicted idle sessions", slog.Int("count", evicted))
	}
	return evicted
}

type contextKey struct{}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Middleware resolves the visitor's session from the cookie and stores the
// session and its ID in the context. The cookie is reissued on every request
// so it expires together with the idle session.
func (r *Registry) Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var id string
			if c, err := req.Cookie(CookieName); err == nil {
				id = c.Value
			}

			s, created, err := r.Get(id)
			if err != nil {
				httputil.WriteError(w, req, err, r.logger)
				return
			}
			if created && id != "" {
				r.logger.DebugContext(req.Context(), "unknown session cookie, starting a new session")
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    s.ID,
				Path:     "/",
				MaxAge:   int(r.ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := logger.WithSessionID(req.Context(), s.ID)
			ctx = context.WithValue(ctx, contextKey{}, s)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
