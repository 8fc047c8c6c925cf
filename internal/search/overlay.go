// Package search drives the product search overlay for one visitor.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
)

// Suggester runs predictive searches.
type Suggester interface {
	Suggest(ctx context.Context, q string) (*domain.Suggestions, error)
}

// State is the overlay as the page should reflect it. Results is nil when the
// result area is blank.
type State struct {
	Open       bool               `json:"open"`
	BodyLocked bool               `json:"body_locked"`
	FocusInput bool               `json:"focus_input"`
	Query      string             `json:"query"`
	Results    *render.SearchView `json:"results,omitempty"`
}

// Overlay holds the search overlay state. Safe for concurrent use.
type Overlay struct {
	suggester Suggester
	cache     Cache
	renderer  *render.Renderer
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu      sync.Mutex
	open    bool
	query   string
	results *render.SearchView
	// seq increases with every query and every close; a response is only
	// applied if no newer query or close happened while it was in flight.
	seq uint64
}

// NewOverlay creates a closed overlay. A nil cache disables caching and a nil
// limiter disables rate limiting.
func NewOverlay(suggester Suggester, cache Cache, renderer *render.Renderer, limiter *rate.Limiter, logger *slog.Logger) *Overlay {
	if cache == nil {
		cache = NopCache{}
	}
	return &Overlay{
		suggester: suggester,
		cache:     cache,
		renderer:  renderer,
		limiter:   limiter,
		logger:    logger,
	}
}

// Open shows the overlay and focuses the input.
func (o *Overlay) Open() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = true
}

// Close hides the overlay and clears the input and the results.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.query = ""
	o.results = nil
	o.seq++
}

// Escape closes an open overlay. It reports whether anything changed.
func (o *Overlay) Escape() bool {
	o.mu.Lock()
	open := o.open
	o.mu.Unlock()
	if !open {
		return false
	}
	o.Close()
	return true
}

// IsOpen reports whether the overlay is open.
func (o *Overlay) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

// State returns the current page state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Open:       o.open,
		BodyLocked: o.open,
		FocusInput: o.open,
		Query:      o.query,
		Results:    o.results,
	}
}

// Search runs q. A trimmed query shorter than domain.MinQueryLength clears the
// results without any request. A failed lookup is logged and leaves the
// previous results in place. Only rate limiting is reported as an error.
func (o *Overlay) Search(ctx context.Context, q string) error {
	q = strings.TrimSpace(q)

	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.query = q
	if utf8.RuneCountInString(q) < domain.MinQueryLength {
		o.results = nil
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	if o.limiter != nil && !o.limiter.Allow() {
		return apperrors.TooManyRequests("search rate limit exceeded")
	}

	log := logger.WithContext(ctx, o.logger)
	key := cacheKey(q)

	suggestions, err := o.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		}
		suggestions, err = o.suggester.Suggest(ctx, q)
		if err != nil {
			log.ErrorContext(ctx, "search failed",
				slog.String("query", q),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if err := o.cache.Set(ctx, key, suggestions); err != nil {
			log.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
		}
	}

	view := o.renderer.Search(q, suggestions)

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		log.DebugContext(ctx, "discarding stale search results", slog.String("query", q))
		return nil
	}
	o.results = &view
	return nil
}

func cacheKey(q string) string {
	return strings.ToLower(q)
}
