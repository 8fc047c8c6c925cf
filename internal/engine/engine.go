// Package engine keeps one visitor's cart panel in step with the remote cart.
//
// The engine holds the last server-confirmed snapshot and lets at most one
// mutating round trip be in flight. A mutation attempted while another is
// outstanding is dropped, not queued. Every successful mutation is followed
// by a fresh fetch; the engine never edits a snapshot locally.
package engine

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine")

// CartClient is the remote cart as the engine sees it.
type CartClient interface {
	FetchCart(ctx context.Context) (*domain.CartSnapshot, error)
	AddItem(ctx context.Context, payload url.Values) error
	ChangeLineQuantity(ctx context.Context, key string, quantity int) error
}

// Config tunes engine behaviour.
type Config struct {
	// MutationTimeout bounds each mutation, refresh included. Zero means no
	// deadline beyond the caller's context.
	MutationTimeout time.Duration
	// NotifyChangeFailures makes failed quantity changes show a notice. By
	// default they are only logged.
	NotifyChangeFailures bool
	// Observer, when set, hears about settled mutations and refreshes.
	Observer Observer
}

// Engine is the cart synchronization engine for one visitor.
type Engine struct {
	client   CartClient
	renderer *render.Renderer
	shell    Shell
	cfg      Config
	logger   *slog.Logger

	snapshot  atomic.Pointer[domain.CartSnapshot]
	panelOpen atomic.Bool
	guard     busyGuard

	// publishMu pairs each snapshot swap with its render so the shell never
	// shows a snapshot other than the one held.
	publishMu sync.Mutex
}

// New creates an engine with no snapshot and the panel closed.
func New(client CartClient, renderer *render.Renderer, shell Shell, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		renderer: renderer,
		shell:    shell,
		cfg:      cfg,
		logger:   logger,
	}
}

// Snapshot returns the held snapshot, if any. It must not be modified.
func (e *Engine) Snapshot() (*domain.CartSnapshot, bool) {
	snap := e.snapshot.Load()
	return snap, snap != nil
}

// PanelOpen reports whether the panel is open.
func (e *Engine) PanelOpen() bool {
	return e.panelOpen.Load()
}

// Busy reports whether a mutation is in flight.
func (e *Engine) Busy() bool {
	return e.guard.busy()
}

// OpenPanel opens the panel, refreshes the cart and shows the panel. It is a
// no-op when the panel is already open.
func (e *Engine) OpenPanel(ctx context.Context) {
	if !e.panelOpen.CompareAndSwap(false, true) {
		return
	}
	e.Refresh(ctx)
	// A close that landed during the refresh wins.
	if !e.panelOpen.Load() {
		return
	}
	e.shell.ShowPanel()
}

// ClosePanel closes the panel. Closing a closed panel only repeats the hide.
func (e *Engine) ClosePanel() {
	e.panelOpen.Store(false)
	e.shell.HidePanel()
}

// Refresh fetches the cart and, on success, swaps the snapshot and renders
// it. On failure the held snapshot and the rendered view stay as they were.
//
// Refresh is not guarded. Two overlapping refreshes may complete out of
// order, in which case the older response wins.
func (e *Engine) Refresh(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "engine.refresh")
	snap, err := e.client.FetchCart(ctx)
	tracing.End(span, err)

	if err != nil {
		refreshesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		e.log(ctx).WarnContext(ctx, "cart refresh failed, keeping last snapshot",
			slog.String("error", err.Error()),
		)
		return false
	}

	e.publish(snap)
	refreshesTotal.WithLabelValues(string(OutcomeOK)).Inc()
	if e.cfg.Observer != nil {
		e.cfg.Observer.CartRefreshed(ctx, snap)
	}
	return true
}

func (e *Engine) publish(snap *domain.CartSnapshot) {
	view := e.renderer.Cart(snap)

	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	e.snapshot.Store(snap)
	e.shell.Render(view)
}

// AddItem posts an add-to-cart form. It returns Rejected without issuing any
// request when another mutation is in flight.
//
// While the request runs, sub (if any) is disabled with a pending label. On
// success the cart is refreshed and the panel revealed, even if it was
// already open. On failure the visitor is notified and nothing else changes.
func (e *Engine) AddItem(ctx context.Context, payload url.Values, sub Submitter) Result {
	if !e.guard.tryAcquire() {
		e.rejected(ctx, OpAdd, "")
		return Rejected
	}
	start := time.Now()
	defer e.settle(OpAdd, start)

	if sub != nil {
		sub.Disable(AddPendingLabel)
		defer sub.Restore()
	}

	ctx, cancel := e.mutationContext(ctx)
	defer cancel()
	ctx, span := tracer.Start(ctx, "engine.add")

	err := e.client.AddItem(ctx, payload)
	tracing.End(span, err)
	if err != nil {
		e.log(ctx).ErrorContext(ctx, "add to cart failed", slog.String("error", err.Error()))
		e.shell.Notify(AddFailedMessage)
		e.observe(ctx, Mutation{Op: OpAdd, Outcome: OutcomeFailed, Err: err})
		return Applied
	}

	e.Refresh(ctx)
	e.reveal()
	e.observe(ctx, Mutation{Op: OpAdd, Outcome: OutcomeOK})
	return Applied
}

// reveal opens the panel unconditionally.
func (e *Engine) reveal() {
	e.panelOpen.Store(true)
	e.shell.ShowPanel()
}

// SetLineQuantity sets the quantity of the line identified by key. Negative
// quantities are treated as 0, which asks the remote service to drop the
// line. It returns Rejected without issuing any request when another
// mutation is in flight.
func (e *Engine) SetLineQuantity(ctx context.Context, key string, quantity int) Result {
	return e.setLineQuantity(ctx, OpSet, key, quantity)
}

// IncrementLine adds one unit to the line, based on the held snapshot. An
// unknown key is a no-op and returns Skipped, even while another mutation is
// in flight.
func (e *Engine) IncrementLine(ctx context.Context, key string) Result {
	return e.step(ctx, OpIncrement, key, 1)
}

// DecrementLine removes one unit from the line, never going below 0. The line
// only disappears once the remote service confirms it.
func (e *Engine) DecrementLine(ctx context.Context, key string) Result {
	return e.step(ctx, OpDecrement, key, -1)
}

// RemoveLine sets the line's quantity to 0.
func (e *Engine) RemoveLine(ctx context.Context, key string) Result {
	return e.setLineQuantity(ctx, OpRemove, key, 0)
}

func (e *Engine) step(ctx context.Context, op Op, key string, delta int) Result {
	snap := e.snapshot.Load()
	if snap == nil {
		return Skipped
	}
	line, ok := snap.FindLine(key)
	if !ok {
		e.log(ctx).DebugContext(ctx, "ignoring step for unknown line",
			slog.String("op", string(op)),
			slog.String("key", key),
		)
		return Skipped
	}
	return e.setLineQuantity(ctx, op, key, line.Quantity+delta)
}

func (e *Engine) setLineQuantity(ctx context.Context, op Op, key string, quantity int) Result {
	quantity = domain.ClampQuantity(quantity)

	if !e.guard.tryAcquire() {
		e.rejected(ctx, op, key)
		return Rejected
	}
	start := time.Now()
	defer e.settle(op, start)

	e.shell.SetUpdating(true)
	defer e.shell.SetUpdating(false)

	ctx, cancel := e.mutationContext(ctx)
	defer cancel()
	ctx, span := tracer.Start(ctx, "engine."+string(op))
	span.SetAttributes(attribute.String("cart.line_key", key), attribute.Int("cart.quantity", quantity))

	err := e.client.ChangeLineQuantity(ctx, key, quantity)
	tracing.End(span, err)
	if err != nil {
		e.log(ctx).WarnContext(ctx, "cart quantity change failed",
			slog.String("op", string(op)),
			slog.String("key", key),
			slog.Int("quantity", quantity),
			slog.String("error", err.Error()),
		)
		if e.cfg.NotifyChangeFailures {
			e.shell.Notify(ChangeFailedMessage)
		}
		e.observe(ctx, Mutation{Op: op, Key: key, Quantity: quantity, Outcome: OutcomeFailed, Err: err})
		return Applied
	}

	e.Refresh(ctx)
	e.observe(ctx, Mutation{Op: op, Key: key, Quantity: quantity, Outcome: OutcomeOK})
	return Applied
}

// settle releases the busy guard. It runs on every exit path of a mutation.
func (e *Engine) settle(op Op, start time.Time) {
	mutationDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	e.guard.release()
}

func (e *Engine) rejected(ctx context.Context, op Op, key string) {
	mutationsTotal.WithLabelValues(string(op), string(OutcomeRejected)).Inc()
	e.log(ctx).DebugContext(ctx, "cart busy, mutation dropped",
		slog.String("op", string(op)),
		slog.String("key", key),
	)
}

func (e *Engine) observe(ctx context.Context, m Mutation) {
	mutationsTotal.WithLabelValues(string(m.Op), string(m.Outcome)).Inc()
	if e.cfg.Observer != nil {
		e.cfg.Observer.CartMutated(ctx, m)
	}
}

func (e *Engine) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.MutationTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.MutationTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, e.logger)
}
