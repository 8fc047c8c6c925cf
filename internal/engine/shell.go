package engine

import (
	"context"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
)

// Shell is the surface the engine drives. It never calls back into the
// engine.
type Shell interface {
	// Render replaces badge counters, total and line list with view.
	Render(view render.CartView)
	// ShowPanel makes the panel visible and focuses its close control.
	ShowPanel()
	// HidePanel hides the panel. Hiding a hidden panel is harmless.
	HidePanel()
	// SetUpdating toggles the panel's visual "updating" state.
	SetUpdating(updating bool)
	// Notify shows a blocking notice to the visitor.
	Notify(message string)
}

// Submitter is the control that triggered an add-to-cart, disabled while the
// request is in flight.
type Submitter interface {
	Disable(pendingLabel string)
	Restore()
}

// Observer hears about every settled mutation and every applied refresh.
// Calls happen on the mutating goroutine, so implementations must not block.
type Observer interface {
	CartMutated(ctx context.Context, m Mutation)
	CartRefreshed(ctx context.Context, snap *domain.CartSnapshot)
}

// Op names a mutating operation.
type Op string

const (
	OpAdd       Op = "add"
	OpSet       Op = "set"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
	OpRemove    Op = "remove"
)

// Outcome of a mutating call.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected_busy"
)

// Mutation describes a settled mutating call.
type Mutation struct {
	Op       Op
	Key      string
	Quantity int
	Outcome  Outcome
	Err      error
}

// Visitor-facing copy.
const (
	AddPendingLabel     = "Ajout..."
	AddFailedMessage    = "Erreur lors de l'ajout au panier"
	ChangeFailedMessage = "Erreur lors de la mise a jour du panier"
)

// Result says what became of a mutating call.
type Result int

const (
	// Skipped means there was nothing to do: the line is unknown or no
	// snapshot is held yet. No request was issued.
	Skipped Result = iota
	// Applied means the request was issued. It may still have failed
	// remotely; failures are reported to the visitor through the shell.
	Applied
	// Rejected means another mutation was in flight and the call was dropped.
	Rejected
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	default:
		return "skipped"
	}
}
