// Package dispatch maps control descriptors coming from the page onto cart
// engine operations. The engine itself knows nothing about actions or markup.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
)

// ErrUnknownAction is returned for an action the table does not know.
var ErrUnknownAction = errors.New("unknown cart action")

// Actions understood by the table.
const (
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
	ActionRemove   = "remove"
	ActionSet      = "set"
	ActionOpen     = "open"
	ActionClose    = "close"
	ActionRefresh  = "refresh"
)

// Cart is the subset of the engine the table drives.
type Cart interface {
	OpenPanel(ctx context.Context)
	ClosePanel()
	Refresh(ctx context.Context) bool
	SetLineQuantity(ctx context.Context, key string, quantity int) engine.Result
	IncrementLine(ctx context.Context, key string) engine.Result
	DecrementLine(ctx context.Context, key string) engine.Result
	RemoveLine(ctx context.Context, key string) engine.Result
}

// Command is one control activation: the action, the line key it is bound
// to and, for quantity inputs, the raw field value.
type Command struct {
	Action string `json:"action" validate:"required"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type handlerFunc func(ctx context.Context, c Cart, cmd Command) engine.Result

// Table routes commands to engine operations.
type Table struct {
	handlers map[string]handlerFunc
}

// NewTable returns a table with every known action registered.
func NewTable() *Table {
	return &Table{handlers: map[string]handlerFunc{
		ActionIncrease: func(ctx context.Context, c Cart, cmd Command) engine.Result {
			return c.IncrementLine(ctx, cmd.Key)
		},
		ActionDecrease: func(ctx context.Context, c Cart, cmd Command) engine.Result {
			return c.DecrementLine(ctx, cmd.Key)
		},
		ActionRemove: func(ctx context.Context, c Cart, cmd Command) engine.Result {
			return c.RemoveLine(ctx, cmd.Key)
		},
		ActionSet: func(ctx context.Context, c Cart, cmd Command) engine.Result {
			return c.SetLineQuantity(ctx, cmd.Key, domain.CoerceQuantity(cmd.Value))
		},
		ActionOpen: func(ctx context.Context, c Cart, _ Command) engine.Result {
			c.OpenPanel(ctx)
			return engine.Applied
		},
		ActionClose: func(_ context.Context, c Cart, _ Command) engine.Result {
			c.ClosePanel()
			return engine.Applied
		},
		ActionRefresh: func(ctx context.Context, c Cart, _ Command) engine.Result {
			c.Refresh(ctx)
			return engine.Applied
		},
	}}
}

// lineActions need a line key.
var lineActions = map[string]bool{
	ActionIncrease: true,
	ActionDecrease: true,
	ActionRemove:   true,
	ActionSet:      true,
}

// Dispatch runs cmd against c and passes the engine's result through. Panel
// and refresh actions always report engine.Applied.
func (t *Table) Dispatch(ctx context.Context, c Cart, cmd Command) (engine.Result, error) {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	h, ok := t.handlers[action]
	if !ok {
		return engine.Skipped, fmt.Errorf("%w: %q (known: %s)",
			ErrUnknownAction, cmd.Action, strings.Join(t.Actions(), ", "))
	}
	if lineActions[action] && cmd.Key == "" {
		return engine.Skipped, apperrors.InvalidInput(action + " requires a line key")
	}
	return h(ctx, c, cmd), nil
}

// Actions lists the registered action names in order.
func (t *Table) Actions() []string {
	out := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
