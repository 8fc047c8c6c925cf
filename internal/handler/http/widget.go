package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/dispatch"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/session"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/view"
	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httputil"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/validator"
)

const maxFormBytes = 64 << 10

var errBusy = apperrors.Conflict("another cart change is in progress")

// WidgetHandler serves the widget endpoints of one visitor session.
type WidgetHandler struct {
	renderer *render.Renderer
	actions  *dispatch.Table
	logger   *slog.Logger
}

// NewWidgetHandler creates a widget HTTP handler.
func NewWidgetHandler(renderer *render.Renderer, actions *dispatch.Table, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{
		renderer: renderer,
		actions:  actions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// ResizeRequest reports the new viewport width.
type ResizeRequest struct {
	Width int `json:"width" validate:"gte=0"`
}

// --- Handlers ---

// State handles GET /widget/state
func (h *WidgetHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeFrame(w, s, nil)
}

// CartFragment handles GET /widget/cart
func (h *WidgetHandler) CartFragment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	cart := s.Widgets.Drawer.View()
	if cart == nil {
		snap, _ := s.Engine.Snapshot()
		v := h.renderer.Cart(snap)
		cart = &v
	}

	fragment, err := h.renderer.CartHTML(*cart)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, fragment)
}

// AddItem handles POST /widget/cart/add
//
// The form is forwarded as is; the remote service owns its validation.
func (h *WidgetHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid form body"), h.logger)
		return
	}
	if len(r.PostForm) == 0 {
		httputil.WriteError(w, r, apperrors.InvalidInput("add to cart form is empty"), h.logger)
		return
	}

	var button view.SubmitButton
	if s.Engine.AddItem(mutationContext(r), r.PostForm, &button) == engine.Rejected {
		httputil.WriteError(w, r, errBusy, h.logger)
		return
	}

	submit := button.State()
	h.writeFrame(w, s, &submit)
}

// CartAction handles POST /widget/cart/actions
func (h *WidgetHandler) CartAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var cmd dispatch.Command
	if err := validator.DecodeAndValidate(r, &cmd); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.actions.Dispatch(mutationContext(r), s.Engine, cmd)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnknownAction) {
			err = apperrors.InvalidInput(err.Error())
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	// A skipped step (unknown line) answers with the unchanged frame.
	if res == engine.Rejected {
		httputil.WriteError(w, r, errBusy, h.logger)
		return
	}

	h.writeFrame(w, s, nil)
}

// OpenCart handles POST /widget/cart/open
func (h *WidgetHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Engine.OpenPanel(r.Context())
	h.writeFrame(w, s, nil)
}

// CloseCart handles POST /widget/cart/close
func (h *WidgetHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Engine.ClosePanel()
	h.writeFrame(w, s, nil)
}

// Menu handles POST /widget/menu/{action} for toggle, open and close.
func (h *WidgetHandler) Menu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	switch action := chi.URLParam(r, "action"); action {
	case "toggle":
		s.Widgets.Menu.Toggle()
	case "open":
		s.Widgets.Menu.Open()
	case "close":
		s.Widgets.Menu.Close()
	default:
		httputil.WriteError(w, r, apperrors.NotFound("menu action", action), h.logger)
		return
	}
	h.writeFrame(w, s, nil)
}

// ResizeMenu handles POST /widget/menu/resize
func (h *WidgetHandler) ResizeMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ResizeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	s.Widgets.Menu.Resize(req.Width)
	h.writeFrame(w, s, nil)
}

// Search handles GET /widget/search?q=
//
// With format=html the results fragment is returned instead of JSON.
func (h *WidgetHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Widgets.Search.Search(r.Context(), r.URL.Query().Get("q")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	st := s.Widgets.Search.State()
	if r.URL.Query().Get("format") != "html" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: st})
		return
	}

	if st.Results == nil {
		httputil.WriteHTML(w, http.StatusOK, "")
		return
	}
	fragment, err := h.renderer.SearchHTML(*st.Results)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, fragment)
}

// OpenSearch handles POST /widget/search/open
func (h *WidgetHandler) OpenSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Widgets.Search.Open()
	h.writeFrame(w, s, nil)
}

// CloseSearch handles POST /widget/search/close
func (h *WidgetHandler) CloseSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Widgets.Search.Close()
	h.writeFrame(w, s, nil)
}

// Escape handles POST /widget/escape: every open panel closes.
func (h *WidgetHandler) Escape(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Widgets.Menu.Escape()
	s.Engine.ClosePanel()
	s.Widgets.Search.Escape()

	h.writeFrame(w, s, nil)
}

// --- Helpers ---

func (h *WidgetHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errors.New("widget route mounted without session middleware"), h.logger)
		return nil, false
	}
	return s, true
}

func (h *WidgetHandler) writeFrame(w http.ResponseWriter, s *session.Session, submit *view.SubmitState) {
	frame := s.Frame()
	frame.Submit = submit
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: frame})
}

// mutationContext detaches a cart mutation from the request's cancellation:
// a visitor navigating away must not abort a write the remote service may
// already have applied. The engine's mutation timeout still bounds it.
func mutationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
