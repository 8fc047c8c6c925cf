package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/validator"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]int{"item_count": 2}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"item_count":2}}`, rec.Body.String())
}

func TestWriteHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTML(rec, http.StatusOK, `<p class="cart-empty">Votre panier est vide</p>`)

	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "cart-empty")
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app error", apperrors.InvalidInput("quantity must be >= 0"), http.StatusBadRequest, "INVALID_INPUT"},
		{"busy", fmt.Errorf("engine: %w", apperrors.ErrConflict), http.StatusConflict, "BUSY"},
		{"remote cart", apperrors.RemoteCart("change", 500, nil), http.StatusBadGateway, "REMOTE_CART_ERROR"},
		{"rate limited", apperrors.ErrTooManyReqs, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/widget/cart/actions", nil)
			WriteError(rec, req, tt.err, slog.New(slog.DiscardHandler))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteError_LogsServerErrorsWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	req := httptest.NewRequest(http.MethodGet, "/widget/cart", nil)
	ctx := logger.WithCorrelationID(req.Context(), "corr-7")
	ctx = logger.NewContext(ctx, l)

	rec := httptest.NewRecorder()
	WriteError(rec, req.WithContext(ctx), apperrors.RemoteCart("fetch", 503, nil), nil)

	assert.Contains(t, buf.String(), "request failed")
	resp := decode(t, rec)
	assert.Equal(t, "corr-7", resp.Error.RequestID)
}

func TestWriteError_ClientErrorsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.ErrConflict, l)
	assert.Empty(t, buf.String())
}

func TestWriteValidationError(t *testing.T) {
	type req struct {
		Action string `validate:"required"`
	}
	err := validator.Validate(req{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Action")
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("malformed JSON"))

	resp := decode(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Equal(t, "malformed JSON", resp.Error.Message)
}
