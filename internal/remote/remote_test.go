package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func noRetryDoer() httpclient.Doer {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second
	return httpclient.New(cfg)
}

func newCartClient(t *testing.T, srv *httptest.Server) *CartClient {
	t.Helper()
	jar, err := NewCookieJar()
	require.NoError(t, err)
	c, err := NewCartClient(srv.URL, noRetryDoer(), jar, newTestLogger())
	require.NoError(t, err)
	return c
}

func requireRemoteErr(t *testing.T, err error, op string, status int) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteCart))

	var rce *apperrors.RemoteCartError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, op, rce.Op)
	assert.Equal(t, status, rce.Status)
}

const cartJSON = `{
	"item_count": 3,
	"total_price": 2500,
	"items": [
		{"key": "101:aa", "title": "Tee - M", "product_title": "Tee", "variant_title": "M",
		 "quantity": 2, "final_line_price": 2000, "image": "https://cdn.example.com/tee.jpg", "url": "/products/tee?variant=101"},
		{"key": "102:bb", "title": "Sticker", "product_title": "Sticker", "variant_title": null,
		 "quantity": 1, "final_line_price": 500, "image": null, "url": null}
	]
}`

// --- FetchCart ---

func TestFetchCart_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart.js", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, cartJSON)
	}))
	defer srv.Close()

	snap, err := newCartClient(t, srv).FetchCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, int64(2500), snap.TotalPrice)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "https://cdn.example.com/tee.jpg", snap.Lines[0].ImageURL)
	assert.Empty(t, snap.Lines[1].ImageURL)
	assert.Empty(t, snap.Lines[1].VariantTitle)
	assert.Empty(t, snap.Lines[1].URL)
}

func TestFetchCart_UnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	_, err := newCartClient(t, srv).FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, http.StatusOK)
	assert.Contains(t, err.Error(), "decode cart")
}

func TestFetchCart_InvariantViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"item_count": 5, "total_price": 100, "items": [{"key": "a", "quantity": 1, "final_line_price": 100}]}`)
	}))
	defer srv.Close()

	_, err := newCartClient(t, srv).FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, http.StatusOK)
	assert.Contains(t, err.Error(), "invalid cart")
}

func TestFetchCart_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newCartClient(t, srv).FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, http.StatusServiceUnavailable)
}

func TestFetchCart_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	jar, err := NewCookieJar()
	require.NoError(t, err)
	c, err := NewCartClient(base, noRetryDoer(), jar, newTestLogger())
	require.NoError(t, err)

	_, err = c.FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, 0)
}

func TestFetchCart_ThroughBreakerKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := httpclient.NewBreaker(noRetryDoer(), httpclient.DefaultBreakerConfig("remote-test"), newTestLogger())
	jar, err := NewCookieJar()
	require.NoError(t, err)
	c, err := NewCartClient(srv.URL, cb, jar, newTestLogger())
	require.NoError(t, err)

	_, err = c.FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, http.StatusBadGateway)
}

// --- AddItem ---

func TestAddItem_PostsFormOpaquely(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/add.js", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "4242", r.PostForm.Get("id"))
		assert.Equal(t, "2", r.PostForm.Get("quantity"))
		assert.Equal(t, "gift", r.PostForm.Get("properties[note]"))
		// The body is not trusted, so garbage here must not matter.
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	payload := url.Values{"id": {"4242"}, "quantity": {"2"}, "properties[note]": {"gift"}}
	require.NoError(t, newCartClient(t, srv).AddItem(context.Background(), payload))
}

func TestAddItem_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"status":422,"message":"Cart Error","description":"All 1 Tee are in your cart."}`)
	}))
	defer srv.Close()

	err := newCartClient(t, srv).AddItem(context.Background(), url.Values{"id": {"1"}})
	requireRemoteErr(t, err, OpAdd, http.StatusUnprocessableEntity)
	assert.Contains(t, err.Error(), "All 1 Tee are in your cart.")
}

func TestCartClient_LogLevelFollowsStatusClass(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusUnprocessableEntity, "INFO"},
		{http.StatusNotFound, "INFO"},
		{http.StatusInternalServerError, "WARN"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var buf bytes.Buffer
			c, err := NewCartClient(srv.URL, noRetryDoer(), nil,
				slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
			require.NoError(t, err)

			requireRemoteErr(t, c.AddItem(context.Background(), url.Values{"id": {"1"}}), OpAdd, tt.status)

			var entry map[string]any
			first, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
			require.NoError(t, json.Unmarshal(first, &entry))
			assert.Equal(t, tt.level, entry["level"])
		})
	}
}

func TestAddItem_NeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 3
	cfg.RetryWaitMin = time.Millisecond
	jar, err := NewCookieJar()
	require.NoError(t, err)
	c, err := NewCartClient(srv.URL, httpclient.New(cfg), jar, newTestLogger())
	require.NoError(t, err)

	err = c.AddItem(context.Background(), url.Values{"id": {"1"}})
	requireRemoteErr(t, err, OpAdd, http.StatusInternalServerError)
	assert.Equal(t, int32(1), calls.Load())
}

// --- ChangeLineQuantity ---

func TestChangeLineQuantity_SendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart/change.js", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "101:aa", body["id"])
		assert.EqualValues(t, 0, body["quantity"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newCartClient(t, srv).ChangeLineQuantity(context.Background(), "101:aa", 0))
}

func TestChangeLineQuantity_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newCartClient(t, srv).ChangeLineQuantity(context.Background(), "x", 1)
	requireRemoteErr(t, err, OpChange, http.StatusBadRequest)
}

// --- Cookies ---

func TestCartClient_CarriesRemoteSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cart/add.js":
			http.SetCookie(w, &http.Cookie{Name: "cart", Value: "tok-1", Path: "/"})
		case "/cart.js":
			ck, err := r.Cookie("cart")
			if err != nil || ck.Value != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"item_count":0,"total_price":0,"items":[]}`)
		}
	}))
	defer srv.Close()

	c := newCartClient(t, srv)
	require.NoError(t, c.AddItem(context.Background(), url.Values{"id": {"1"}}))

	snap, err := c.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.ItemCount)

	// A second visitor has its own jar and so no cookie.
	_, err = newCartClient(t, srv).FetchCart(context.Background())
	requireRemoteErr(t, err, OpFetch, http.StatusUnauthorized)
}

func TestNewCartClient_RejectsRelativeBase(t *testing.T) {
	_, err := NewCartClient("/shop", noRetryDoer(), nil, newTestLogger())
	require.Error(t, err)
}

// --- Suggest ---

func TestSuggest_ParsesProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/suggest.json", r.URL.Path)
		assert.Equal(t, "tee shirt", r.URL.Query().Get("q"))
		assert.Equal(t, "product,collection,page", r.URL.Query().Get("resources[type]"))
		_, _ = io.WriteString(w, `{"resources":{"results":{"products":[
			{"title":"Tee","url":"/products/tee","price":"19.90","image":"https://cdn.example.com/tee.jpg"},
			{"title":"Mug","url":"/products/mug","price":12,"image":null}
		]}}}`)
	}))
	defer srv.Close()

	c, err := NewSearchClient(srv.URL, noRetryDoer(), newTestLogger())
	require.NoError(t, err)

	got, err := c.Suggest(context.Background(), "tee shirt")
	require.NoError(t, err)
	require.Len(t, got.Products, 2)
	assert.Equal(t, "19.90", got.Products[0].Price)
	assert.Equal(t, "12", got.Products[1].Price)
	assert.Empty(t, got.Products[1].ImageURL)
}

func TestSuggest_EmptyResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"resources":{"results":{}}}`)
	}))
	defer srv.Close()

	c, err := NewSearchClient(srv.URL, noRetryDoer(), newTestLogger())
	require.NoError(t, err)

	got, err := c.Suggest(context.Background(), "zz")
	require.NoError(t, err)
	assert.Empty(t, got.Products)
}

func TestSuggest_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewSearchClient(srv.URL, noRetryDoer(), newTestLogger())
	require.NoError(t, err)

	_, err = c.Suggest(context.Background(), "zz")
	requireRemoteErr(t, err, OpSuggest, http.StatusNotFound)
}

// --- Ping ---

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	require.NoError(t, Ping(context.Background(), noRetryDoer(), srv.URL))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	require.Error(t, Ping(context.Background(), noRetryDoer(), down.URL))
}
