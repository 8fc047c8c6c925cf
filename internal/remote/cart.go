package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httpclient"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/tracing"
)

// Operation names carried by RemoteCartError.Op.
const (
	OpFetch  = "fetch"
	OpAdd    = "add"
	OpChange = "change"
)

// CartClient talks to the remote cart endpoints on behalf of one visitor.
// Cookies set by the remote service are kept in the visitor's jar, which is
// how the service knows whose cart is being changed.
type CartClient struct {
	endpoints endpoints
	doer      httpclient.Doer
	jar       http.CookieJar
	logger    *slog.Logger
}

// NewCartClient creates a client for baseURL. doer is usually shared by all
// visitors; jar must not be.
func NewCartClient(baseURL string, doer httpclient.Doer, jar http.CookieJar, logger *slog.Logger) (*CartClient, error) {
	ep, err := newEndpoints(baseURL)
	if err != nil {
		return nil, err
	}
	return &CartClient{endpoints: ep, doer: doer, jar: jar, logger: logger}, nil
}

// FetchCart reads the authoritative cart. The response must satisfy the
// snapshot invariants; one that doesn't is reported like a parse failure.
func (c *CartClient) FetchCart(ctx context.Context) (snap *domain.CartSnapshot, err error) {
	ctx, span := tracer.Start(ctx, "remote.cart.fetch")
	defer func() { tracing.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.url(cartPath, nil).String(), http.NoBody)
	if err != nil {
		return nil, apperrors.RemoteCart(OpFetch, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, OpFetch, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded domain.CartSnapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return nil, apperrors.RemoteCart(OpFetch, resp.StatusCode, fmt.Errorf("decode cart: %w", err))
	}
	if err := decoded.Validate(); err != nil {
		return nil, apperrors.RemoteCart(OpFetch, resp.StatusCode, fmt.Errorf("invalid cart: %w", err))
	}

	span.SetAttributes(attribute.Int("cart.item_count", decoded.ItemCount))
	return &decoded, nil
}

// AddItem posts the add-to-cart form as is. Any 2xx is success; the body is
// not trusted and is discarded.
func (c *CartClient) AddItem(ctx context.Context, payload url.Values) (err error) {
	ctx, span := tracer.Start(ctx, "remote.cart.add")
	defer func() { tracing.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.url(addPath, nil).String(),
		strings.NewReader(payload.Encode()))
	if err != nil {
		return apperrors.RemoteCart(OpAdd, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, OpAdd, req)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

type changeRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// ChangeLineQuantity sets the quantity of the line identified by key. A
// quantity of 0 asks the service to drop the line. Any 2xx is success.
func (c *CartClient) ChangeLineQuantity(ctx context.Context, key string, quantity int) (err error) {
	ctx, span := tracer.Start(ctx, "remote.cart.change")
	span.SetAttributes(attribute.String("cart.line_key", key), attribute.Int("cart.quantity", quantity))
	defer func() { tracing.End(span, err) }()

	body, err := json.Marshal(changeRequest{ID: key, Quantity: quantity})
	if err != nil {
		return apperrors.RemoteCart(OpChange, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.url(changePath, nil).String(),
		strings.NewReader(string(body)))
	if err != nil {
		return apperrors.RemoteCart(OpChange, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, OpChange, req)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// do sends req with the visitor's cookies, stores any cookies the service
// sets and turns every failure into a RemoteCartError.
func (c *CartClient) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, ck := range c.jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "remote cart request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.RemoteCart(op, httpclient.StatusCode(err), err)
	}

	if c.jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(req.URL, cookies)
		}
	}

	if err := httpclient.CheckResponse(resp); err != nil {
		// A 4xx is the service's answer to this visitor (sold out, bad
		// variant), not a sign the service is unwell.
		level := slog.LevelWarn
		if httpclient.IsClientError(resp.StatusCode) {
			level = slog.LevelInfo
		}
		c.logger.Log(ctx, level, "remote cart rejected request",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.RemoteCart(op, resp.StatusCode, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}
