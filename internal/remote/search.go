package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	apperrors "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/errors"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httpclient"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/tracing"
)

// OpSuggest names predictive search failures.
const OpSuggest = "suggest"

// SuggestResourceTypes is the resources[type] filter sent with every query.
const SuggestResourceTypes = "product,collection,page"

// SearchClient queries the predictive search endpoint. Search is not tied to
// a visitor's cart, so one client serves every session.
type SearchClient struct {
	endpoints endpoints
	doer      httpclient.Doer
	logger    *slog.Logger
}

// NewSearchClient creates a search client for baseURL.
func NewSearchClient(baseURL string, doer httpclient.Doer, logger *slog.Logger) (*SearchClient, error) {
	ep, err := newEndpoints(baseURL)
	if err != nil {
		return nil, err
	}
	return &SearchClient{endpoints: ep, doer: doer, logger: logger}, nil
}

type suggestResponse struct {
	Resources struct {
		Results struct {
			Products []suggestProduct `json:"products"`
		} `json:"results"`
	} `json:"resources"`
}

type suggestProduct struct {
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Price flexString `json:"price"`
	Image string     `json:"image"`
}

// flexString accepts a JSON string, number or null. The suggest endpoint has
// returned prices both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// Suggest runs a predictive search for q and returns the product hits in the
// order the service ranked them.
func (c *SearchClient) Suggest(ctx context.Context, q string) (_ *domain.Suggestions, err error) {
	ctx, span := tracer.Start(ctx, "remote.search.suggest")
	span.SetAttributes(attribute.Int("search.query_length", len(q)))
	defer func() { tracing.End(span, err) }()

	query := url.Values{}
	query.Set("q", q)
	query.Set("resources[type]", SuggestResourceTypes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.url(suggestPath, query).String(), http.NoBody)
	if err != nil {
		return nil, apperrors.RemoteCart(OpSuggest, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, apperrors.RemoteCart(OpSuggest, httpclient.StatusCode(err), err)
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, apperrors.RemoteCart(OpSuggest, resp.StatusCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return nil, apperrors.RemoteCart(OpSuggest, resp.StatusCode, fmt.Errorf("decode suggestions: %w", err))
	}

	out := &domain.Suggestions{Products: make([]domain.ProductSuggestion, 0, len(decoded.Resources.Results.Products))}
	for _, p := range decoded.Resources.Results.Products {
		out.Products = append(out.Products, domain.ProductSuggestion{
			Title:    p.Title,
			URL:      p.URL,
			Price:    string(p.Price),
			ImageURL: p.Image,
		})
	}

	c.logger.DebugContext(ctx, "search suggestions fetched", slog.Int("products", len(out.Products)))
	return out, nil
}
