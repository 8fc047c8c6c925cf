package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httpclient"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/tracing"
)

const (
	cartPath    = "/cart.js"
	addPath     = "/cart/add.js"
	changePath  = "/cart/change.js"
	suggestPath = "/search/suggest.json"

	// maxBodyBytes caps how much of a remote response is decoded.
	maxBodyBytes = 1 << 20
)

var tracer = tracing.Tracer("github.com/cerealmilkdev/Sahq-SHOPIFY/internal/remote")

// NewCookieJar returns the jar that carries one visitor's remote cart cookie.
func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

// endpoints resolves paths against the remote service's base URL.
type endpoints struct {
	base *url.URL
}

func newEndpoints(baseURL string) (endpoints, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return endpoints{}, fmt.Errorf("parse remote base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return endpoints{}, fmt.Errorf("remote base url %q must be absolute", baseURL)
	}
	return endpoints{base: u}, nil
}

func (e endpoints) url(path string, query url.Values) *url.URL {
	u := *e.base
	u.Path = e.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

// Ping reports whether the remote service answers at all. Any response below
// 500 counts as reachable.
func Ping(ctx context.Context, doer httpclient.Doer, baseURL string) error {
	ep, err := newEndpoints(baseURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ep.url("/", nil).String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping remote service: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ping remote service: status %d", resp.StatusCode)
	}
	return nil
}
