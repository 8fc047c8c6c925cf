package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 4 << 10

// StatusError is returned for a response whose status is outside 2xx.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// storefrontError mirrors the error body returned by the storefront AJAX API,
// e.g. {"status":422,"message":"Cart Error","description":"All 1 Hat are in your cart."}.
type storefrontError struct {
	Status      any    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// CheckResponse returns nil for a 2xx response. For any other status it
// consumes and closes the body and returns a *StatusError carrying the
// server's description when one could be parsed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return ParseResponseError(resp)
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into a *StatusError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read body: %v", err)}
	}

	var se storefrontError
	if json.Unmarshal(body, &se) == nil && (se.Message != "" || se.Description != "") {
		msg := se.Message
		if se.Description != "" {
			if msg != "" {
				msg += ": "
			}
			msg += se.Description
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
