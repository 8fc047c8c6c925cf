package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// whatever of correlation_id, session_id, trace_id and span_id is known at
// this point. Handlers fetch it with logger.FromContext.
//
// Mount it after RequestLogging, Tracing and the session middleware.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
