package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/session"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/health"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/middleware"
)

// RouterConfig carries what NewRouter needs besides the handlers.
type RouterConfig struct {
	CORS          middleware.CORSConfig
	SecureCookies bool
	// RequestTimeout bounds every request. Zero means 30s.
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all widget routes registered.
func NewRouter(
	widgets *WidgetHandler,
	sessions *session.Registry,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Widget endpoints
	r.Route("/widget", func(r chi.Router) {
		r.Use(sessions.Middleware(cfg.SecureCookies))
		r.Use(middleware.RequestLogger(logger))

		r.Get("/state", widgets.State)
		r.Post("/escape", widgets.Escape)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", widgets.CartFragment)
			r.Post("/add", widgets.AddItem)
			r.Post("/actions", widgets.CartAction)
			r.Post("/open", widgets.OpenCart)
			r.Post("/close", widgets.CloseCart)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Post("/resize", widgets.ResizeMenu)
			r.Post("/{action}", widgets.Menu)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", widgets.Search)
			r.Post("/open", widgets.OpenSearch)
			r.Post("/close", widgets.CloseSearch)
		})
	})

	return r
}
