package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/config"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/dispatch"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/event"
	handler "github.com/cerealmilkdev/Sahq-SHOPIFY/internal/handler/http"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/remote"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/render"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search"
	searchredis "github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search/redis"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/session"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/health"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/httpclient"
	pkgkafka "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/kafka"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/middleware"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/tracing"
)

// ServiceName identifies this server in logs, traces and events.
const ServiceName = "storefront-widgets"

// App wires together all dependencies and runs the widget server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	renderer    *render.Renderer
	cartDoer    httpclient.Doer
	search      *remote.SearchClient
	searchCache search.Cache
	observer    engine.Observer

	sessions       *session.Registry
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	events         *event.Producer
	shutdownTracer func(context.Context) error
	router         http.Handler
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{
		cfg:      cfg,
		logger:   logger,
		renderer: render.NewRenderer(cfg.MoneyFormat, cfg.CheckoutURL),
	}

	// Tracing.
	tcfg := tracing.DefaultConfig(ServiceName)
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	// Remote transport. GETs are retried by the base client; cart and search
	// each get their own breaker so a failing search backend leaves the cart
	// usable.
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.RemoteTimeout
	hcfg.MaxRetries = cfg.RemoteMaxRetries
	base := httpclient.New(hcfg)

	cartBreaker := httpclient.DefaultBreakerConfig("remote-cart")
	cartBreaker.Cooldown = cfg.RemoteBreakerCooldown
	searchBreaker := httpclient.DefaultBreakerConfig("remote-search")
	searchBreaker.Cooldown = cfg.RemoteBreakerCooldown

	a.cartDoer = httpclient.NewBreaker(base, cartBreaker, logger)
	searchDoer := httpclient.NewBreaker(base, searchBreaker, logger)

	a.search, err = remote.NewSearchClient(cfg.RemoteBaseURL, searchDoer, logger)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	healthHandler := health.NewHandler(5 * time.Second)
	healthHandler.Register("remote", func(ctx context.Context) error {
		return remote.Ping(ctx, base, cfg.RemoteBaseURL)
	})

	// Search suggestion cache.
	a.searchCache = search.NopCache{}
	if cfg.SearchCacheEnabled {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		cache := searchredis.NewSuggestionCache(a.redis, cfg.SearchCacheTTL)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, search cache will miss until it recovers",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		}
		a.searchCache = cache
		healthHandler.RegisterOptional("redis", cache.Ping)
	}

	// Cart analytics events.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.events = event.NewProducer(a.producer, event.DefaultBufferSize, logger)
		a.observer = a.events
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a.sessions = session.NewRegistry(a.newSession, cfg.SessionTTL, logger)

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	widgets := handler.NewWidgetHandler(a.renderer, dispatch.NewTable(), logger)
	a.router = handler.NewRouter(widgets, a.sessions, healthHandler, handler.RouterConfig{
		CORS:          cors,
		SecureCookies: cfg.IsProduction(),
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server and the session janitor, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.sessions.Run(ctx)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Flush buffered events before the writer goes away.
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
