package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/config"
)

// Config holds all configuration for the storefront widget server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development staging production test"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Remote cart/search service
	RemoteBaseURL    string        `env:"REMOTE_BASE_URL" envDefault:"http://localhost:3000" validate:"required,url"`
	RemoteTimeout    time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	RemoteMaxRetries int           `env:"REMOTE_MAX_RETRIES" envDefault:"2" validate:"gte=0,lte=10"`
	// How long a tripped breaker refuses remote calls.
	RemoteBreakerCooldown time.Duration `env:"REMOTE_BREAKER_COOLDOWN" envDefault:"15s"`

	// Cart engine
	MutationTimeout      time.Duration `env:"MUTATION_TIMEOUT" envDefault:"15s"`
	MoneyFormat          string        `env:"MONEY_FORMAT" envDefault:"{{amount}} EUR"`
	NotifyChangeFailures bool          `env:"NOTIFY_CHANGE_FAILURES" envDefault:"false"`
	CheckoutURL          string        `env:"CHECKOUT_URL" envDefault:"/checkout"`

	// Visitor sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	// Search suggestion cache (Redis)
	SearchCacheEnabled bool          `env:"SEARCH_CACHE_ENABLED" envDefault:"false"`
	RedisAddr          string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass          string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`
	SearchCacheTTL     time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`

	// Per-session search rate limit
	SearchRatePerSec float64 `env:"SEARCH_RATE_PER_SEC" envDefault:"5"`
	SearchBurst      int     `env:"SEARCH_BURST" envDefault:"5"`

	// Kafka analytics
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks invariants the struct tags can't express.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.RemoteBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("REMOTE_BASE_URL must be an absolute http(s) URL, got %q", c.RemoteBaseURL)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if c.RemoteBreakerCooldown <= 0 {
		return fmt.Errorf("REMOTE_BREAKER_COOLDOWN must be positive")
	}
	if c.MutationTimeout < 0 {
		return fmt.Errorf("MUTATION_TIMEOUT must not be negative")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m, got %s", c.SessionTTL)
	}
	if c.SearchCacheEnabled && c.SearchCacheTTL <= 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must be positive when the search cache is enabled")
	}
	if c.SearchRatePerSec <= 0 || c.SearchBurst < 1 {
		return fmt.Errorf("search rate limit must be positive (rate=%v, burst=%d)", c.SearchRatePerSec, c.SearchBurst)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	if !strings.Contains(c.MoneyFormat, "{{") {
		return fmt.Errorf("MONEY_FORMAT must contain an amount placeholder, got %q", c.MoneyFormat)
	}
	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
