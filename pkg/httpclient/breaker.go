package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while a breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_remote_breaker_state",
		Help: "Remote breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_remote_breaker_rejections_total",
		Help: "Remote requests refused without being sent because the breaker was open",
	}, []string{"name"})
)

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string
	// Probes is how many requests may pass while half-open.
	Probes uint32
	// Window clears the failure counts periodically while closed.
	Window time.Duration
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration
	// TripRatio of failed requests opens the breaker once MinSamples is reached.
	TripRatio  float64
	MinSamples uint32
}

// DefaultBreakerConfig returns the settings used for the remote storefront.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:       name,
		Probes:     1,
		Window:     time.Minute,
		Cooldown:   15 * time.Second,
		TripRatio:  0.5,
		MinSamples: 5,
	}
}

// Breaker is a Doer that stops calling next once it keeps failing. 5xx
// responses and transport errors count as failures; 4xx responses are the
// remote service's answer and pass through untouched.
type Breaker struct {
	name   string
	next   Doer
	cb     *gobreaker.CircuitBreaker[*http.Response]
	logger *slog.Logger
}

// NewBreaker wraps next.
func NewBreaker(next Doer, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.Probes,
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinSamples &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.TripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("remote breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// A visitor who went away says nothing about the remote service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &Breaker{
		name:   cfg.Name,
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger: logger,
	}
}

// Do sends req unless the breaker is open. A 5xx response is returned as a
// *StatusError with its body consumed.
func (b *Breaker) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.next.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, ParseResponseError(resp)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejections.WithLabelValues(b.name).Inc()
	}
	return resp, err
}

// State returns the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
