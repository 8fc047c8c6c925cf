// Package event publishes cart widget analytics to Kafka.
package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	pkgkafka "github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/kafka"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/pkg/logger"
)

// Kafka topics for cart widget events.
var (
	TopicCartMutated   = pkgkafka.Topic("cart", "mutated")
	TopicCartRefreshed = pkgkafka.Topic("cart", "refreshed")
)

// SourceWidgetShell identifies events originating from this service.
const SourceWidgetShell = "storefront-widgets"

// DefaultBufferSize is how many events may wait for the writer.
const DefaultBufferSize = 256

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_cart_events_dropped_total",
	Help: "Cart events dropped because the publish buffer was full.",
}, []string{"topic"})

// CartMutatedData is the payload of a cart.mutated event.
type CartMutatedData struct {
	SessionID string `json:"session_id"`
	Op        string `json:"op"`
	Key       string `json:"key,omitempty"`
	Quantity  int    `json:"quantity"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// CartRefreshedData is the payload of a cart.refreshed event.
type CartRefreshedData struct {
	SessionID  string `json:"session_id"`
	ItemCount  int    `json:"item_count"`
	TotalPrice int64  `json:"total_price"`
	LineCount  int    `json:"line_count"`
}

// Publisher is the subset of pkgkafka.Producer the producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type job struct {
	ctx   context.Context
	topic string
	event *pkgkafka.Event
}

// Producer turns engine notifications into Kafka events. It implements
// engine.Observer: calls never block, events are handed to a background
// writer and dropped when its buffer is full.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ engine.Observer = (*Producer)(nil)

// NewProducer creates a producer and starts its writer goroutine. Call Close
// to flush and stop it.
func NewProducer(kafka Publisher, bufferSize int, logger *slog.Logger) *Producer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	p := &Producer{
		kafka:  kafka,
		logger: logger,
		jobs:   make(chan job, bufferSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// CartMutated publishes a cart.mutated event.
func (p *Producer) CartMutated(ctx context.Context, m engine.Mutation) {
	data := CartMutatedData{
		SessionID: logger.SessionIDFromContext(ctx),
		Op:        string(m.Op),
		Key:       m.Key,
		Quantity:  m.Quantity,
		Outcome:   string(m.Outcome),
	}
	if m.Err != nil {
		data.Error = m.Err.Error()
	}
	p.enqueue(ctx, TopicCartMutated, data.SessionID, data)
}

// CartRefreshed publishes a cart.refreshed event.
func (p *Producer) CartRefreshed(ctx context.Context, snap *domain.CartSnapshot) {
	data := CartRefreshedData{
		SessionID:  logger.SessionIDFromContext(ctx),
		ItemCount:  snap.ItemCount,
		TotalPrice: snap.TotalPrice,
		LineCount:  len(snap.Lines),
	}
	p.enqueue(ctx, TopicCartRefreshed, data.SessionID, data)
}

func (p *Producer) enqueue(ctx context.Context, topic, key string, data any) {
	evt, err := pkgkafka.NewEvent(topic, key, SourceWidgetShell, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt.WithAttribute("trace_id", sc.TraceID().String())
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.jobs <- job{ctx: context.WithoutCancel(ctx), topic: topic, event: evt}:
	default:
		eventsDropped.WithLabelValues(topic).Inc()
		p.logger.WarnContext(ctx, "event buffer full, dropping event", slog.String("topic", topic))
	}
}

func (p *Producer) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := p.kafka.Publish(j.ctx, j.topic, j.event); err != nil {
			p.logger.WarnContext(j.ctx, "cart event not published",
				slog.String("topic", j.topic),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Close stops accepting events and waits for buffered ones to be written.
// Events arriving afterwards are discarded.
func (p *Producer) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
