package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	mutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_cart_mutation_duration_seconds",
			Help:    "Time from acquiring the busy guard to releasing it",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_refreshes_total",
			Help: "Cart refreshes by outcome",
		},
		[]string{"outcome"},
	)
)
