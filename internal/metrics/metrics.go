// Package metrics define las metricas Prometheus del intercambio de mensajes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "euroassist"

const (
	ChannelBuffered = "buffered"
	ChannelStream   = "stream"

	OutcomeOK               = "ok"
	OutcomeGenerationFailed = "generation_failed"
	OutcomeStorageFailed    = "storage_failed"
)

// ExchangesTotal cuenta intercambios completos por canal y resultado.
var ExchangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchanges_total",
		Help:      "Total number of message exchanges, labelled by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

// GenerationDuration mide la latencia de la llamada al LLM.
var GenerationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Duration of assistant generation per exchange.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60},
	},
	[]string{"channel"},
)

var TitlesGeneratedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "titles_generated_total",
		Help:      "Total number of chat titles derived from a first exchange.",
	},
)

// Recorder publica en las metricas globales.
type Recorder struct{}

func (Recorder) ObserveExchange(channel, outcome string, generation time.Duration) {
	ExchangesTotal.WithLabelValues(channel, outcome).Inc()
	if generation > 0 {
		GenerationDuration.WithLabelValues(channel).Observe(generation.Seconds())
	}
}

func (Recorder) ObserveTitle() {
	TitlesGeneratedTotal.Inc()
}
