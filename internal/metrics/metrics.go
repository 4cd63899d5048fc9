package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeDegraded labels filters answered without cluster-level facets.
	OutcomeDegraded = "degraded"
)

const (
	OpFilter    = "filter"
	OpAggregate = "aggregate"
	OpTags      = "tags"
	OpTranslate = "translate"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedlens",
			Name:      "operations_total",
			Help:      "Engine operations handled, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	operationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "feedlens",
			Name:      "operation_seconds",
			Help:      "Engine operation latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	translationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedlens",
			Name:      "translation_failures_total",
			Help:      "Natural-language translations that left the filter unchanged, by reason.",
		},
		[]string{"reason"},
	)

	corpusItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "feedlens",
			Name:      "corpus_items",
			Help:      "Number of feedback items loaded.",
		},
	)
)

// Register attaches feedlens collectors to reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		operationsTotal,
		operationDurationSeconds,
		translationFailuresTotal,
		corpusItems,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveOperation records an operation's duration and outcome.
func ObserveOperation(operation string, duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeDegraded:
	default:
		outcome = OutcomeSuccess
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	operationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveTranslationFailure counts a failed translation.
func ObserveTranslationFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	translationFailuresTotal.WithLabelValues(reason).Inc()
}

// SetCorpusSize publishes the number of loaded items.
func SetCorpusSize(n int) {
	corpusItems.Set(float64(n))
}
