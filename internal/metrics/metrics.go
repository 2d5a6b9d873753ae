// Package metrics provides Prometheus counters for extraction and decoding.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finsense"

// Metrics holds the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Extractions counts orchestrator outcomes.
	// Labels: path (deterministic, probabilistic, none), state (candidate, rejected), reason
	Extractions *prometheus.CounterVec

	// DecodeOutcomes counts decoder runs.
	// Labels: kind (insight, recommendation), stage, outcome
	DecodeOutcomes *prometheus.CounterVec

	// DroppedItems counts items discarded by validation or de-duplication.
	// Labels: kind, cause (invalid, duplicate)
	DroppedItems *prometheus.CounterVec

	// BatchMessages counts messages handled by batch processing.
	// Labels: result (saved, rejected, store_error)
	BatchMessages *prometheus.CounterVec
}

// New registers the counters with reg. A nil reg creates unregistered counters,
// which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "results_total",
				Help:      "Total number of extraction attempts by path, final state and reject reason",
			},
			[]string{"path", "state", "reason"},
		),
		DecodeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "decode",
				Name:      "outcomes_total",
				Help:      "Total number of decoded model responses by kind, recovery stage and outcome",
			},
			[]string{"kind", "stage", "outcome"},
		),
		DroppedItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "decode",
				Name:      "dropped_items_total",
				Help:      "Total number of decoded items discarded before persistence",
			},
			[]string{"kind", "cause"},
		),
		BatchMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "messages_total",
				Help:      "Total number of batch messages by result",
			},
			[]string{"result"},
		),
	}
}

// RecordExtraction records one orchestrator run.
func (m *Metrics) RecordExtraction(path, state, reason string) {
	if m == nil {
		return
	}
	if path == "" {
		path = "none"
	}
	m.Extractions.WithLabelValues(path, state, reason).Inc()
}

// RecordDecode records one decoder run and its discarded items.
func (m *Metrics) RecordDecode(kind, stage, outcome string, dropped, duplicates int) {
	if m == nil {
		return
	}
	m.DecodeOutcomes.WithLabelValues(kind, stage, outcome).Inc()
	if dropped > 0 {
		m.DroppedItems.WithLabelValues(kind, "invalid").Add(float64(dropped))
	}
	if duplicates > 0 {
		m.DroppedItems.WithLabelValues(kind, "duplicate").Add(float64(duplicates))
	}
}

// RecordBatchMessage records the result of one batch message.
func (m *Metrics) RecordBatchMessage(result string) {
	if m == nil {
		return
	}
	m.BatchMessages.WithLabelValues(result).Inc()
}
