package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordExtraction(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordExtraction("deterministic", "candidate", "")
	m.RecordExtraction("deterministic", "candidate", "")
	m.RecordExtraction("", "rejected", "no_fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Extractions.WithLabelValues("deterministic", "candidate", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("none", "rejected", "no_fallback")))
}

func TestRecordDecode(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDecode("insight", "direct", "recovered", 2, 1)
	m.RecordDecode("insight", "none", "unparseable", 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeOutcomes.WithLabelValues("insight", "direct", "recovered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeOutcomes.WithLabelValues("insight", "none", "unparseable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedItems.WithLabelValues("insight", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedItems.WithLabelValues("insight", "duplicate")))
}

func TestRegistryCollects(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordBatchMessage("saved")

	count, err := testutil.GatherAndCount(reg, "finsense_batch_messages_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExtraction("deterministic", "candidate", "")
		m.RecordDecode("insight", "direct", "recovered", 1, 1)
		m.RecordBatchMessage("saved")
	})
}
