package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHit(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordHit("accepted")
	m.RecordHit("accepted")
	m.RecordHit("filtered")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.hitsTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hitsTotal.WithLabelValues("filtered")))
}

func TestRecordCounters(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRecord("created")
	m.RecordRecord("combined")
	m.RecordMultiPeak("exp1")
	m.RecordIsotopeFailures(3)
	m.RecordIsotopeFailures(0)
	m.RecordTranslation("success", 2*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.recordsTotal.WithLabelValues("combined")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.multiPeakTotal.WithLabelValues("exp1")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.isotopeFailuresTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.translationsTotal.WithLabelValues("success")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHit("accepted")
		m.RecordRecord("created")
		m.RecordMultiPeak("exp1")
		m.RecordIsotopeFailures(1)
		m.RecordTranslation("error", time.Second)
	})
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)
	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.RecordHit("accepted")

	path := filepath.Join(t.TempDir(), "lipidquant.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lipidquant_hits_total{status="accepted"} 1`)
}
