package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("reports:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("reports:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reports:warmup")))
}

func TestAddWarmedRows(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmedRows("Stock Balance Report", 12)
	m.AddWarmedRows("Stock Balance Report", 0)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.warmedRows.WithLabelValues("Stock Balance Report")))

	var nilMetrics *Metrics
	nilMetrics.AddWarmedRows("x", 1)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}
