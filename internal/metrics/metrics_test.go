package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUploadAndDelete(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpload("complete", 120*time.Millisecond)
	m.ObserveUpload("complete", 80*time.Millisecond)
	m.ObserveUpload("partial", time.Second)
	m.ObserveDelete(true)
	m.ObserveDelete(false)
	m.ObserveDelete(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletesTotal.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deletesTotal.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.uploadDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload("failed", time.Millisecond)
		m.ObserveDelete(true)
		m.ObserveRequest("GET", "/health", "200")
	})
}
