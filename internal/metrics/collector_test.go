package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.cacheHits)
	assert.NotNil(t, collector.cacheMisses)
	assert.NotNil(t, collector.computesTotal)
	assert.NotNil(t, collector.invalidationsTotal)
	assert.NotNil(t, collector.warmTargetsTotal)
}

func TestCollector_RecordHitAndMiss(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHit("l1")
	collector.RecordHit("l1")
	collector.RecordHit("l2")
	collector.RecordMiss()

	assert.InDelta(t, 2, testutil.ToFloat64(collector.cacheHits.WithLabelValues("l1")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.cacheHits.WithLabelValues("l2")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.cacheMisses), 0.001)
}

func TestCollector_RecordCompute(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCompute(50*time.Millisecond, false)
	collector.RecordCompute(100*time.Millisecond, true)

	assert.InDelta(t, 1, testutil.ToFloat64(collector.computesTotal.WithLabelValues("ok")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.computesTotal.WithLabelValues("error")), 0.001)
}

func TestCollector_RecordInvalidation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordInvalidation("pattern", 3)
	collector.RecordInvalidation("pattern", 2)
	collector.RecordInvalidation("key", 1)

	assert.InDelta(t, 2, testutil.ToFloat64(collector.invalidationsTotal.WithLabelValues("pattern")), 0.001)
	assert.InDelta(t, 5, testutil.ToFloat64(collector.invalidatedEntries.WithLabelValues("pattern")), 0.001)
}

func TestCollector_RecordWarm(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordWarm(5, 1, 2)

	assert.InDelta(t, 5, testutil.ToFloat64(collector.warmTargetsTotal.WithLabelValues("warmed")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.warmTargetsTotal.WithLabelValues("failed")), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.warmTargetsTotal.WithLabelValues("skipped")), 0.001)
}

func TestCollector_SetL1Entries(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.SetL1Entries(42)
	assert.InDelta(t, 42, testutil.ToFloat64(collector.cacheL1Entries), 0.001)

	collector.SetL1Entries(7)
	assert.InDelta(t, 7, testutil.ToFloat64(collector.cacheL1Entries), 0.001)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/cache/invalidate", 200, 10*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/cache/invalidate", 500, 10*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(
		collector.httpRequestsTotal.WithLabelValues("POST", "/cache/invalidate", "2xx")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(
		collector.httpRequestsTotal.WithLabelValues("POST", "/cache/invalidate", "5xx")), 0.001)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(99))
}
