// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。实现 reports/cache 的 MetricsRecorder 接口。
type Collector struct {
	// 缓存指标
	cacheHits      *prometheus.CounterVec
	cacheMisses    prometheus.Counter
	cacheL1Entries prometheus.Gauge

	// 回源指标
	computesTotal   *prometheus.CounterVec
	computeDuration prometheus.Histogram

	// 失效指标
	invalidationsTotal *prometheus.CounterVec
	invalidatedEntries *prometheus.CounterVec

	// 预热指标
	warmTargetsTotal *prometheus.CounterVec

	// HTTP 指标（管理 API）
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"tier"},
	)

	c.cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses across all tiers",
		},
	)

	c.cacheL1Entries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_l1_entries",
			Help:      "Approximate number of entries in the in-process tier",
		},
	)

	// 回源指标
	c.computesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_computes_total",
			Help:      "Total number of compute callback invocations",
		},
		[]string{"status"}, // status: ok, error
	)

	c.computeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_compute_duration_seconds",
			Help:      "Compute callback duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// 失效指标
	c.invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of invalidation operations",
		},
		[]string{"scope"}, // scope: key, pattern, all
	)

	c.invalidatedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_entries_total",
			Help:      "Total number of local entries removed by invalidation",
		},
		[]string{"scope"},
	)

	// 预热指标
	c.warmTargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_warm_targets_total",
			Help:      "Total number of warm targets by outcome",
		},
		[]string{"result"}, // result: warmed, failed, skipped
	)

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of management API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Management API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordHit 记录缓存命中
func (c *Collector) RecordHit(tier string) {
	c.cacheHits.WithLabelValues(tier).Inc()
}

// RecordMiss 记录缓存未命中
func (c *Collector) RecordMiss() {
	c.cacheMisses.Inc()
}

// RecordCompute 记录一次回源计算
func (c *Collector) RecordCompute(elapsed time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	c.computesTotal.WithLabelValues(status).Inc()
	c.computeDuration.Observe(elapsed.Seconds())
}

// RecordInvalidation 记录一次失效操作
func (c *Collector) RecordInvalidation(scope string, count int) {
	c.invalidationsTotal.WithLabelValues(scope).Inc()
	c.invalidatedEntries.WithLabelValues(scope).Add(float64(count))
}

// RecordWarm 记录一个预热批次的结果
func (c *Collector) RecordWarm(warmed, failed, skipped int) {
	c.warmTargetsTotal.WithLabelValues("warmed").Add(float64(warmed))
	c.warmTargetsTotal.WithLabelValues("failed").Add(float64(failed))
	c.warmTargetsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// SetL1Entries 更新 L1 条目数
func (c *Collector) SetL1Entries(n int) {
	c.cacheL1Entries.Set(float64(n))
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录管理 API 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// statusCode 将 HTTP 状态码归类
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
