// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes:   Total and successful request counts
//   - upstream_errors:      Failed provider calls
//   - hook_failures:        Hooks skipped by the fail-open policy
//   - charts_rendered:      Chart images generated by the enrichment hook
//   - cache_hits/misses:    Chart cache performance
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	requests       atomic.Int64
	successes      atomic.Int64
	upstreamErrors atomic.Int64
	hookFailures   atomic.Int64
	chartsRendered atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRequest records a handled request.
func (mc *MetricsCollector) RecordRequest(success bool, _ time.Duration) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordUpstreamError records a failed provider call.
func (mc *MetricsCollector) RecordUpstreamError() { mc.upstreamErrors.Add(1) }

// RecordHookFailure records a hook skipped by the fail-open policy.
func (mc *MetricsCollector) RecordHookFailure() { mc.hookFailures.Add(1) }

// RecordChartRendered records a generated chart image.
func (mc *MetricsCollector) RecordChartRendered() { mc.chartsRendered.Add(1) }

// RecordCacheHit records a chart cache hit.
func (mc *MetricsCollector) RecordCacheHit() { mc.cacheHits.Add(1) }

// RecordCacheMiss records a chart cache miss.
func (mc *MetricsCollector) RecordCacheMiss() { mc.cacheMisses.Add(1) }

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":        mc.requests.Load(),
		"successes":       mc.successes.Load(),
		"upstream_errors": mc.upstreamErrors.Load(),
		"hook_failures":   mc.hookFailures.Load(),
		"charts_rendered": mc.chartsRendered.Load(),
		"cache_hits":      mc.cacheHits.Load(),
		"cache_misses":    mc.cacheMisses.Load(),
	}
}
