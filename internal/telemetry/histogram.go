// Package telemetry aggregates gossip-result propagation latency and the
// daemon's advisory load/capacity gauges for the control-plane's telemetry
// surface.
package telemetry

import (
	"math"
	"sync/atomic"
)

// bucketEdges are the fixed upper bounds, in milliseconds, for the latency
// histogram. A value exceeding the last edge falls into the overflow bucket.
var bucketEdges = [...]int64{5, 10, 25, 50, 100, 150, 200, 300, 500, 1000, 2000, 5000}

// overflowNominalMs is the bound reported for the overflow bucket in
// Percentiles.
const overflowNominalMs = 10_000

// Histogram is a fixed-bucket latency histogram with atomically updated
// counters, safe for concurrent Observe/Percentiles calls.
type Histogram struct {
	buckets  [len(bucketEdges)]atomic.Uint64
	overflow atomic.Uint64
}

// NewHistogram returns an empty Histogram.
func NewHistogram() *Histogram {
	return &Histogram{}
}

// Observe records ms into the first bucket whose upper bound is >= ms, or
// the overflow bucket if ms exceeds every edge.
func (h *Histogram) Observe(ms float64) {
	for i, edge := range bucketEdges {
		if ms <= float64(edge) {
			h.buckets[i].Add(1)
			return
		}
	}
	h.overflow.Add(1)
}

// Percentiles computes p50/p90/p99 by walking cumulative bucket counts. An
// empty histogram reports all zeros. The result is always monotonic:
// p50 <= p90 <= p99.
func (h *Histogram) Percentiles() (p50, p90, p99 int64) {
	counts := make([]uint64, len(bucketEdges)+1)
	var total uint64
	for i := range bucketEdges {
		counts[i] = h.buckets[i].Load()
		total += counts[i]
	}
	counts[len(bucketEdges)] = h.overflow.Load()
	total += counts[len(bucketEdges)]

	if total == 0 {
		return 0, 0, 0
	}

	boundFor := func(idx int) int64 {
		if idx == len(bucketEdges) {
			return overflowNominalMs
		}
		return bucketEdges[idx]
	}

	find := func(fraction float64) int64 {
		target := uint64(math.Ceil(float64(total) * fraction))
		var cumulative uint64
		for i, c := range counts {
			cumulative += c
			if cumulative >= target {
				return boundFor(i)
			}
		}
		return boundFor(len(counts) - 1)
	}

	return find(0.50), find(0.90), find(0.99)
}

// Reset clears all bucket counts.
func (h *Histogram) Reset() {
	for i := range h.buckets {
		h.buckets[i].Store(0)
	}
	h.overflow.Store(0)
}
