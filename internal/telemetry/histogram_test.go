package telemetry

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestHistogram_EmptyReturnsAllZeros(t *testing.T) {
	h := NewHistogram()
	p50, p90, p99 := h.Percentiles()
	if p50 != 0 || p90 != 0 || p99 != 0 {
		t.Fatalf("Percentiles() on empty histogram = (%d, %d, %d), want all zero", p50, p90, p99)
	}
}

func TestHistogram_GossipPropagationLatency(t *testing.T) {
	h := NewHistogram()
	now := time.Now().UnixMilli()
	createdAtMs := now - 42

	observedMs := float64(now - createdAtMs)
	h.Observe(observedMs)

	p50, _, _ := h.Percentiles()
	if p50 != 50 {
		t.Fatalf("p50 = %d, want 50 (bucket for a 42ms sample)", p50)
	}
}

func TestHistogram_OverflowBucket(t *testing.T) {
	h := NewHistogram()
	h.Observe(9_000)
	p50, p90, p99 := h.Percentiles()
	if p50 != overflowNominalMs || p90 != overflowNominalMs || p99 != overflowNominalMs {
		t.Fatalf("got (%d, %d, %d), want all %d", p50, p90, p99, overflowNominalMs)
	}
}

func TestHistogram_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := NewHistogram()
		n := rapid.IntRange(1, 500).Draw(t, "n")
		for i := 0; i < n; i++ {
			ms := rapid.Float64Range(0, 12_000).Draw(t, "ms")
			h.Observe(ms)
		}
		p50, p90, p99 := h.Percentiles()
		if p50 > p90 || p90 > p99 {
			t.Fatalf("monotonicity violated: p50=%d p90=%d p99=%d", p50, p90, p99)
		}
	})
}

func TestHistogram_SingleSampleAllPercentilesMatchBucket(t *testing.T) {
	h := NewHistogram()
	h.Observe(7)
	p50, p90, p99 := h.Percentiles()
	if p50 != 10 || p90 != 10 || p99 != 10 {
		t.Fatalf("got (%d, %d, %d), want all 10", p50, p90, p99)
	}
}
