package telemetry

import "sync/atomic"

// Gauges holds the advisory scalar counters reported alongside the latency
// histogram: capacity, current_load, and a running average latency. They are
// plain atomics rather than prometheus.Gauge so the control plane's
// telemetry snapshot can read them without taking a lock. Each gauge is read
// independently; a snapshot of all three is not guaranteed to be consistent.
type Gauges struct {
	capacity    atomic.Uint32
	currentLoad atomic.Uint32
	avgLatency  atomic.Uint32 // milliseconds
}

// NewGauges returns a zeroed Gauges.
func NewGauges() *Gauges {
	return &Gauges{}
}

func (g *Gauges) SetCapacity(v uint32)     { g.capacity.Store(v) }
func (g *Gauges) SetCurrentLoad(v uint32)  { g.currentLoad.Store(v) }
func (g *Gauges) SetAvgLatencyMs(v uint32) { g.avgLatency.Store(v) }

func (g *Gauges) Capacity() uint32     { return g.capacity.Load() }
func (g *Gauges) CurrentLoad() uint32  { return g.currentLoad.Load() }
func (g *Gauges) AvgLatencyMs() uint32 { return g.avgLatency.Load() }
