// Package reputation converts a stream of externally reported verification
// verdicts into a per-peer admission decision. Each peer accumulates a
// sliding window of accept/reject outcomes; peers whose recent success rate
// drops below threshold are blackholed for a cooldown period.
package reputation

import (
	"sync"
	"time"
)

const (
	// windowSize bounds the sliding window of recent verdicts per peer.
	windowSize = 10

	// minSamples is the minimum window population before the ban rule can
	// fire — short-history peers never get banned on too little evidence.
	minSamples = 5

	// banThreshold is the success-rate floor; at or above it, a peer is
	// never banned regardless of window population.
	banThreshold = 0.55

	// banDuration is how long a ban lasts once imposed.
	banDuration = 60 * time.Second
)

// Status is the snapshot returned after an update and by Statuses.
type Status struct {
	PeerID      string
	Score       int // success_rate * 100, rounded
	Accepted    int
	Failures    int
	Blackholed  bool
	SuccessRate float64
	LastReason  string
}

// entry holds the mutable reputation state for a single peer.
type entry struct {
	recent        []bool // bounded to windowSize, oldest at index 0
	acceptedCount int
	failureCount  int
	bannedUntilMs int64 // 0 = not banned
	lastReason    string
}

func (e *entry) successRate() float64 {
	if len(e.recent) == 0 {
		return 1.0
	}
	accepts := 0
	for _, ok := range e.recent {
		if ok {
			accepts++
		}
	}
	return float64(accepts) / float64(len(e.recent))
}

// Engine is the reputation/blackhole store. All methods are safe for
// concurrent use; nowFunc defaults to the wall clock and is overridable in
// tests.
type Engine struct {
	mu      sync.Mutex
	peers   map[string]*entry
	nowFunc func() int64
}

// New creates an empty Engine.
func New() *Engine {
	return &Engine{
		peers:   make(map[string]*entry),
		nowFunc: nowMs,
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// ApplyUpdate records a single accept/reject verdict for peerID and returns
// the resulting status. reason is recorded as last_reason only on a
// rejected (accepted=false) update, and only when non-empty — it overwrites
// any prior reason.
func (e *Engine) ApplyUpdate(peerID string, accepted bool, reason string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.peers[peerID]
	if !ok {
		ent = &entry{}
		e.peers[peerID] = ent
	}

	ent.recent = append(ent.recent, accepted)
	if len(ent.recent) > windowSize {
		ent.recent = ent.recent[len(ent.recent)-windowSize:]
	}

	if accepted {
		ent.acceptedCount++
	} else {
		ent.failureCount++
		if reason != "" {
			ent.lastReason = reason
		}
	}

	rate := ent.successRate()
	now := e.nowFunc()

	if len(ent.recent) >= minSamples && rate < banThreshold {
		ent.bannedUntilMs = now + banDuration.Milliseconds()
	}

	if ent.bannedUntilMs > 0 && ent.bannedUntilMs <= now {
		ent.bannedUntilMs = 0
	}

	return statusFor(peerID, ent, now)
}

// IsBlackholed reports whether peerID is currently banned. A stale ban
// (banned_until_ms <= now) is lazily cleared and reports false.
func (e *Engine) IsBlackholed(peerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.peers[peerID]
	if !ok {
		return false
	}
	now := e.nowFunc()
	if ent.bannedUntilMs > 0 && ent.bannedUntilMs <= now {
		ent.bannedUntilMs = 0
	}
	return ent.bannedUntilMs > now
}

// Statuses returns the status record for every known peer.
func (e *Engine) Statuses() []Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFunc()
	out := make([]Status, 0, len(e.peers))
	for peerID, ent := range e.peers {
		if ent.bannedUntilMs > 0 && ent.bannedUntilMs <= now {
			ent.bannedUntilMs = 0
		}
		out = append(out, statusFor(peerID, ent, now))
	}
	return out
}

func statusFor(peerID string, ent *entry, now int64) Status {
	rate := ent.successRate()
	return Status{
		PeerID:      peerID,
		Score:       int(rate*100 + 0.5),
		Accepted:    ent.acceptedCount,
		Failures:    ent.failureCount,
		Blackholed:  ent.bannedUntilMs > now,
		SuccessRate: rate,
		LastReason:  ent.lastReason,
	}
}
