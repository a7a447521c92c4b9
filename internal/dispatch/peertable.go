// Package dispatch implements the single-threaded event loop that owns the
// swarm handle and all mutable peer/queue/topology state.
package dispatch

import "sync"

// PeerRecord tracks one connected peer's handshake and liveness state. It is
// created on connection establishment and destroyed on connection closed.
type PeerRecord struct {
	PeerID            string
	ConnectedAtMs     int64
	LastSeenAtMs      int64
	Addresses         []string
	Verified          bool
	HandshakeFailures uint32
}

// PeerTable is a mutex-guarded map of PeerRecord keyed by peer ID, with the
// invariant that every record's PeerID field equals its map key.
type PeerTable struct {
	mu    sync.Mutex
	peers map[string]*PeerRecord
}

// NewPeerTable returns an empty PeerTable.
func NewPeerTable() *PeerTable {
	return &PeerTable{peers: make(map[string]*PeerRecord)}
}

// Upsert creates or updates the record for peerID, appending addr to its
// address list (deduplicated) if addr is non-empty, and returns the record.
func (t *PeerTable) Upsert(peerID string, nowMs int64, addr string) *PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.peers[peerID]
	if !ok {
		rec = &PeerRecord{PeerID: peerID, ConnectedAtMs: nowMs}
		t.peers[peerID] = rec
	}
	rec.LastSeenAtMs = nowMs
	if addr != "" {
		dup := false
		for _, a := range rec.Addresses {
			if a == addr {
				dup = true
				break
			}
		}
		if !dup {
			rec.Addresses = append(rec.Addresses, addr)
		}
	}
	return rec
}

// MarkVerified sets Verified=true on peerID's record, if it exists.
func (t *PeerTable) MarkVerified(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.peers[peerID]; ok {
		rec.Verified = true
	}
}

// IncrementHandshakeFailures bumps the failure counter on peerID's record,
// if it exists.
func (t *PeerTable) IncrementHandshakeFailures(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.peers[peerID]; ok {
		rec.HandshakeFailures++
	}
}

// Remove deletes the record for peerID.
func (t *PeerTable) Remove(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peerID)
}

// Get returns a copy of peerID's record, or nil if absent.
func (t *PeerTable) Get(peerID string) *PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.peers[peerID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// List returns a snapshot of every known PeerRecord.
func (t *PeerTable) List() []PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PeerRecord, 0, len(t.peers))
	for _, rec := range t.peers {
		out = append(out, *rec)
	}
	return out
}

// VerifiedCount returns the number of records with Verified=true, used as
// active_scouts in telemetry snapshots.
func (t *PeerTable) VerifiedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.peers {
		if rec.Verified {
			n++
		}
	}
	return n
}
