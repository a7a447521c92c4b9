package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Topology is the local node's observed network shape: peer ID, listen
// addresses, per-transport dial strings, the externally observed address
// (if any), feature flags, and the advisory load gauges also mirrored in
// the telemetry package. The file is a flat overwrite-replace snapshot, not
// an append-only log.
type Topology struct {
	LocalPeerID    string   `json:"local_peer_id"`
	ListenAddrs    []string `json:"listen_addresses"`
	WSAddr         string   `json:"ws_addr,omitempty"`
	WebRTCAddr     string   `json:"webrtc_addr,omitempty"`
	QUICAddr       string   `json:"quic_addr,omitempty"`
	PublicAPIAddr  string   `json:"public_api_addr,omitempty"`
	IsPublic       bool     `json:"is_public"`
	RelayServer    bool     `json:"relay_server_enabled"`
	Contribute     bool     `json:"contribute_enabled"`
	Capacity       uint32   `json:"capacity"`
	Load           uint32   `json:"load"`
	LatencyMs      float32  `json:"latency_ms"`
	ConnectedPeers []string `json:"connected_peers,omitempty"`
}

// TopologyStore persists a Topology snapshot to disk, replacing the whole
// file on every update.
type TopologyStore struct {
	mu   sync.Mutex
	path string
	cur  Topology
}

// NewTopologyStore loads path if present, or starts with an empty snapshot.
func NewTopologyStore(path string) *TopologyStore {
	ts := &TopologyStore{path: path}
	_ = ts.load()
	return ts
}

func (ts *TopologyStore) load() error {
	data, err := os.ReadFile(ts.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read topology: %w", err)
	}
	var t Topology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	ts.cur = t
	return nil
}

// Update replaces the stored snapshot with t and persists it atomically.
func (ts *TopologyStore) Update(t Topology) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cur = t
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal topology: %w", err)
	}
	return atomicWrite(ts.path, data)
}

// AddListenAddr appends addr to the stored listen-address list if not
// already present, and persists the updated snapshot. Callers that also
// need to set ws_addr/webrtc_addr/quic_addr/public_api_addr should use
// Mutate instead, which does both in one write.
func (ts *TopologyStore) AddListenAddr(addr string) error {
	return ts.Mutate(func(t *Topology) {
		for _, a := range t.ListenAddrs {
			if a == addr {
				return
			}
		}
		t.ListenAddrs = append(t.ListenAddrs, addr)
	})
}

// Current returns a copy of the in-memory snapshot.
func (ts *TopologyStore) Current() Topology {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cur
}

// Mutate applies fn to a copy of the current snapshot and persists the
// result. fn is called with the store's lock released.
func (ts *TopologyStore) Mutate(fn func(*Topology)) error {
	ts.mu.Lock()
	cur := ts.cur
	ts.mu.Unlock()

	fn(&cur)
	return ts.Update(cur)
}
