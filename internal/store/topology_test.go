package store

import (
	"path/filepath"
	"testing"
)

func TestTopologyStore_UpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	ts := NewTopologyStore(path)

	err := ts.Update(Topology{
		LocalPeerID:    "QmLocal",
		ListenAddrs:    []string{"/ip4/0.0.0.0/tcp/4001"},
		ConnectedPeers: []string{"QmA", "QmB"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded := NewTopologyStore(path)
	cur := reloaded.Current()
	if len(cur.ListenAddrs) != 1 || len(cur.ConnectedPeers) != 2 || cur.LocalPeerID != "QmLocal" {
		t.Fatalf("Current() after reload = %+v", cur)
	}
}

func TestTopologyStore_UpdateReplacesNotAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	ts := NewTopologyStore(path)

	ts.Update(Topology{ConnectedPeers: []string{"QmA"}})
	ts.Update(Topology{ConnectedPeers: []string{"QmB"}})

	cur := ts.Current()
	if len(cur.ConnectedPeers) != 1 || cur.ConnectedPeers[0] != "QmB" {
		t.Fatalf("Current() = %+v, want overwrite to [QmB]", cur)
	}
}

func TestTopologyStore_AddListenAddrDedups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	ts := NewTopologyStore(path)

	ts.AddListenAddr("/ip4/0.0.0.0/tcp/4001")
	ts.AddListenAddr("/ip4/0.0.0.0/tcp/4001")
	ts.AddListenAddr("/ip4/0.0.0.0/udp/4002/quic-v1")

	cur := ts.Current()
	if len(cur.ListenAddrs) != 2 {
		t.Fatalf("ListenAddrs = %v, want 2 entries", cur.ListenAddrs)
	}
}

func TestTopologyStore_MutateSetsTransportFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	ts := NewTopologyStore(path)

	ts.Mutate(func(t *Topology) {
		t.WSAddr = "/ip4/0.0.0.0/tcp/4101/ws/p2p/QmLocal"
		t.Capacity = 8
	})

	cur := ts.Current()
	if cur.WSAddr == "" || cur.Capacity != 8 {
		t.Fatalf("Current() = %+v, want WSAddr and Capacity set", cur)
	}
}

func TestTopologyStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	ts := NewTopologyStore(path)
	cur := ts.Current()
	if len(cur.ListenAddrs) != 0 || len(cur.ConnectedPeers) != 0 {
		t.Fatalf("Current() = %+v, want empty", cur)
	}
}
