package store

import (
	"path/filepath"
	"testing"
)

func TestKnownPeers_AddDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_peers.json")
	kp := NewKnownPeers(path)

	added, err := kp.Add("/ip4/1.2.3.4/tcp/4001/p2p/QmA")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("expected first Add to report added=true")
	}

	added, err = kp.Add("/ip4/1.2.3.4/tcp/4001/p2p/QmA")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added {
		t.Fatal("expected duplicate Add to report added=false")
	}

	if got := kp.List(); len(got) != 1 {
		t.Fatalf("List() = %v, want 1 entry", got)
	}
}

func TestKnownPeers_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_peers.json")
	kp := NewKnownPeers(path)
	kp.Add("/ip4/1.2.3.4/tcp/4001/p2p/QmA")
	kp.Add("/ip4/5.6.7.8/tcp/4001/p2p/QmB")

	reloaded := NewKnownPeers(path)
	got := reloaded.List()
	if len(got) != 2 {
		t.Fatalf("List() after reload = %v, want 2 entries", got)
	}
}

func TestKnownPeers_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	kp := NewKnownPeers(path)
	if got := kp.List(); len(got) != 0 {
		t.Fatalf("List() = %v, want empty", got)
	}
}

func TestKnownPeers_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_peers.json")
	if err := atomicWrite(path, []byte("{not valid json")); err != nil {
		t.Fatalf("atomicWrite: %v", err)
	}
	kp := NewKnownPeers(path)
	if got := kp.List(); len(got) != 0 {
		t.Fatalf("List() = %v, want empty on corrupt file", got)
	}
}
