package identity

import "testing"

func TestGenerate_ProducesDistinctIdentitiesPerCall(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	idA, err := PeerID(a)
	if err != nil {
		t.Fatalf("PeerID: %v", err)
	}
	idB, err := PeerID(b)
	if err != nil {
		t.Fatalf("PeerID: %v", err)
	}

	if idA == idB {
		t.Fatal("two calls to Generate produced the same peer ID")
	}
}
