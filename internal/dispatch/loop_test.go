package dispatch

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/zeebo/blake3"
	"go.uber.org/goleak"

	"github.com/shardmesh/shard-node/internal/reputation"
	"github.com/shardmesh/shard-node/internal/swarmnet"
	"github.com/shardmesh/shard-node/internal/telemetry"
	"github.com/shardmesh/shard-node/internal/wire"
)

// TestMain verifies no handler under test leaks a goroutine — relevant here
// since handleSwarmEvent's callbacks (ReplyPong, ReplyWorkAck) are exactly
// the kind of closure-over-a-channel code that leaks a blocked sender if a
// future change drops the receiving side.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLoop() *Loop {
	return &Loop{
		reputation: reputation.New(),
		histogram:  telemetry.NewHistogram(),
		results:    NewResultQueue(),
		backward:   NewBackwardGradientQueue(),
	}
}

// TestBlackholeGatesResultIntake mirrors the spec's "blackhole gates result
// intake" scenario: once a peer is blackholed, a gossip work-result from it
// must be dropped before any queue mutation.
func TestBlackholeGatesResultIntake(t *testing.T) {
	l := newTestLoop()

	for i := 0; i < 6; i++ {
		accepted := i == 0
		l.reputation.ApplyUpdate("C", accepted, "poisoned draft")
	}
	if !l.reputation.IsBlackholed("C") {
		t.Fatal("peer C should be blackholed after 5 consecutive failures")
	}

	before := l.results.Len()
	l.handleGossipWorkResult(swarmnet.Event{
		WorkResult: &wire.WorkResponse{RequestID: "r1", PeerID: "C"},
	})
	if l.results.Len() != before {
		t.Fatalf("ResultQueue size changed: before=%d after=%d, want unchanged", before, l.results.Len())
	}
}

func TestGossipWorkResultAdmittedWhenNotBlackholed(t *testing.T) {
	l := newTestLoop()
	l.handleGossipWorkResult(swarmnet.Event{
		WorkResult: &wire.WorkResponse{RequestID: "r1", PeerID: "A"},
	})
	if l.results.Len() != 1 {
		t.Fatalf("results.Len() = %d, want 1", l.results.Len())
	}
}

func TestGossipWorkResultRecordsLatency(t *testing.T) {
	l := newTestLoop()
	created := nowMs() - 42
	l.handleGossipWorkResult(swarmnet.Event{
		WorkResult: &wire.WorkResponse{RequestID: "r1", PeerID: "A", CreatedAtMs: &created},
	})
	p50, _, _ := l.histogram.Percentiles()
	if p50 != 50 {
		t.Fatalf("p50 = %d, want 50 (bucket edge for ~42ms)", p50)
	}
}

func TestHandleTrainingPacket_BackwardPassEnqueued(t *testing.T) {
	l := newTestLoop()
	grad := wire.BackwardPassGradient{RequestID: "r1", StepID: "s1", LayerPath: "layer.0"}
	payload, _ := json.Marshal(grad)
	l.handleTrainingPacket(swarmnet.Event{
		Training: &wire.TrainingGossipPacket{PacketType: wire.PacketTypeBackwardPass, Payload: payload},
	})
	if l.backward.Len() != 1 {
		t.Fatalf("backward.Len() = %d, want 1", l.backward.Len())
	}
}

func TestHandleTrainingPacket_ChecksumMismatchDropped(t *testing.T) {
	l := newTestLoop()
	grad := wire.BackwardPassGradient{
		RequestID: "r1",
		Chunk: &wire.TensorChunkRef{
			Data:           base64.StdEncoding.EncodeToString([]byte("payload")),
			ChecksumBlake3: hex.EncodeToString(make([]byte, 32)),
		},
	}
	payload, _ := json.Marshal(grad)
	l.handleTrainingPacket(swarmnet.Event{
		Training: &wire.TrainingGossipPacket{PacketType: wire.PacketTypeBackwardPass, Payload: payload},
	})
	if l.backward.Len() != 0 {
		t.Fatalf("backward.Len() = %d, want 0 (checksum mismatch should drop)", l.backward.Len())
	}
}

func TestHandleTrainingPacket_ChecksumMatchAdmitted(t *testing.T) {
	l := newTestLoop()
	data := []byte("payload")
	sum := blake3.Sum256(data)
	grad := wire.BackwardPassGradient{
		RequestID: "r1",
		Chunk: &wire.TensorChunkRef{
			Data:           base64.StdEncoding.EncodeToString(data),
			ChecksumBlake3: hex.EncodeToString(sum[:]),
		},
	}
	payload, _ := json.Marshal(grad)
	l.handleTrainingPacket(swarmnet.Event{
		Training: &wire.TrainingGossipPacket{PacketType: wire.PacketTypeBackwardPass, Payload: payload},
	})
	if l.backward.Len() != 1 {
		t.Fatalf("backward.Len() = %d, want 1", l.backward.Len())
	}
}

func TestPeerIDFromMultiaddr(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"/ip4/1.2.3.4/tcp/4001/p2p/QmAbc", "QmAbc"},
		{"/ip4/1.2.3.4/tcp/4001", ""},
	}
	for _, tc := range cases {
		if got := peerIDFromMultiaddr(tc.addr); got != tc.want {
			t.Errorf("peerIDFromMultiaddr(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}
