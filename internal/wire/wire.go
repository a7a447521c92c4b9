// Package wire defines the gossip and request/response message shapes
// exchanged with remote peers, plus the topic and protocol identifiers they
// travel on. Field names are normative: gossip messages are JSON-encoded,
// request/response bodies are CBOR-encoded.
package wire

import (
	"encoding/json"

	"github.com/libp2p/go-libp2p/core/protocol"
)

// Gossip topics.
const (
	TopicWork         = "shard-work"
	TopicWorkResult   = "shard-work-result"
	TopicForwardPass  = "shard-forward-pass"
	TopicBackwardPass = "shard-backward-pass"
	TopicAuctionQueue = "auction.prompt"
)

// Request/response protocol IDs.
const (
	ProtocolHandshake  = protocol.ID("/shard/1.0.0/handshake")
	ProtocolVerify     = protocol.ID("/shard/shard/verify/1.0.0")
	ProtocolControlReq = protocol.ID("/shard/control/work/1.0.0")
)

// IdentifyProtocolVersion is advertised to peers via the identify protocol.
const IdentifyProtocolVersion = "/shard/1.0.0"

// WorkRequest is published on TopicWork and carried by ProtocolControlReq.
type WorkRequest struct {
	RequestID     string `json:"request_id" cbor:"request_id"`
	PromptContext string `json:"prompt_context" cbor:"prompt_context"`
	MinTokens     int32  `json:"min_tokens" cbor:"min_tokens"`
	CreatedAtMs   *int64 `json:"created_at_ms,omitempty" cbor:"created_at_ms,omitempty"`
}

// WorkResponse is consumed from TopicWorkResult.
type WorkResponse struct {
	RequestID   string   `json:"request_id"`
	PeerID      string   `json:"peer_id"`
	DraftTokens []string `json:"draft_tokens"`
	LatencyMs   float32  `json:"latency_ms"`
	CreatedAtMs *int64   `json:"created_at_ms,omitempty"`
}

// TensorFormat enumerates the activation/gradient encodings the training
// plane may use.
type TensorFormat string

const (
	TensorFormatFP16      TensorFormat = "fp16"
	TensorFormatFP32      TensorFormat = "fp32"
	TensorFormatBF16      TensorFormat = "bf16"
	TensorFormatQuantized TensorFormat = "quantized"
)

// TensorChunkRef describes one chunk of an inline-chunked tensor payload.
type TensorChunkRef struct {
	ChunkIndex     int    `json:"chunk_index"`
	TotalChunks    int    `json:"total_chunks"`
	ByteSize       int64  `json:"byte_size"`
	ChecksumBlake3 string `json:"checksum_blake3,omitempty"`
	Data           string `json:"data"`
}

// TensorBlobRef points at an out-of-band tensor blob.
type TensorBlobRef struct {
	URI            string `json:"uri"`
	ByteSize       int64  `json:"byte_size"`
	ChecksumBlake3 string `json:"checksum_blake3,omitempty"`
	ExpiresAtMs    *int64 `json:"expires_at_ms,omitempty"`
}

// ForwardPassActivation is the payload carried by a "forward_pass"
// TrainingGossipPacket.
type ForwardPassActivation struct {
	RequestID    string          `json:"request_id"`
	StepID       string          `json:"step_id"`
	SourcePeerID string          `json:"source_peer_id"`
	TargetPeerID *string         `json:"target_peer_id,omitempty"`
	TensorName   string          `json:"tensor_name"`
	Shape        []int           `json:"shape"`
	Format       TensorFormat    `json:"format"`
	Chunk        *TensorChunkRef `json:"chunk,omitempty"`
	BlobRef      *TensorBlobRef  `json:"blob_ref,omitempty"`
	CreatedAtMs  *int64          `json:"created_at_ms,omitempty"`
}

// BackwardPassGradient is the payload carried by a "backward_pass"
// TrainingGossipPacket. It has the same tensor payload shape as
// ForwardPassActivation plus gradient-specific routing fields.
type BackwardPassGradient struct {
	RequestID     string          `json:"request_id"`
	StepID        string          `json:"step_id"`
	MicrobatchID  string          `json:"microbatch_id"`
	LayerPath     string          `json:"layer_path"`
	SourcePeerID  string          `json:"source_peer_id"`
	TargetPeerID  *string         `json:"target_peer_id,omitempty"`
	TensorName    string          `json:"tensor_name"`
	Shape         []int           `json:"shape"`
	Format        TensorFormat    `json:"format"`
	Chunk         *TensorChunkRef `json:"chunk,omitempty"`
	BlobRef       *TensorBlobRef  `json:"blob_ref,omitempty"`
	CreatedAtMs   *int64          `json:"created_at_ms,omitempty"`
}

// PacketType tags the external envelope of a TrainingGossipPacket. The
// {packet_type, payload} shape must stay bit-exact for wire compatibility
// with the rest of the peer corpus.
type PacketType string

const (
	PacketTypeForwardPass  PacketType = "forward_pass"
	PacketTypeBackwardPass PacketType = "backward_pass"
)

// TrainingGossipPacket is the tagged-variant envelope published on
// TopicForwardPass / TopicBackwardPass. Payload holds the raw JSON for
// whichever variant PacketType names; callers re-decode it into
// ForwardPassActivation or BackwardPassGradient once the tag is known.
type TrainingGossipPacket struct {
	PacketType PacketType      `json:"packet_type"`
	Payload    json.RawMessage `json:"payload"`
}

// HeartbeatKind distinguishes a PING from its PONG reply.
type HeartbeatKind string

const (
	HeartbeatPing HeartbeatKind = "PING"
	HeartbeatPong HeartbeatKind = "PONG"
)

// Heartbeat is the CBOR body of ProtocolHandshake.
type Heartbeat struct {
	Kind     HeartbeatKind `cbor:"kind"`
	SentAtMs int64         `cbor:"sent_at_ms"`
}

// DraftSubmission is the CBOR request body of ProtocolVerify.
type DraftSubmission struct {
	TaskID      string   `cbor:"task_id"`
	ScoutPeerID string   `cbor:"scout_peer_id"`
	SeqStart    uint32   `cbor:"seq_start"`
	DraftTokens []uint32 `cbor:"draft_tokens"`
}
