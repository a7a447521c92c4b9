package swarmnet

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/shardmesh/shard-node/internal/wire"
)

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventGossipWorkResult EventKind = iota
	EventGossipTrainingPacket
	EventControlWorkRequest
	EventHandshakePing
	EventHandshakePong
	EventConnectionEstablished
	EventConnectionClosed
	EventNewListenAddr
	EventIdentifyReceived
	EventAutoNATStatusChanged
	EventRelayReservation
	EventDCUTR
	EventPing
	EventKademlia
	EventOutgoingConnError
)

// Event is the swarm's single event type, consumed exclusively by the
// dispatch loop. Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	PeerID       peer.ID
	RemoteMA     string // remote multiaddress, for connection events
	Addr         string // listen address, for EventNewListenAddr
	ObservedAddr string // identify's observed address

	WorkResult *wire.WorkResponse
	Training   *wire.TrainingGossipPacket
	WorkReq    *wire.WorkRequest

	// ReplyWorkAck, when non-nil, must be invoked by the dispatch loop with
	// the ack string to send back over the open control-work stream.
	ReplyWorkAck func(ack string)

	// ReplyPong, when non-nil, must be invoked to send a PONG back over the
	// open handshake stream.
	ReplyPong func(sentAtMs int64)

	SentAtMs int64 // heartbeat sent_at_ms

	Detail string // free-form text for log-only events and error cases
}
