package swarmnet

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/shardmesh/shard-node/internal/wire"
)

const streamTimeout = 15 * time.Second

// registerProtocolHandlers wires the three CBOR-framed request/response
// protocols onto h. Each CBOR item is self-delimiting, so a single
// Decode/Encode pair is one request or response — no length prefix needed.
func registerProtocolHandlers(sw *Swarm) {
	h := sw.host
	h.SetStreamHandler(wire.ProtocolHandshake, func(s network.Stream) {
		s.SetDeadline(time.Now().Add(streamTimeout))

		var hb wire.Heartbeat
		if err := cbor.NewDecoder(s).Decode(&hb); err != nil {
			slog.Debug("swarmnet: handshake decode failed", "peer", s.Conn().RemotePeer(), "error", err)
			s.Close()
			return
		}

		switch hb.Kind {
		case wire.HeartbeatPing:
			// s stays open: the dispatch loop invokes ReplyPong over it once
			// it reaches this event, and the closure closes s afterward.
			reply := func(sentAtMs int64) {
				defer s.Close()
				pong := wire.Heartbeat{Kind: wire.HeartbeatPong, SentAtMs: sentAtMs}
				if err := cbor.NewEncoder(s).Encode(pong); err != nil {
					slog.Debug("swarmnet: pong encode failed", "error", err)
				}
			}
			sw.emit(Event{Kind: EventHandshakePing, PeerID: s.Conn().RemotePeer(), SentAtMs: hb.SentAtMs, ReplyPong: reply})
		case wire.HeartbeatPong:
			s.Close()
			sw.emit(Event{Kind: EventHandshakePong, PeerID: s.Conn().RemotePeer(), SentAtMs: hb.SentAtMs})
		}
	})

	h.SetStreamHandler(wire.ProtocolControlReq, func(s network.Stream) {
		s.SetDeadline(time.Now().Add(streamTimeout))

		var req wire.WorkRequest
		if err := cbor.NewDecoder(s).Decode(&req); err != nil {
			slog.Debug("swarmnet: control-work decode failed", "peer", s.Conn().RemotePeer(), "error", err)
			s.Close()
			return
		}

		// s stays open: the dispatch loop invokes ReplyWorkAck over it once
		// it reaches this event, and the closure closes s afterward.
		reply := func(ack string) {
			defer s.Close()
			if err := cbor.NewEncoder(s).Encode(ack); err != nil {
				slog.Debug("swarmnet: control-work ack encode failed", "error", err)
			}
		}
		sw.emit(Event{Kind: EventControlWorkRequest, PeerID: s.Conn().RemotePeer(), WorkReq: &req, ReplyWorkAck: reply})
	})

	h.SetStreamHandler(wire.ProtocolVerify, func(s network.Stream) {
		defer s.Close()
		s.SetDeadline(time.Now().Add(streamTimeout))

		var sub wire.DraftSubmission
		if err := cbor.NewDecoder(s).Decode(&sub); err != nil {
			slog.Debug("swarmnet: verify decode failed", "peer", s.Conn().RemotePeer(), "error", err)
			return
		}
		slog.Debug("swarmnet: draft submission received", "peer", s.Conn().RemotePeer(), "task_id", sub.TaskID)
		if err := cbor.NewEncoder(s).Encode("received"); err != nil {
			slog.Debug("swarmnet: verify ack encode failed", "error", err)
		}
	})
}

// SendHeartbeat opens a handshake stream to pid and sends a PING. The PONG
// arrives on the same stream; it is read off the dispatch loop's thread and
// surfaced as an EventHandshakePong so the loop can mark the peer verified.
func (s *Swarm) SendHeartbeat(ctx context.Context, pid peer.ID) error {
	sctx, cancel := context.WithTimeout(ctx, streamTimeout)

	stream, err := s.host.NewStream(sctx, pid, wire.ProtocolHandshake)
	if err != nil {
		cancel()
		return err
	}
	stream.SetDeadline(time.Now().Add(streamTimeout))

	ping := wire.Heartbeat{Kind: wire.HeartbeatPing, SentAtMs: nowMs()}
	if err := cbor.NewEncoder(stream).Encode(ping); err != nil {
		cancel()
		stream.Close()
		return err
	}

	go func() {
		defer cancel()
		defer stream.Close()

		var pong wire.Heartbeat
		if err := cbor.NewDecoder(stream).Decode(&pong); err != nil {
			slog.Debug("swarmnet: pong decode failed", "peer", pid, "error", err)
			return
		}
		if pong.Kind != wire.HeartbeatPong {
			slog.Debug("swarmnet: unexpected handshake reply", "peer", pid, "kind", pong.Kind)
			return
		}
		s.emit(Event{Kind: EventHandshakePong, PeerID: pid, SentAtMs: pong.SentAtMs})
	}()
	return nil
}

func nowMs() int64 { return time.Now().UnixMilli() }
