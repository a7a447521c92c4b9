package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/shardmesh/shard-node/internal/reputation"
	"github.com/shardmesh/shard-node/internal/store"
	"github.com/shardmesh/shard-node/internal/swarmnet"
	"github.com/shardmesh/shard-node/internal/telemetry"
	"github.com/shardmesh/shard-node/internal/validate"
	"github.com/shardmesh/shard-node/internal/wire"
)

// WorkChannelCapacity is the bounded work-submission channel's capacity,
// providing backpressure to the control plane.
const WorkChannelCapacity = 256

// Loop is the daemon's single-threaded reconciliation actor: the sole
// mutator of the swarm handle and peer table, and the only producer into the
// result and gradient queues (the control plane pops results).
type Loop struct {
	swarm      *swarmnet.Swarm
	reputation *reputation.Engine
	histogram  *telemetry.Histogram
	gauges     *telemetry.Gauges
	knownPeers *store.KnownPeers
	topology   *store.TopologyStore
	peers      *PeerTable
	results    *ResultQueue
	backward   *BackwardGradientQueue

	workCh            chan wire.WorkRequest
	reconnectInterval time.Duration

	// pendingPings maps peer ID to the sent_at_ms of an outstanding
	// outbound PING, cleared when its PONG arrives. Touched only from the
	// loop's own goroutine, so it needs no lock.
	pendingPings map[string]int64

	localPeerID string
}

// New constructs a Loop. The caller owns workCh's send side via SubmitWork.
func New(
	s *swarmnet.Swarm,
	rep *reputation.Engine,
	hist *telemetry.Histogram,
	gauges *telemetry.Gauges,
	kp *store.KnownPeers,
	topo *store.TopologyStore,
	reconnectInterval time.Duration,
) *Loop {
	return &Loop{
		swarm:             s,
		reputation:        rep,
		histogram:         hist,
		gauges:            gauges,
		knownPeers:        kp,
		topology:          topo,
		peers:             NewPeerTable(),
		results:           NewResultQueue(),
		backward:          NewBackwardGradientQueue(),
		workCh:            make(chan wire.WorkRequest, WorkChannelCapacity),
		reconnectInterval: reconnectInterval,
		pendingPings:      make(map[string]int64),
		localPeerID:       s.LocalPeerID().String(),
	}
}

// Peers exposes the peer table for the control plane's /peers endpoint.
func (l *Loop) Peers() *PeerTable { return l.peers }

// Results exposes the result queue for /pop-result.
func (l *Loop) Results() *ResultQueue { return l.results }

// Backward exposes the backward-gradient queue (control-plane read access,
// if ever needed; not currently surfaced by any named endpoint).
func (l *Loop) Backward() *BackwardGradientQueue { return l.backward }

// WorkQueueDepth reports the number of requests currently buffered on the
// work-submission channel, for health checks that watch for saturation.
func (l *Loop) WorkQueueDepth() int { return len(l.workCh) }

// SubmitWork enqueues req on the bounded work channel. It blocks if the
// channel is full, matching the control plane's documented backpressure
// contract for /broadcast-work.
func (l *Loop) SubmitWork(ctx context.Context, req wire.WorkRequest) error {
	select {
	case l.workCh <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }

// Run drives the loop until ctx is cancelled. Exactly one source is
// serviced per iteration: the reconnect timer, the work channel, or the
// swarm's event stream.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.reconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.reconnectTick(ctx)
		case req := <-l.workCh:
			l.handleWorkSubmission(ctx, req)
		case evt, ok := <-l.swarm.Events():
			if !ok {
				return nil
			}
			l.handleSwarmEvent(ctx, evt)
		}
	}
}

// reconnectTick dials every known address that does not contain the local
// peer ID; peers that are already connected are dialed as well. Dial
// failures are logged at debug, and every failed dial additionally tries one
// DHT FindPeer lookup before giving up for this tick, when a DHT is
// available.
func (l *Loop) reconnectTick(ctx context.Context) {
	known := l.knownPeers.List()
	for _, addr := range known {
		if strings.Contains(addr, l.localPeerID) {
			continue
		}
		if err := l.swarm.Dial(ctx, addr); err != nil {
			slog.Debug("dispatch: reconnect dial failed", "addr", addr, "error", err)
			l.tryDHTFallback(ctx, addr)
		}
	}
}

func (l *Loop) tryDHTFallback(ctx context.Context, addr string) {
	d := l.swarm.DHT()
	if d == nil {
		return
	}
	pid := peerIDFromMultiaddr(addr)
	if pid == "" {
		return
	}
	info, err := d.FindPeer(ctx, peer.ID(pid))
	if err != nil {
		slog.Debug("dispatch: DHT FindPeer failed", "addr", addr, "error", err)
		return
	}
	slog.Debug("dispatch: DHT FindPeer recovered addresses", "addr", addr, "count", len(info.Addrs))
}

// peerIDFromMultiaddr extracts the /p2p/<id> suffix, if present.
func peerIDFromMultiaddr(addr string) string {
	idx := strings.LastIndex(addr, "/p2p/")
	if idx == -1 {
		return ""
	}
	return addr[idx+len("/p2p/"):]
}

// handleWorkSubmission validates, stamps created_at_ms, and publishes req
// to the shard-work gossip topic. A publish failure is logged at warn and
// dropped — the HTTP caller already received a 200 on enqueue.
func (l *Loop) handleWorkSubmission(ctx context.Context, req wire.WorkRequest) {
	if err := validate.WorkRequest(req); err != nil {
		slog.Debug("dispatch: dropping invalid work submission", "error", err)
		return
	}
	if req.CreatedAtMs == nil {
		now := nowMs()
		req.CreatedAtMs = &now
	}
	if err := l.swarm.PublishWork(ctx, req); err != nil {
		slog.Warn("dispatch: work publish failed", "error", err)
	}
}

func (l *Loop) handleSwarmEvent(ctx context.Context, evt swarmnet.Event) {
	switch evt.Kind {
	case swarmnet.EventGossipWorkResult:
		l.handleGossipWorkResult(evt)
	case swarmnet.EventGossipTrainingPacket:
		l.handleTrainingPacket(evt)
	case swarmnet.EventControlWorkRequest:
		l.handleControlWorkRequest(ctx, evt)
	case swarmnet.EventHandshakePing:
		l.handleHandshakePing(evt)
	case swarmnet.EventHandshakePong:
		l.peers.MarkVerified(evt.PeerID.String())
		delete(l.pendingPings, evt.PeerID.String())
	case swarmnet.EventConnectionEstablished:
		l.handleConnectionEstablished(ctx, evt)
	case swarmnet.EventConnectionClosed:
		l.peers.Remove(evt.PeerID.String())
		delete(l.pendingPings, evt.PeerID.String())
	case swarmnet.EventNewListenAddr:
		l.handleNewListenAddr(evt)
	case swarmnet.EventIdentifyReceived:
		l.handleIdentifyReceived(evt)
	case swarmnet.EventAutoNATStatusChanged,
		swarmnet.EventRelayReservation,
		swarmnet.EventDCUTR,
		swarmnet.EventPing,
		swarmnet.EventKademlia:
		slog.Debug("dispatch: swarm status event", "kind", evt.Kind, "detail", evt.Detail)
	case swarmnet.EventOutgoingConnError:
		slog.Warn("dispatch: outgoing connection error", "peer", evt.PeerID, "detail", evt.Detail)
	}
}

// handleGossipWorkResult consults the blackhole list before any queue
// mutation: blackhole check happens-before queue insertion.
func (l *Loop) handleGossipWorkResult(evt swarmnet.Event) {
	resp := evt.WorkResult
	if l.reputation.IsBlackholed(resp.PeerID) {
		slog.Debug("dispatch: dropping result from blackholed peer", "peer", resp.PeerID)
		return
	}
	if resp.CreatedAtMs != nil {
		latency := float64(nowMs() - *resp.CreatedAtMs)
		if latency < 0 {
			latency = 0
		}
		l.histogram.Observe(latency)
	}
	l.results.Push(*resp)
}

func (l *Loop) handleTrainingPacket(evt swarmnet.Event) {
	pkt := evt.Training
	switch pkt.PacketType {
	case wire.PacketTypeForwardPass:
		var act wire.ForwardPassActivation
		if err := json.Unmarshal(pkt.Payload, &act); err != nil {
			slog.Debug("dispatch: malformed forward-pass payload", "error", err)
			return
		}
		if ok, err := validate.ChunkChecksum(act.Chunk); err != nil || !ok {
			slog.Debug("dispatch: forward-pass chunk checksum mismatch", "request_id", act.RequestID, "error", err)
			return
		}
		slog.Debug("dispatch: forward-pass activation received", "request_id", act.RequestID, "tensor", act.TensorName)
	case wire.PacketTypeBackwardPass:
		var grad wire.BackwardPassGradient
		if err := json.Unmarshal(pkt.Payload, &grad); err != nil {
			slog.Debug("dispatch: malformed backward-pass payload", "error", err)
			return
		}
		if ok, err := validate.ChunkChecksum(grad.Chunk); err != nil || !ok {
			slog.Debug("dispatch: backward-pass chunk checksum mismatch", "request_id", grad.RequestID, "error", err)
			return
		}
		slog.Debug("dispatch: backward-pass gradient received", "request_id", grad.RequestID, "layer", grad.LayerPath)
		l.backward.Push(grad)
	}
}

func (l *Loop) handleControlWorkRequest(ctx context.Context, evt swarmnet.Event) {
	req := *evt.WorkReq
	if req.CreatedAtMs == nil {
		now := nowMs()
		req.CreatedAtMs = &now
	}
	if err := l.swarm.PublishWork(ctx, req); err != nil {
		slog.Warn("dispatch: control-work republish failed", "error", err)
	}
	if evt.ReplyWorkAck != nil {
		evt.ReplyWorkAck("ack")
	}
}

func (l *Loop) handleHandshakePing(evt swarmnet.Event) {
	l.peers.MarkVerified(evt.PeerID.String())
	if evt.ReplyPong != nil {
		evt.ReplyPong(nowMs())
	}
}

// handleConnectionEstablished enforces PeerRecord insertion happens-before
// KnownPeers persistence happens-before outbound PING. A blackholed peer is
// disconnected immediately and skipped.
func (l *Loop) handleConnectionEstablished(ctx context.Context, evt swarmnet.Event) {
	peerID := evt.PeerID.String()
	if l.reputation.IsBlackholed(peerID) {
		slog.Debug("dispatch: disconnecting blackholed peer on connect", "peer", peerID)
		if err := l.swarm.Disconnect(evt.PeerID); err != nil {
			slog.Debug("dispatch: disconnect failed", "peer", peerID, "error", err)
		}
		return
	}

	l.peers.Upsert(peerID, nowMs(), evt.RemoteMA)

	if evt.RemoteMA != "" {
		if _, err := l.knownPeers.Add(evt.RemoteMA); err != nil {
			slog.Warn("dispatch: known_peers persist failed", "error", err)
		}
	}

	if err := l.swarm.SendHeartbeat(ctx, evt.PeerID); err != nil {
		slog.Debug("dispatch: outbound ping failed", "peer", peerID, "error", err)
		l.peers.IncrementHandshakeFailures(peerID)
		return
	}
	l.pendingPings[peerID] = nowMs()
}

// handleNewListenAddr appends the address to topology's listen_addresses
// and sets the transport-specific dial string, each composed as
// <addr>/p2p/<local_peer_id>.
func (l *Loop) handleNewListenAddr(evt swarmnet.Event) {
	addr := evt.Addr
	composed := addr + "/p2p/" + l.localPeerID

	l.topology.Mutate(func(t *store.Topology) {
		t.LocalPeerID = l.localPeerID
		dup := false
		for _, a := range t.ListenAddrs {
			if a == addr {
				dup = true
				break
			}
		}
		if !dup {
			t.ListenAddrs = append(t.ListenAddrs, addr)
		}

		switch {
		case strings.Contains(addr, "/ws"):
			t.WSAddr = composed
		case strings.Contains(addr, "/webrtc-direct/"):
			t.WebRTCAddr = composed
		case strings.Contains(addr, "/quic-v1"):
			t.QUICAddr = composed
		}
	})
}

// handleIdentifyReceived records the observed address as the topology's
// public API address, if none is set and the observed address isn't
// loopback.
func (l *Loop) handleIdentifyReceived(evt swarmnet.Event) {
	if evt.ObservedAddr == "" || strings.Contains(evt.ObservedAddr, "127.0.0.1") || strings.Contains(evt.ObservedAddr, "::1") {
		return
	}
	cur := l.topology.Current()
	if cur.PublicAPIAddr != "" {
		return
	}
	l.topology.Mutate(func(t *store.Topology) {
		if t.PublicAPIAddr == "" {
			t.PublicAPIAddr = evt.ObservedAddr
		}
	})
}
