// Package swarmnet wraps the libp2p host, gossipsub mesh, Kademlia DHT, and
// the daemon's CBOR-framed request/response protocols behind a single event
// channel and command surface, consumed exclusively by the dispatch loop.
package swarmnet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	libp2pwebrtc "github.com/libp2p/go-libp2p/p2p/transport/webrtc"
	ws "github.com/libp2p/go-libp2p/p2p/transport/websocket"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/shardmesh/shard-node/internal/wire"
)

// ListenPorts are the three ports from which the four listen multiaddresses
// are derived at startup.
type ListenPorts struct {
	TCP    int
	WebRTC int
	QUIC   int
}

// ListenAddrs returns the four listen multiaddress strings bound at
// startup: plain TCP, TCP+WebSocket on tcp+100, WebRTC-direct, and QUIC.
func ListenAddrs(p ListenPorts) []string {
	return []string{
		fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", p.TCP),
		fmt.Sprintf("/ip4/0.0.0.0/tcp/%d/ws", p.TCP+100),
		fmt.Sprintf("/ip4/0.0.0.0/udp/%d/webrtc-direct", p.WebRTC),
		fmt.Sprintf("/ip4/0.0.0.0/udp/%d/quic-v1", p.QUIC),
	}
}

// Swarm is the daemon's sole owner of the libp2p host. All mutation of the
// host or its derived services flows through the dispatch loop, which is
// the only consumer of Events().
type Swarm struct {
	host host.Host
	ps   *PubSub
	dht  *DHT

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs the libp2p host with TCP, WebSocket, WebRTC-direct, and
// QUIC transports, joins the gossip topics, sets up the request/response
// protocol handlers, and bootstraps a Kademlia DHT instance. natTraversal
// controls whether port mapping and hole punching are registered.
func New(ctx context.Context, priv crypto.PrivKey, ports ListenPorts, bootstrap []string, natTraversal bool) (*Swarm, error) {
	sctx, cancel := context.WithCancel(ctx)

	opts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.ProtocolVersion(wire.IdentifyProtocolVersion),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Transport(libp2pquic.NewTransport),
		libp2p.Transport(ws.New),
		libp2p.Transport(libp2pwebrtc.New),
		libp2p.ListenAddrStrings(ListenAddrs(ports)...),
	}
	if natTraversal {
		opts = append(opts, libp2p.NATPortMap(), libp2p.EnableHolePunching())
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	s := &Swarm{
		host:   h,
		events: make(chan Event, 256),
		ctx:    sctx,
		cancel: cancel,
	}

	ps, err := newPubSub(sctx, h, s)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("start gossipsub: %w", err)
	}
	s.ps = ps

	d, err := newDHT(sctx, h, bootstrap)
	if err != nil {
		slog.Warn("swarmnet: DHT bootstrap failed, continuing without it", "error", err)
	} else {
		s.dht = d
	}

	registerProtocolHandlers(s)
	s.watchHostEvents()

	return s, nil
}

// Host returns the underlying libp2p host.
func (s *Swarm) Host() host.Host { return s.host }

// LocalPeerID returns this node's peer ID.
func (s *Swarm) LocalPeerID() peer.ID { return s.host.ID() }

// Events returns the channel the dispatch loop drains.
func (s *Swarm) Events() <-chan Event { return s.events }

// Dial attempts to connect to the peer described by addrStr. Failures are
// the caller's responsibility to log; Dial itself only returns the error.
func (s *Swarm) Dial(ctx context.Context, addrStr string) error {
	maddr, err := ma.NewMultiaddr(addrStr)
	if err != nil {
		return fmt.Errorf("parse multiaddr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("parse peer info: %w", err)
	}
	return s.host.Connect(ctx, *info)
}

// Disconnect forcibly closes all connections to pid.
func (s *Swarm) Disconnect(pid peer.ID) error {
	return s.host.Network().ClosePeer(pid)
}

// DHT exposes the Kademlia FindPeer fallback used by the reconnect tick. It
// is nil if bootstrapping failed at startup.
func (s *Swarm) DHT() *DHT { return s.dht }

// PublishWork serializes v as JSON and publishes it on the shard-work topic.
func (s *Swarm) PublishWork(ctx context.Context, v any) error {
	return s.ps.publishJSON(ctx, topicWork, v)
}

// Close tears down the host and all derived services.
func (s *Swarm) Close() error {
	s.cancel()
	return s.host.Close()
}

// watchHostEvents subscribes to the libp2p event bus for listen-address,
// identify-completion, and NAT device-type notifications and forwards them
// onto the Swarm's event channel, plus a network.Notifiee for connection
// established/closed (the event bus only reports connectedness changes,
// not per-connection remote address, which the dispatch loop needs).
func (s *Swarm) watchHostEvents() {
	s.host.Network().Notify(&notifee{swarm: s})

	s.subscribeBus(new(event.EvtLocalAddressesUpdated))
	s.subscribeBus(new(event.EvtPeerIdentificationCompleted))
	s.subscribeBus(new(event.EvtNATDeviceTypeChanged))
}

func (s *Swarm) subscribeBus(eventType any) {
	sub, err := s.host.EventBus().Subscribe(eventType)
	if err != nil {
		slog.Error("swarmnet: event bus subscribe failed", "error", err)
		return
	}

	go func() {
		defer sub.Close()
		for {
			select {
			case <-s.ctx.Done():
				return
			case evt, ok := <-sub.Out():
				if !ok {
					return
				}
				s.handleBusEvent(evt)
			}
		}
	}()
}

func (s *Swarm) handleBusEvent(evt any) {
	switch e := evt.(type) {
	case event.EvtLocalAddressesUpdated:
		for _, u := range e.Current {
			s.emitNewListenAddr(u.Address.String())
		}
	case event.EvtPeerIdentificationCompleted:
		obs := ""
		if e.ObservedAddr != nil {
			obs = e.ObservedAddr.String()
		}
		s.emit(Event{Kind: EventIdentifyReceived, PeerID: e.Peer, ObservedAddr: obs})
	case event.EvtNATDeviceTypeChanged:
		s.emit(Event{Kind: EventAutoNATStatusChanged, Detail: e.NatDeviceType.String()})
	}
}

func (s *Swarm) emitNewListenAddr(addr string) {
	s.emit(Event{Kind: EventNewListenAddr, Addr: addr})
}

// emit delivers evt to the dispatch loop, giving up once the swarm context
// is cancelled so bus goroutines never block past shutdown.
func (s *Swarm) emit(evt Event) {
	select {
	case s.events <- evt:
	case <-s.ctx.Done():
	}
}

// notifee forwards libp2p network.Notifiee callbacks onto the swarm's
// event channel.
type notifee struct {
	swarm *Swarm
}

func (n *notifee) Connected(net network.Network, c network.Conn) {
	n.swarm.emit(Event{
		Kind:     EventConnectionEstablished,
		PeerID:   c.RemotePeer(),
		RemoteMA: c.RemoteMultiaddr().String(),
	})
}

func (n *notifee) Disconnected(net network.Network, c network.Conn) {
	n.swarm.emit(Event{Kind: EventConnectionClosed, PeerID: c.RemotePeer()})
}

func (n *notifee) Listen(network.Network, ma.Multiaddr)      {}
func (n *notifee) ListenClose(network.Network, ma.Multiaddr) {}
