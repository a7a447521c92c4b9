package swarmnet

import (
	"context"
	"fmt"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// DHT wraps a Kademlia instance used only as a reconnection fallback: when a
// known multiaddress fails to dial outright, the dispatch loop asks the DHT
// for a fresh address set before giving up for that tick.
type DHT struct {
	kad *dht.IpfsDHT
}

func newDHT(ctx context.Context, h host.Host, bootstrap []string) (*DHT, error) {
	kad, err := dht.New(ctx, h, dht.Mode(dht.ModeAuto))
	if err != nil {
		return nil, fmt.Errorf("create dht: %w", err)
	}

	if err := kad.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap dht: %w", err)
	}

	for _, addrStr := range bootstrap {
		maddr, err := ma.NewMultiaddr(addrStr)
		if err != nil {
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			continue
		}
		go func(info peer.AddrInfo) {
			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			_ = h.Connect(dialCtx, info)
		}(*info)
	}

	return &DHT{kad: kad}, nil
}

// FindPeer looks up fresh addresses for pid, with a bounded timeout.
func (d *DHT) FindPeer(ctx context.Context, pid peer.ID) (peer.AddrInfo, error) {
	findCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.kad.FindPeer(findCtx, pid)
}
