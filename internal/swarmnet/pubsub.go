package swarmnet

import (
	"context"
	"encoding/json"
	"log/slog"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"

	"github.com/shardmesh/shard-node/internal/wire"
)

const (
	topicWork         = wire.TopicWork
	topicWorkResult   = wire.TopicWorkResult
	topicForwardPass  = wire.TopicForwardPass
	topicBackwardPass = wire.TopicBackwardPass
	topicAuctionQueue = wire.TopicAuctionQueue
)

// PubSub wraps a gossipsub router and the handful of topic handles the
// daemon publishes to or subscribes on.
type PubSub struct {
	router *pubsub.PubSub
	topics map[string]*pubsub.Topic
}

func newPubSub(ctx context.Context, h host.Host, sw *Swarm) (*PubSub, error) {
	router, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}

	ps := &PubSub{router: router, topics: make(map[string]*pubsub.Topic)}

	for _, name := range []string{topicWork, topicWorkResult, topicForwardPass, topicBackwardPass, topicAuctionQueue} {
		t, err := router.Join(name)
		if err != nil {
			return nil, err
		}
		ps.topics[name] = t
	}

	if err := ps.subscribeAndHandle(ctx, topicWorkResult, sw, handleWorkResult); err != nil {
		return nil, err
	}
	if err := ps.subscribeAndHandle(ctx, topicForwardPass, sw, handleTrainingPacket); err != nil {
		return nil, err
	}
	if err := ps.subscribeAndHandle(ctx, topicBackwardPass, sw, handleTrainingPacket); err != nil {
		return nil, err
	}
	if err := ps.subscribeAndHandle(ctx, topicAuctionQueue, sw, nil); err != nil {
		return nil, err
	}

	return ps, nil
}

// subscribeAndHandle subscribes to name and runs decode (if non-nil) over
// every inbound message, discarding own-published messages. A nil decode
// drains the subscription without emitting events — membership only, per
// the auction.prompt topic's contract.
func (ps *PubSub) subscribeAndHandle(ctx context.Context, name string, sw *Swarm, decode func([]byte, *Swarm)) error {
	topic := ps.topics[name]
	sub, err := topic.Subscribe()
	if err != nil {
		return err
	}

	go func() {
		defer sub.Cancel()
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				return
			}
			if msg.ReceivedFrom == sw.host.ID() {
				continue
			}
			if decode != nil {
				decode(msg.Data, sw)
			}
		}
	}()
	return nil
}

func handleWorkResult(data []byte, sw *Swarm) {
	var resp wire.WorkResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Debug("swarmnet: malformed work-result gossip message", "error", err)
		return
	}
	sw.emit(Event{Kind: EventGossipWorkResult, WorkResult: &resp})
}

func handleTrainingPacket(data []byte, sw *Swarm) {
	var pkt wire.TrainingGossipPacket
	if err := json.Unmarshal(data, &pkt); err != nil {
		slog.Debug("swarmnet: malformed training gossip message", "error", err)
		return
	}
	sw.emit(Event{Kind: EventGossipTrainingPacket, Training: &pkt})
}

// publishJSON marshals v and publishes it on the named topic.
func (ps *PubSub) publishJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ps.topics[name].Publish(ctx, data)
}

// ListPeers returns the number of peers gossipsub knows on a topic.
func (ps *PubSub) ListPeers(name string) int {
	return len(ps.router.ListPeers(name))
}
