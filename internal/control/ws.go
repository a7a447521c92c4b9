package control

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const telemetryInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleTelemetryWS upgrades the connection and pushes a snapshot every
// two seconds until the peer disconnects or a write fails.
func (s *Server) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("control: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.WSClientsActive.Inc()
	defer s.metrics.WSClientsActive.Dec()

	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()

	for range ticker.C {
		snap := s.snapshot()
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func (s *Server) snapshot() telemetrySnapshot {
	connected := len(s.loop.Peers().List())
	activeScouts := s.loop.Peers().VerifiedCount()

	capacity := float64(s.gauges.Capacity())
	load := float64(s.gauges.CurrentLoad())

	denom := capacity
	if denom <= 0 {
		denom = 1
	}
	utilization := clamp(load/denom, 0, 1.5)

	peerFactor := float64(connected)
	if peerFactor < 1 {
		peerFactor = 1
	}

	globalTFlops := round2(((capacity * peerFactor) / 120.0) * (1 + utilization*0.2))

	return telemetrySnapshot{
		ConnectedPeers: connected,
		ActiveScouts:   activeScouts,
		GlobalTFlops:   globalTFlops,
		SampledAtMs:    time.Now().UnixMilli(),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
