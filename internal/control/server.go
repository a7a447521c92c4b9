// Package control implements the daemon's HTTP and WebSocket surface: the
// only interface the rest of the overlay network — and operators — use to
// inspect topology, submit work, poll results, and adjust reputation.
package control

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shardmesh/shard-node/internal/dispatch"
	"github.com/shardmesh/shard-node/internal/reputation"
	"github.com/shardmesh/shard-node/internal/store"
	"github.com/shardmesh/shard-node/internal/telemetry"
)

// Server is the control plane's HTTP listener.
type Server struct {
	loop       *dispatch.Loop
	reputation *reputation.Engine
	histogram  *telemetry.Histogram
	gauges     *telemetry.Gauges
	topology   *store.TopologyStore
	metrics    *Metrics

	localPeerID string
	startedAt   time.Time

	httpServer *http.Server
	wsServer   *http.Server
}

// New builds a Server bound to addr (e.g. ":9091") for the HTTP control
// plane, plus a second listener on wsAddr (e.g. ":9093") dedicated to the
// /telemetry/ws upgrade, matching the daemon's separate
// --control-port/--telemetry-ws-port CLI surface. Neither starts listening
// until Run is called.
func New(
	addr string,
	wsAddr string,
	loop *dispatch.Loop,
	rep *reputation.Engine,
	hist *telemetry.Histogram,
	gauges *telemetry.Gauges,
	topo *store.TopologyStore,
	localPeerID string,
) *Server {
	s := &Server{
		loop:        loop,
		reputation:  rep,
		histogram:   hist,
		gauges:      gauges,
		topology:    topo,
		metrics:     NewMetrics(),
		localPeerID: localPeerID,
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           instrument(mux, s.metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("GET /telemetry/ws", s.handleTelemetryWS)
	s.wsServer = &http.Server{
		Addr:              wsAddr,
		Handler:           instrument(wsMux, s.metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run listens on both the HTTP control plane and the telemetry WebSocket
// ports until ctx is cancelled, then shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control server: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("telemetry ws server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		_ = s.wsServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.httpServer.Shutdown(shutdownCtx)
			_ = s.wsServer.Shutdown(shutdownCtx)
		}
		return err
	}
}
