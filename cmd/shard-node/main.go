// Command shard-node runs the gossip-overlay sidecar daemon: a libp2p
// swarm, a reputation-gated dispatch loop, and an HTTP+WebSocket control
// plane, all driven from command-line flags.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shardmesh/shard-node/internal/config"
	"github.com/shardmesh/shard-node/internal/control"
	"github.com/shardmesh/shard-node/internal/dispatch"
	"github.com/shardmesh/shard-node/internal/identity"
	"github.com/shardmesh/shard-node/internal/reputation"
	"github.com/shardmesh/shard-node/internal/store"
	"github.com/shardmesh/shard-node/internal/swarmnet"
	"github.com/shardmesh/shard-node/internal/telemetry"
	"github.com/shardmesh/shard-node/internal/watchdog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) >= 2 && (os.Args[1] == "version" || os.Args[1] == "--version") {
		printVersion()
		return
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "shard-node: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	fmt.Printf("shard-node %s (%s)\n", version, commit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("shard-node exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	priv, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}
	peerID, err := identity.PeerID(priv)
	if err != nil {
		return fmt.Errorf("derive peer ID: %w", err)
	}
	slog.Info("identity generated", "peer_id", peerID.String())

	stateDir, err := os.UserConfigDir()
	if err != nil {
		stateDir = "."
	}
	stateDir = stateDir + "/shard-node"
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	knownPeers := store.NewKnownPeers(stateDir + "/known_peers.json")
	topology := store.NewTopologyStore(stateDir + "/topology.json")
	rep := reputation.New()
	histogram := telemetry.NewHistogram()
	gauges := telemetry.NewGauges()
	gauges.SetCapacity(uint32(cfg.Capacity))

	// KnownPeers is the union of the CLI/bootstrap-file list and whatever
	// was already persisted from a prior run; insertion order is preserved
	// and duplicates are dropped by first occurrence (store.KnownPeers.Add).
	for _, addr := range cfg.BootstrapPeers {
		if _, err := knownPeers.Add(addr); err != nil {
			slog.Warn("seed known_peers from bootstrap list failed", "addr", addr, "error", err)
		}
	}

	ports := swarmnet.ListenPorts{TCP: cfg.TCPPort, WebRTC: cfg.WebRTCPort, QUIC: cfg.QUICPort}
	swarm, err := swarmnet.New(ctx, priv, ports, cfg.BootstrapPeers, cfg.NATTraversal)
	if err != nil {
		return fmt.Errorf("start swarm: %w", err)
	}
	defer swarm.Close()

	if err := topology.Update(store.Topology{
		LocalPeerID:   peerID.String(),
		PublicAPIAddr: cfg.PublicHost,
		IsPublic:      cfg.PublicAPI,
		RelayServer:   cfg.RelayServer,
		Contribute:    cfg.Contribute,
		Capacity:      uint32(cfg.Capacity),
	}); err != nil {
		slog.Warn("initial topology write failed", "error", err)
	}

	loop := dispatch.New(swarm, rep, histogram, gauges, knownPeers, topology, time.Duration(cfg.ReconnectSecs)*time.Second)

	controlAddr := fmt.Sprintf(":%d", cfg.ControlPort)
	wsAddr := fmt.Sprintf(":%d", cfg.TelemetryWSPort)
	if !cfg.PublicAPI {
		controlAddr = "127.0.0.1" + controlAddr
		wsAddr = "127.0.0.1" + wsAddr
	}
	srv := control.New(controlAddr, wsAddr, loop, rep, histogram, gauges, topology, peerID.String())

	fmt.Printf("control plane:    %s\n", controlAddr)
	fmt.Printf("telemetry ws:     %s\n", wsAddr)
	fmt.Printf("swarm listen:     %v\n", swarmnet.ListenAddrs(ports))
	fmt.Println()

	if err := watchdog.Ready(); err != nil {
		slog.Debug("sd_notify READY failed", "error", err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		watchdog.Run(gctx, watchdog.Config{Interval: 30 * time.Second}, []watchdog.HealthCheck{
			watchdog.SwarmHostHealthCheck(func() bool { return swarm.Host() != nil }),
			watchdog.WorkQueueHealthCheck(loop.WorkQueueDepth, dispatch.WorkChannelCapacity),
		})
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig.String())
			_ = watchdog.Stopping()
			runCancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion() {
	fmt.Printf("shard-node %s (%s) built %s\n", version, commit, buildDate)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
