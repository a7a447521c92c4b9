package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ControlPort != 9091 || cfg.TelemetryWSPort != 9093 || cfg.TCPPort != 4001 ||
		cfg.WebRTCPort != 9090 || cfg.QUICPort != 9092 {
		t.Fatalf("unexpected default ports: %+v", cfg)
	}
	if cfg.ReconnectSecs != 20 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Contribute || !cfg.NATTraversal || cfg.PublicAPI || cfg.RelayServer {
		t.Fatalf("unexpected bool defaults: %+v", cfg)
	}
	if cfg.Capacity != 1 {
		t.Fatalf("Capacity = %d, want default 1", cfg.Capacity)
	}
}

func TestParse_CapacityFlag(t *testing.T) {
	cfg, err := Parse([]string{"--capacity", "8"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Capacity != 8 {
		t.Fatalf("Capacity = %d, want 8", cfg.Capacity)
	}
}

func TestParse_RepeatableBootstrap(t *testing.T) {
	cfg, err := Parse([]string{"--bootstrap", "/ip4/1.1.1.1/tcp/4001/p2p/QmA", "--bootstrap", "/ip4/2.2.2.2/tcp/4001/p2p/QmB"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.BootstrapPeers) != 2 {
		t.Fatalf("BootstrapPeers = %v, want 2 entries", cfg.BootstrapPeers)
	}
}

func TestParse_BootstrapFileMergesWithFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.txt")
	content := "# comment\n/ip4/3.3.3.3/tcp/4001/p2p/QmC\n\n/ip4/4.4.4.4/tcp/4001/p2p/QmD\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Parse([]string{"--bootstrap", "/ip4/1.1.1.1/tcp/4001/p2p/QmA", "--bootstrap-file", path})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.BootstrapPeers) != 3 {
		t.Fatalf("BootstrapPeers = %v, want 3 entries", cfg.BootstrapPeers)
	}
}

func TestParse_RejectsInvalidLogLevel(t *testing.T) {
	if _, err := Parse([]string{"--log-level", "verbose"}); err == nil {
		t.Fatal("expected error for invalid log-level")
	}
}

func TestParse_RejectsNonPositiveReconnect(t *testing.T) {
	if _, err := Parse([]string{"--reconnect-seconds", "0"}); err == nil {
		t.Fatal("expected error for reconnect-seconds=0")
	}
}

func TestParse_RejectsOutOfRangePort(t *testing.T) {
	if _, err := Parse([]string{"--control-port", "70000"}); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
