// Package config defines the daemon's runtime configuration, populated
// entirely from command-line flags. There is no config file: every setting
// has a flag and a default, and the daemon reads its whole world from
// os.Args once at startup.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Config is the fully resolved daemon configuration.
type Config struct {
	ControlPort     int
	TelemetryWSPort int
	TCPPort         int
	WebRTCPort      int
	QUICPort        int

	BootstrapPeers []string
	ReconnectSecs  int
	LogLevel       string

	PublicAPI    bool
	RelayServer  bool
	Contribute   bool
	NATTraversal bool
	PublicHost   string

	Capacity uint
}

// repeatedFlag accumulates one value per -flag occurrence, in order given.
type repeatedFlag struct {
	values *[]string
}

func (r repeatedFlag) String() string {
	if r.values == nil {
		return ""
	}
	return strings.Join(*r.values, ",")
}

func (r repeatedFlag) Set(v string) error {
	*r.values = append(*r.values, v)
	return nil
}

// Parse builds a Config from args (typically os.Args[1:]).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("shard-node", flag.ContinueOnError)

	cfg := Config{}
	var bootstrapFile string

	fs.IntVar(&cfg.ControlPort, "control-port", 9091, "HTTP control-plane listen port")
	fs.IntVar(&cfg.TelemetryWSPort, "telemetry-ws-port", 9093, "telemetry WebSocket listen port")
	fs.IntVar(&cfg.TCPPort, "tcp-port", 4001, "libp2p TCP transport listen port")
	fs.IntVar(&cfg.WebRTCPort, "webrtc-port", 9090, "libp2p WebRTC transport listen port")
	fs.IntVar(&cfg.QUICPort, "quic-port", 9092, "libp2p QUIC transport listen port")

	fs.Var(repeatedFlag{&cfg.BootstrapPeers}, "bootstrap", "bootstrap peer multiaddr (repeatable)")
	fs.StringVar(&bootstrapFile, "bootstrap-file", "", "file of newline-separated bootstrap peer multiaddrs")
	fs.IntVar(&cfg.ReconnectSecs, "reconnect-seconds", 20, "interval between reconnect attempts")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	fs.BoolVar(&cfg.PublicAPI, "public-api", false, "bind the control plane to all interfaces instead of loopback")
	fs.BoolVar(&cfg.RelayServer, "relay-server", false, "advertise relay_server_enabled in the topology (no relay service is started)")
	fs.BoolVar(&cfg.Contribute, "contribute", true, "advertise contribute_enabled in the topology (work handling is unaffected)")
	fs.BoolVar(&cfg.NATTraversal, "nat-traversal", true, "enable NAT port mapping and hole punching")
	fs.StringVar(&cfg.PublicHost, "public-host", "", "externally reachable host/IP to announce, if any")
	fs.UintVar(&cfg.Capacity, "capacity", 1, "advertised work capacity for the telemetry gauges")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if bootstrapFile != "" {
		lines, err := readBootstrapFile(bootstrapFile)
		if err != nil {
			return Config{}, fmt.Errorf("read bootstrap file: %w", err)
		}
		cfg.BootstrapPeers = append(cfg.BootstrapPeers, lines...)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readBootstrapFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func validate(cfg Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level %q: want debug, info, warn, or error", cfg.LogLevel)
	}
	if cfg.ReconnectSecs <= 0 {
		return fmt.Errorf("reconnect-seconds must be positive, got %d", cfg.ReconnectSecs)
	}
	for _, port := range []int{cfg.ControlPort, cfg.TelemetryWSPort, cfg.TCPPort, cfg.WebRTCPort, cfg.QUICPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
	}
	return nil
}
