package state

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// LocalCfg represents node-level configuration. The router id, port and topology come from the command line,
// everything else may be set in an optional YAML options file.
type LocalCfg struct {
	Id           NodeId `yaml:"-"`
	Port         uint16 `yaml:"-"`
	TopologyPath string `yaml:"-"`

	PeerAddr                string        `yaml:"peer_addr,omitempty"`              // host that all neighbours listen on
	BindAddr                string        `yaml:"bind_addr,omitempty"`              // local address the UDP socket binds to
	NeighbourUpdateDelay    time.Duration `yaml:"neighbour_update_delay,omitempty"` // how often our own vector is sent to neighbours
	RouteUpdateDelay        time.Duration `yaml:"route_update_delay,omitempty"`     // how often stored vectors are relaxed
	FloodHops               int           `yaml:"flood_hops,omitempty"`             // hop budget of our own vectors, 0 means the node count
	FloodSuppressTTL        time.Duration `yaml:"flood_suppress_ttl,omitempty"`     // identical vectors are not re-flooded within this window
	DisableFloodSuppression bool          `yaml:"disable_flood_suppression,omitempty"`
	LogPath                 string        `yaml:"log_path,omitempty"`   // if not empty, logs are also written to this file
	DebugAddr               string        `yaml:"debug_addr,omitempty"` // if not empty, metrics are served on this address
}

// ReadLocalCfg reads the YAML options file. An empty path yields the defaults.
func ReadLocalCfg(path string) (LocalCfg, error) {
	var cfg LocalCfg
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		err = yaml.Unmarshal(file, &cfg)
		if err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// ExpandLocalConfig fills unset options with their defaults
func ExpandLocalConfig(cfg *LocalCfg) {
	if cfg.PeerAddr == "" {
		cfg.PeerAddr = DefaultPeerAddr
	}
	if cfg.BindAddr == "" {
		cfg.BindAddr = cfg.PeerAddr
	}
	if cfg.NeighbourUpdateDelay == 0 {
		cfg.NeighbourUpdateDelay = NeighbourUpdateDelay
	}
	if cfg.RouteUpdateDelay == 0 {
		cfg.RouteUpdateDelay = RouteUpdateDelay
	}
	if cfg.FloodSuppressTTL == 0 {
		cfg.FloodSuppressTTL = FloodSuppressTTL
	}
}

// FloodBudget is the hop budget attached to our own vectors
func (cfg *LocalCfg) FloodBudget(nodeCount int) int {
	if cfg.FloodHops > 0 {
		return cfg.FloodHops
	}
	return nodeCount
}
