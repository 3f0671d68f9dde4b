package state

import (
	"fmt"
	"net/netip"
	"os"
	"path"
)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	return err
}

func AddrValidator(s string) error {
	_, err := netip.ParseAddr(s)
	return err
}

func NodeConfigValidator(cfg *LocalCfg) error {
	if cfg.Id < 0 {
		return fmt.Errorf("router id %d must not be negative", cfg.Id)
	}
	if cfg.Port == 0 {
		return fmt.Errorf("udp port must be in 1..65535")
	}
	if err := AddrValidator(cfg.PeerAddr); err != nil {
		return fmt.Errorf("peer_addr: %w", err)
	}
	if err := AddrValidator(cfg.BindAddr); err != nil {
		return fmt.Errorf("bind_addr: %w", err)
	}
	if cfg.NeighbourUpdateDelay <= 0 || cfg.RouteUpdateDelay <= 0 {
		return fmt.Errorf("update delays must be positive")
	}
	if cfg.FloodHops < 0 {
		return fmt.Errorf("flood_hops must not be negative")
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	}
	if cfg.DebugAddr != "" {
		if _, err := netip.ParseAddrPort(cfg.DebugAddr); err != nil {
			return fmt.Errorf("debug_addr: %w", err)
		}
	}
	return nil
}

// TopologyValidator checks the topology against this router
func TopologyValidator(cfg *LocalCfg, topo *Topology) error {
	if int(cfg.Id) >= topo.NodeCount {
		return fmt.Errorf("router id %d out of range [0, %d)", cfg.Id, topo.NodeCount)
	}
	for _, neigh := range topo.Neighbours {
		if neigh.Id == cfg.Id {
			return fmt.Errorf("%w: router %d lists itself as a neighbour", ErrMalformedTopology, cfg.Id)
		}
	}
	return nil
}
