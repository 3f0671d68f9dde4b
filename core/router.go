package core

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/encodeous/dvroute/perf"
	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
	"github.com/jellydator/ttlcache/v3"
)

// DvRouter runs the distance vector protocol on top of the Link module
type DvRouter struct {
	// FloodDedup remembers recently flooded (origin, vector) pairs, nil if suppression is disabled
	FloodDedup *ttlcache.Cache[string, struct{}]
	FloodHops  int
	link       *Link
	peer       netip.Addr
	log        *slog.Logger
}

func (r *DvRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.link = Get[*Link](s)
	r.log = s.Log
	peer, err := netip.ParseAddr(s.PeerAddr)
	if err != nil {
		return err
	}
	r.peer = peer

	rs, err := state.NewRouterState(s.Env.Id, s.Topology)
	if err != nil {
		return err
	}
	s.RouterState = rs
	r.FloodHops = s.FloodBudget(s.Topology.NodeCount)

	if !s.DisableFloodSuppression {
		r.FloodDedup = ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](s.FloodSuppressTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		)
		go r.FloodDedup.Start()
	}

	s.Log.Info("seeded router", "id", rs.Id, "nodes", s.Topology.NodeCount, "neighbours", len(rs.Neighbours), "vec", rs.Vector)

	// both tasks run once right away, then periodically
	s.Env.RepeatTask(broadcastOwnVector, s.NeighbourUpdateDelay)
	s.Env.RepeatTask(relaxRoutes, s.RouteUpdateDelay)
	return nil
}

func (r *DvRouter) Cleanup(s *state.State) error {
	if r.FloodDedup != nil {
		r.FloodDedup.Stop()
	}
	return nil
}

func (r *DvRouter) SendVector(neigh state.Neighbour, update *protocol.VectorUpdate) {
	to := netip.AddrPortFrom(r.peer, neigh.Port)
	err := r.link.Send(update, to)
	if err != nil {
		r.log.Warn("failed to send vector", "neigh", neigh.Id, "to", to, "err", err)
	}
}

func (r *DvRouter) ShouldFlood(origin state.NodeId, vec state.Vector) bool {
	if r.FloodDedup == nil {
		perf.FloodedPerSecond.Add(1)
		return true
	}
	key := floodKey(origin, vec)
	if item := r.FloodDedup.Get(key); item != nil && !item.IsExpired() {
		return false
	}
	r.FloodDedup.Set(key, struct{}{}, ttlcache.DefaultTTL)
	perf.FloodedPerSecond.Add(1)
	return true
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0, len(args)+2)
	x = append(x, "event", event)
	x = append(x, args...)
	if event >= InconsistentState {
		r.log.Warn(desc, x...)
	} else if state.DBG_log_router {
		r.log.Debug(desc, x...)
	}
}

func floodKey(origin state.NodeId, vec state.Vector) string {
	return fmt.Sprintf("%d:%s", origin, vec)
}
