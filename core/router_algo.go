package core

import (
	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	VectorStored
	VectorFlooded
	FloodSuppressed
	UnknownSender
)

// warn events

const (
	InconsistentState RouterEvent = iota + 1000
	InvalidVector
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "RouteImproved"
	case VectorStored:
		return "VectorStored"
	case VectorFlooded:
		return "VectorFlooded"
	case FloodSuppressed:
		return "FloodSuppressed"
	case UnknownSender:
		return "UnknownSender"
	case InconsistentState:
		return "InconsistentState"
	case InvalidVector:
		return "InvalidVector"
	}
	return "Unknown"
}

// Router is an interface that defines the underlying router operations
type Router interface {
	// SendVector hands an update to the transport. The update must not be retained.
	SendVector(neigh state.Neighbour, update *protocol.VectorUpdate)
	// ShouldFlood decides whether a received vector may be re-broadcast now
	ShouldFlood(origin state.NodeId, vec state.Vector) bool
	Log(event RouterEvent, desc string, args ...any)
}

// BroadcastOwnVector sends our current vector to every direct neighbour
func BroadcastOwnVector(rs *state.RouterState, r Router, hops int) {
	for _, neigh := range rs.Neighbours {
		r.SendVector(neigh, &protocol.VectorUpdate{
			Sender:      int(rs.Id),
			Destination: int(neigh.Id),
			Costs:       rs.Vector,
			Origin:      int(rs.Id),
			Hops:        hops,
		})
	}
}

// Flood re-broadcasts a vector produced by another router to every direct neighbour
func Flood(rs *state.RouterState, r Router, origin state.NodeId, vec state.Vector, hops int) {
	for _, neigh := range rs.Neighbours {
		r.SendVector(neigh, &protocol.VectorUpdate{
			Sender:      int(rs.Id),
			Destination: int(neigh.Id),
			Costs:       vec,
			Origin:      int(origin),
			Hops:        hops,
		})
	}
}

// HandleVector processes a vector received from the network: it is stored if new and there is room,
// then flooded to our neighbours while the hop budget lasts.
// Invalid vectors are dropped without touching the state.
func HandleVector(rs *state.RouterState, r Router, upd *protocol.VectorUpdate) {
	vec := state.Vector(upd.Costs)
	if err := vec.Validate(len(rs.Vector)); err != nil {
		r.Log(InvalidVector, "dropped vector", "from", upd.Sender, "err", err)
		return
	}
	origin := state.NodeId(upd.Origin)
	if origin < state.NoOrigin || int(origin) >= len(rs.Vector) {
		r.Log(InvalidVector, "dropped vector with unknown origin", "from", upd.Sender, "origin", upd.Origin)
		return
	}
	// a router is always at distance 0 from itself
	if origin != state.NoOrigin && vec[origin] != 0 {
		r.Log(InvalidVector, "dropped vector that does not match its origin", "from", upd.Sender, "origin", origin, "vec", vec)
		return
	}
	if rs.GetNeighbour(state.NodeId(upd.Sender)) == nil {
		r.Log(UnknownSender, "vector from a router that is not a neighbour", "from", upd.Sender)
	}

	if rs.Store.Insert(origin, vec) {
		r.Log(VectorStored, "stored vector", "from", upd.Sender, "origin", origin, "vec", vec, "size", rs.Store.Len())
	}

	if upd.Hops <= 1 {
		return // flood budget exhausted
	}
	if origin == state.NoOrigin {
		origin = vec.Origin()
	}
	if !r.ShouldFlood(origin, vec) {
		r.Log(FloodSuppressed, "suppressed flood", "origin", origin, "vec", vec)
		return
	}
	r.Log(VectorFlooded, "flooding vector", "origin", origin, "hops", upd.Hops-1)
	Flood(rs, r, origin, vec, upd.Hops-1)
}

// Relax makes a single relaxation pass over every stored vector, returning the number of improved routes.
// A route is only replaced by a strictly shorter one, so distances never increase.
func Relax(rs *state.RouterState, r Router) int {
	if rs == nil || rs.Store == nil || len(rs.Vector) == 0 || len(rs.Table) != len(rs.Vector) {
		panic("relax called before the router state was initialised")
	}
	improved := 0
	for _, sv := range rs.Store.Entries() {
		origin := sv.Origin
		if origin == state.NoOrigin {
			origin = sv.Vector.Origin()
		}
		if origin == state.NoOrigin || int(origin) >= len(rs.Vector) || len(sv.Vector) != len(rs.Vector) {
			r.Log(InconsistentState, "skipping stored vector without a usable origin", "vec", sv.Vector)
			continue
		}

		// cost to reach the router that produced this vector
		via := rs.Vector[origin]
		for i, d := range sv.Vector {
			if d == 0 {
				continue
			}
			dist := AddMetric(d, via)
			if dist < rs.Vector[i] {
				rs.Vector[i] = dist
				rs.Table[i] = state.RouteEntry{
					Distance:    dist,
					Predecessor: origin,
				}
				improved++
				r.Log(RouteImproved, "route improved", "dst", i, "dist", dist, "via", origin)
			}
		}
	}
	return improved
}
