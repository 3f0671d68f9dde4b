package state

import (
	"fmt"
)

type RouteEntry struct {
	Distance    int
	Predecessor NodeId
}

type RoutingTable []RouteEntry

// RouterState is the shared routing state, owned by the dispatch goroutine
type RouterState struct {
	Id         NodeId
	Neighbours []Neighbour
	// Vector is this router's current best known distance vector
	Vector    Vector
	Store     *VectorStore
	Table     RoutingTable
	Iteration int
}

// NewRouterState seeds the own vector and routing table from the topology
func NewRouterState(id NodeId, topo *Topology) (*RouterState, error) {
	vec, err := SeedVector(id, topo)
	if err != nil {
		return nil, err
	}
	return &RouterState{
		Id:         id,
		Neighbours: topo.Neighbours,
		Vector:     vec,
		Store:      NewVectorStore(topo.NodeCount),
		Table:      SeedTable(id, vec),
	}, nil
}

// SeedVector builds the initial vector: 0 for ourselves, the link cost for direct neighbours and INF otherwise
func SeedVector(id NodeId, topo *Topology) (Vector, error) {
	if id < 0 || int(id) >= topo.NodeCount {
		return nil, fmt.Errorf("router id %d out of range [0, %d)", id, topo.NodeCount)
	}
	vec := make(Vector, topo.NodeCount)
	for i := range vec {
		vec[i] = INF
	}
	for _, neigh := range topo.Neighbours {
		if neigh.Id == id {
			return nil, fmt.Errorf("%w: router %d lists itself as a neighbour", ErrMalformedTopology, id)
		}
		vec[neigh.Id] = neigh.Cost
	}
	vec[id] = 0
	return vec, nil
}

func SeedTable(id NodeId, vec Vector) RoutingTable {
	table := make(RoutingTable, len(vec))
	for d, dist := range vec {
		table[d] = RouteEntry{
			Distance:    dist,
			Predecessor: id,
		}
	}
	return table
}

// GetNeighbour returns the direct neighbour with the given id, or nil if id is not adjacent
func (rs *RouterState) GetNeighbour(id NodeId) *Neighbour {
	for i := range rs.Neighbours {
		if rs.Neighbours[i].Id == id {
			return &rs.Neighbours[i]
		}
	}
	return nil
}
