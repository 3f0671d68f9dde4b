package state

import "time"

const (
	// INF is the sentinel distance for "no known path".
	INF = 999
)

var (
	NeighbourUpdateDelay = time.Millisecond * 1000
	RouteUpdateDelay     = time.Millisecond * 10000
	FloodSuppressTTL     = time.Millisecond * 500
	DispatchBuffer       = 128

	// default neighbour host, all routers run on the same machine
	DefaultPeerAddr = "127.0.0.1"
)

// debug switches, set from the command line
var (
	DBG_log_router      = false
	DBG_log_route_table = false
)
