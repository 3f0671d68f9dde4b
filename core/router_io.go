package core

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/encodeous/dvroute/perf"
	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
)

func broadcastOwnVector(s *state.State) error {
	r := Get[*DvRouter](s)
	BroadcastOwnVector(s.RouterState, r, r.FloodHops)
	return nil
}

func processInboundVector(s *state.State, upd *protocol.VectorUpdate) error {
	HandleVector(s.RouterState, Get[*DvRouter](s), upd)
	return nil
}

func relaxRoutes(s *state.State) error {
	r := Get[*DvRouter](s)
	start := time.Now()
	improved := Relax(s.RouterState, r)
	perf.RelaxLatency.Add(float64(time.Since(start).Microseconds()))
	perf.RouteImprovements.Add(float64(improved))
	s.Iteration++
	dbgPrintRouteTable(s)
	if err := printRouteTable(s); err != nil {
		s.Log.Warn("failed to print route table", "err", err)
	}
	return nil
}

// printRouteTable writes the routing table for the operator
func printRouteTable(s *state.State) error {
	if s.Out == nil {
		return nil
	}
	w := tabwriter.NewWriter(s.Out, 0, 8, 2, ' ', 0)
	writeRouteTable(w, s.Table)
	fmt.Fprintln(w, "----------------------------------------------")
	fmt.Fprintf(w, "Calculating next iteration (%d)\n", s.Iteration)
	fmt.Fprintln(w, "----------------------------------------------")
	return w.Flush()
}

// WriteRouteTable writes a routing table in the same layout the node prints after each pass
func WriteRouteTable(out io.Writer, t state.RoutingTable) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	writeRouteTable(w, t)
	return w.Flush()
}

func writeRouteTable(w io.Writer, t state.RoutingTable) {
	fmt.Fprintln(w, "Routing Info")
	fmt.Fprintln(w, "RouterID\tDistance\tPrev RouterID")
	for d, e := range t {
		fmt.Fprintf(w, "%d\t%d\t%d\n", d, e.Distance, e.Predecessor)
	}
}

func dbgPrintRouteTable(s *state.State) {
	if !state.DBG_log_route_table {
		return
	}
	s.Log.Debug("--- route table ---", "iteration", s.Iteration, "stored", s.Store.Len())
	for d, e := range s.Table {
		s.Log.Debug(fmt.Sprintf("%d -> %d", d, e.Predecessor), "dist", e.Distance)
	}
}
