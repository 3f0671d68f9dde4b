package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records every router action instead of touching the network
type RouterHarness struct {
	actions []HarnessEvent
	// Suppress makes ShouldFlood refuse every flood
	Suppress bool
	sent     []SentVector
}

type SentVector struct {
	To     state.Neighbour
	Update protocol.VectorUpdate
}

func (h *RouterHarness) SendVector(neigh state.Neighbour, update *protocol.VectorUpdate) {
	upd := *update
	upd.Costs = slices.Clone(update.Costs)
	h.sent = append(h.sent, SentVector{To: neigh, Update: upd})
	h.actions = append(h.actions, MakeEvent("SEND_VECTOR", neigh.Id, state.Vector(upd.Costs), upd.Hops))
}

func (h *RouterHarness) ShouldFlood(origin state.NodeId, vec state.Vector) bool {
	return !h.Suppress
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

// GetActions returns and clears the recorded actions
func (h *RouterHarness) GetActions() HarnessEvents {
	a := h.actions
	h.actions = nil
	return a
}

// GetSent returns and clears the recorded outbound vectors
func (h *RouterHarness) GetSent() []SentVector {
	s := h.sent
	h.sent = nil
	return s
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		if action.Message == "LOG" {
			continue
		}
		cur := action.Message
		for _, arg := range action.Args {
			cur += fmt.Sprintf(" %v", arg)
		}
		out = append(out, cur)
	}
	return strings.Join(out, "\n")
}

func (h HarnessEvents) Count(msg string) int {
	n := 0
	for _, action := range h {
		if action.Message == msg {
			n++
		}
	}
	return n
}

// HasLog reports whether a LOG action with the given router event was recorded
func (h HarnessEvents) HasLog(event RouterEvent) bool {
	return slices.ContainsFunc(h, func(e HarnessEvent) bool {
		return e.Message == "LOG" && len(e.Args) > 0 && e.Args[0] == event
	})
}

func (h HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	for _, action := range h {
		if action.Message == msg && cmp.Equal(action.Args, args) {
			return
		}
	}
	t.Errorf("expected action %s %v, got:\n%s", msg, args, h.String())
}

// MakeTopology builds a topology where port = 3000 + neighbour id
func MakeTopology(n int, self state.NodeId, links map[state.NodeId]int) *state.Topology {
	topo := &state.Topology{NodeCount: n}
	for id := range n {
		cost, ok := links[state.NodeId(id)]
		if !ok {
			continue
		}
		topo.Neighbours = append(topo.Neighbours, state.Neighbour{
			SelfId: self,
			Id:     state.NodeId(id),
			Cost:   cost,
			Port:   uint16(3000 + id),
		})
	}
	return topo
}

func MakeRouterState(t *testing.T, n int, self state.NodeId, links map[state.NodeId]int) *state.RouterState {
	t.Helper()
	rs, err := state.NewRouterState(self, MakeTopology(n, self, links))
	if err != nil {
		t.Fatal(err)
	}
	return rs
}
