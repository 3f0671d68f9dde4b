//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"runtime/pprof"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/encodeous/dvroute/core"
	"github.com/encodeous/dvroute/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualLink is one direction of a link between two routers
type VirtualLink struct {
	Edge       state.Pair[state.NodeId, state.NodeId]
	Cost       int
	Latency    time.Duration
	Jitter     time.Duration
	PacketLoss float64
}

func (v *VirtualLink) WithLatency(lat, jitter time.Duration) *VirtualLink {
	v.Latency = lat
	v.Jitter = jitter
	return v
}

func (v *VirtualLink) WithPacketLoss(loss float64) *VirtualLink {
	v.PacketLoss = loss
	return v
}

// VirtualHarness runs a set of routers on loopback UDP sockets
type VirtualHarness struct {
	Context   context.Context
	Cancel    context.CancelCauseFunc
	NodeCount int
	Links     []*VirtualLink
	States    []*state.State
	Out       []*SyncBuffer
	transport []*LinkTransport
	done      sync.WaitGroup
}

func (v *VirtualHarness) AddLink(from, to state.NodeId, cost int) *VirtualLink {
	link := &VirtualLink{
		Edge: state.Pair[state.NodeId, state.NodeId]{V1: from, V2: to},
		Cost: cost,
	}
	v.Links = append(v.Links, link)
	return link
}

// AddBiLink adds both directions of a link with the same cost
func (v *VirtualHarness) AddBiLink(a, b state.NodeId, cost int) (*VirtualLink, *VirtualLink) {
	return v.AddLink(a, b, cost), v.AddLink(b, a, cost)
}

func (v *VirtualHarness) link(from, to state.NodeId) *VirtualLink {
	idx := slices.IndexFunc(v.Links, func(l *VirtualLink) bool {
		return l.Edge.V1 == from && l.Edge.V2 == to
	})
	if idx == -1 {
		return nil
	}
	return v.Links[idx]
}

// topology renders the topology file of one router
func (v *VirtualHarness) topology(id state.NodeId) string {
	sb := strings.Builder{}
	sb.WriteString(strconv.Itoa(v.NodeCount) + "\n")
	for _, l := range v.Links {
		if l.Edge.V1 != id {
			continue
		}
		port := v.transport[l.Edge.V2].LocalAddr().Port()
		sb.WriteString(fmt.Sprintf("%d %d %d %d\n", id, l.Edge.V2, l.Cost, port))
	}
	return sb.String()
}

// Start binds every router and runs them until Stop is called. Node errors are sent to the returned channel.
func (v *VirtualHarness) Start(dir string, routeDelay, neighDelay time.Duration) (chan error, error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	v.Context = ctx
	v.Cancel = cancel
	v.States = make([]*state.State, v.NodeCount)
	v.Out = make([]*SyncBuffer, v.NodeCount)
	v.transport = make([]*LinkTransport, v.NodeCount)
	errChan := make(chan error, 128) // a large number so we dont get blocked

	for i := range v.NodeCount {
		udp, err := core.ListenUdp(netip.MustParseAddrPort("127.0.0.1:0"))
		if err != nil {
			v.closeTransports()
			return nil, err
		}
		v.transport[i] = &LinkTransport{Transport: udp, harness: v, self: state.NodeId(i)}
		v.Out[i] = &SyncBuffer{}
	}

	var mu sync.Mutex
	for i := range v.NodeCount {
		id := state.NodeId(i)
		topoPath := filepath.Join(dir, fmt.Sprintf("router%d.txt", i))
		err := os.WriteFile(topoPath, []byte(v.topology(id)), 0600)
		if err != nil {
			v.closeTransports()
			return nil, err
		}
		ncfg := state.LocalCfg{
			Id:                   id,
			Port:                 v.transport[i].LocalAddr().Port(),
			TopologyPath:         topoPath,
			RouteUpdateDelay:     routeDelay,
			NeighbourUpdateDelay: neighDelay,
		}
		state.ExpandLocalConfig(&ncfg)

		v.done.Add(1)
		go func() {
			defer v.done.Done()
			labels := pprof.Labels("dvroute node", strconv.Itoa(i))
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				cErr := core.Start(ncfg, slog.LevelDebug, core.Options{
					Transport: v.transport[i],
					Out:       v.Out[i],
					OnStart: func(s *state.State) {
						mu.Lock()
						v.States[i] = s
						mu.Unlock()
					},
				})
				if cErr != nil {
					errChan <- fmt.Errorf("router %d: %w", i, cErr)
				}
			})
		}()
	}

	// wait for all routers to start
	for {
		started := true
		mu.Lock()
		for _, s := range v.States {
			if s == nil || !s.Started.Load() {
				started = false
				break
			}
		}
		mu.Unlock()
		if started {
			break
		}
		select {
		case err := <-errChan:
			errChan <- err
			return errChan, nil
		case <-time.After(time.Millisecond * 10):
		}
	}
	return errChan, nil
}

// Table reads the current routing table of a router from its dispatch goroutine
func (v *VirtualHarness) Table(id state.NodeId) state.RoutingTable {
	res, err := v.States[id].DispatchWait(func(s *state.State) (any, error) {
		return slices.Clone(s.Table), nil
	})
	if err != nil {
		return nil
	}
	return res.(state.RoutingTable)
}

func (v *VirtualHarness) Stop() {
	v.Cancel(fmt.Errorf("stopping harness"))
	for _, s := range v.States {
		if s != nil {
			s.Cancel(context.Canceled)
		}
	}
	v.done.Wait()
}

func (v *VirtualHarness) closeTransports() {
	for _, t := range v.transport {
		if t != nil {
			_ = t.Close()
		}
	}
}

// ShortestPaths returns the all pairs shortest distances of the configured links
func (v *VirtualHarness) ShortestPaths() [][]int {
	n := v.NodeCount
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			dist[i][j] = state.INF
		}
		dist[i][i] = 0
	}
	for _, l := range v.Links {
		dist[l.Edge.V1][l.Edge.V2] = min(dist[l.Edge.V1][l.Edge.V2], l.Cost)
	}
	for k := range n {
		for i := range n {
			for j := range n {
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
				}
			}
		}
	}
	return dist
}

// LinkTransport applies the simulated link conditions to outbound datagrams
type LinkTransport struct {
	core.Transport
	harness *VirtualHarness
	self    state.NodeId
}

func (t *LinkTransport) SendTo(pkt []byte, to netip.AddrPort) error {
	idx := slices.IndexFunc(t.harness.transport, func(o *LinkTransport) bool {
		return o.LocalAddr().Port() == to.Port()
	})
	if idx == -1 {
		return t.Transport.SendTo(pkt, to)
	}
	link := t.harness.link(t.self, state.NodeId(idx))
	if link == nil {
		return nil // no connection, dropped packet
	}
	if rand.Float64() < link.PacketLoss {
		return nil
	}
	if link.Latency == 0 {
		return t.Transport.SendTo(pkt, to)
	}
	simLat := link.Latency + time.Duration(rand.Float64()*float64(link.Jitter.Nanoseconds()))
	pkt = slices.Clone(pkt)
	go func() {
		select {
		case <-t.harness.Context.Done():
		case <-time.After(simLat):
			err := t.Transport.SendTo(pkt, to)
			if err != nil && !errors.Is(err, net.ErrClosed) {
				panic(err)
			}
		}
	}()
	return nil
}

type SyncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

var _ io.Writer = (*SyncBuffer)(nil)

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
