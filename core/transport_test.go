package core

import (
	"bytes"
	"errors"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUdpLoopback(t *testing.T) {
	a, err := ListenUdp(netip.MustParseAddrPort("127.0.0.1:0"))
	require.NoError(t, err)
	defer a.Close()
	b, err := ListenUdp(netip.MustParseAddrPort("127.0.0.1:0"))
	require.NoError(t, err)
	defer b.Close()

	l := &Link{Transport: a}
	upd := &protocol.VectorUpdate{Sender: 0, Destination: 1, Costs: []int{0, 2, state.INF}, Origin: 0, Hops: 3}
	require.NoError(t, l.Send(upd, b.LocalAddr()))

	buf := make([]byte, protocol.MaxPacketSize+1)
	n, from, err := b.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, a.LocalAddr().Port(), from.Port())

	got, err := protocol.Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, upd, got)
}

func TestUdpReceiveAfterClose(t *testing.T) {
	a, err := ListenUdp(netip.MustParseAddrPort("127.0.0.1:0"))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	_, _, err = a.Receive(make([]byte, 16))
	assert.Error(t, err)
}

func TestShouldFloodSuppressesDuplicates(t *testing.T) {
	r := &DvRouter{
		FloodDedup: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](50*time.Millisecond),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
	}
	vec := state.Vector{0, 1, state.INF}

	assert.True(t, r.ShouldFlood(0, vec))
	assert.False(t, r.ShouldFlood(0, vec))
	// same vector from a different origin is a different flood
	assert.True(t, r.ShouldFlood(2, vec))
	assert.True(t, r.ShouldFlood(0, state.Vector{0, 1, 4}))

	time.Sleep(80 * time.Millisecond)
	assert.True(t, r.ShouldFlood(0, vec))
}

func TestShouldFloodWithoutSuppression(t *testing.T) {
	r := &DvRouter{}
	vec := state.Vector{0, 1}
	assert.True(t, r.ShouldFlood(0, vec))
	assert.True(t, r.ShouldFlood(0, vec))
}

// failingTransport refuses to send to one port
type failingTransport struct {
	*MemTransport
	failPort uint16
}

var errUnreachable = errors.New("network unreachable")

func (f *failingTransport) SendTo(pkt []byte, to netip.AddrPort) error {
	if to.Port() == f.failPort {
		return errUnreachable
	}
	return f.MemTransport.SendTo(pkt, to)
}

func TestBroadcastContinuesAfterSendFailure(t *testing.T) {
	mn := NewMemNetwork()
	logs := &bytes.Buffer{}
	link := &Link{Transport: &failingTransport{MemTransport: mn.Listen(3000), failPort: 3001}}
	recv := mn.Listen(3002)

	// MakeTopology listens neighbour i on port 3000+i
	rs := MakeRouterState(t, 3, 0, map[state.NodeId]int{1: 4, 2: 6})
	router := &DvRouter{
		FloodHops: 3,
		link:      link,
		peer:      netip.MustParseAddr("127.0.0.1"),
		log:       slog.New(slog.NewTextHandler(logs, nil)),
	}
	s := &state.State{
		Env:         &state.Env{},
		RouterState: rs,
		Modules:     map[string]state.NyModule{},
	}
	s.Modules["*core.Link"] = link
	s.Modules["*core.DvRouter"] = router

	require.NoError(t, broadcastOwnVector(s))

	assert.Contains(t, logs.String(), "failed to send vector")
	assert.Contains(t, logs.String(), errUnreachable.Error())

	require.Len(t, recv.inbox, 1)
	p := <-recv.inbox
	upd, err := protocol.Decode(p.data)
	require.NoError(t, err)
	assert.Equal(t, 2, upd.Destination)
	assert.Equal(t, []int{0, 4, 6}, upd.Costs)
	assert.Equal(t, 3, upd.Hops)
}
