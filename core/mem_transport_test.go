package core

import (
	"net"
	"net/netip"
	"sync"
)

type memPacket struct {
	data []byte
	from netip.AddrPort
}

// MemNetwork delivers datagrams between MemTransports by port
type MemNetwork struct {
	mu    sync.Mutex
	ports map[uint16]*MemTransport
}

func NewMemNetwork() *MemNetwork {
	return &MemNetwork{ports: make(map[uint16]*MemTransport)}
}

func (m *MemNetwork) Listen(port uint16) *MemTransport {
	t := &MemTransport{
		net:    m,
		addr:   netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port),
		inbox:  make(chan memPacket, 1024),
		closed: make(chan struct{}),
	}
	m.mu.Lock()
	m.ports[port] = t
	m.mu.Unlock()
	return t
}

func (m *MemNetwork) get(port uint16) *MemTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ports[port]
}

type MemTransport struct {
	net    *MemNetwork
	addr   netip.AddrPort
	inbox  chan memPacket
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent int
}

func (t *MemTransport) SendTo(pkt []byte, to netip.AddrPort) error {
	select {
	case <-t.closed:
		return net.ErrClosed
	default:
	}
	t.mu.Lock()
	t.sent++
	t.mu.Unlock()
	dst := t.net.get(to.Port())
	if dst == nil {
		return nil // nobody listening, the datagram is lost
	}
	dst.Inject(pkt, t.addr)
	return nil
}

// Inject queues a datagram as if it came from the network
func (t *MemTransport) Inject(pkt []byte, from netip.AddrPort) {
	p := memPacket{data: append([]byte(nil), pkt...), from: from}
	select {
	case <-t.closed:
	case t.inbox <- p:
	default:
		// queue full, dropped like a real socket would
	}
}

func (t *MemTransport) Receive(buf []byte) (int, netip.AddrPort, error) {
	select {
	case p := <-t.inbox:
		return copy(buf, p.data), p.from, nil
	case <-t.closed:
		return 0, netip.AddrPort{}, net.ErrClosed
	}
}

func (t *MemTransport) LocalAddr() netip.AddrPort {
	return t.addr
}

func (t *MemTransport) Close() error {
	err := net.ErrClosed
	t.once.Do(func() {
		close(t.closed)
		t.net.mu.Lock()
		delete(t.net.ports, t.addr.Port())
		t.net.mu.Unlock()
		err = nil
	})
	return err
}

func (t *MemTransport) Sent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}
