package core

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/encodeous/dvroute/perf"
	"github.com/encodeous/dvroute/protocol"
	"github.com/encodeous/dvroute/state"
)

// Transport is a datagram socket. Messages may be lost, duplicated or reordered.
type Transport interface {
	SendTo(pkt []byte, to netip.AddrPort) error
	// Receive blocks until a datagram arrives. It returns net.ErrClosed once the transport is closed.
	Receive(buf []byte) (int, netip.AddrPort, error)
	LocalAddr() netip.AddrPort
	Close() error
}

type UdpTransport struct {
	conn *net.UDPConn
}

func ListenUdp(bind netip.AddrPort) (*UdpTransport, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(bind))
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", bind, err)
	}
	return &UdpTransport{conn: conn}, nil
}

func (u *UdpTransport) SendTo(pkt []byte, to netip.AddrPort) error {
	_, err := u.conn.WriteToUDPAddrPort(pkt, to)
	return err
}

func (u *UdpTransport) Receive(buf []byte) (int, netip.AddrPort, error) {
	return u.conn.ReadFromUDPAddrPort(buf)
}

func (u *UdpTransport) LocalAddr() netip.AddrPort {
	return u.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (u *UdpTransport) Close() error {
	return u.conn.Close()
}

// Link owns the transport for the lifetime of the node and runs the reception loop
type Link struct {
	Transport Transport
	wg        sync.WaitGroup
}

func (l *Link) Init(s *state.State) error {
	s.Log.Debug("init link", "addr", l.Transport.LocalAddr())
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.receiveLoop(s.Env)
	}()
	return nil
}

func (l *Link) Cleanup(s *state.State) error {
	err := l.Transport.Close()
	l.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Send encodes and sends one update. Failures are returned to the caller, who decides whether they matter.
func (l *Link) Send(upd *protocol.VectorUpdate, to netip.AddrPort) error {
	pkt, err := protocol.Encode(upd)
	if err != nil {
		return err
	}
	err = l.Transport.SendTo(pkt, to)
	if err != nil {
		return err
	}
	perf.SentPacketPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(pkt)))
	return nil
}

func (l *Link) receiveLoop(e *state.Env) {
	// one extra byte so oversized datagrams are rejected by the codec instead of silently truncated
	buf := make([]byte, protocol.MaxPacketSize+1)
	for {
		n, from, err := l.Transport.Receive(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if e.Context.Err() == nil {
					e.Cancel(fmt.Errorf("transport closed: %w", err))
				}
				return
			}
			e.Log.Warn("receive failed", "err", err)
			continue
		}
		perf.RecvPacketPerSecond.Add(1)
		perf.RecvBytesPerSecond.Add(float64(n))

		upd, err := protocol.Decode(buf[:n])
		if err != nil {
			perf.DroppedPacketPerSecond.Add(1)
			e.Log.Debug("dropped frame", "from", from, "err", err)
			continue
		}
		e.Dispatch(func(s *state.State) error {
			return processInboundVector(s, upd)
		})
	}
}
