// Package udpv4 is the concrete UDPv4 implementation of
// transport.Transport, supporting both unicast and multicast send/
// receive as SPDP and user traffic require.
package udpv4

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/rtps/transport"
	"github.com/marmos91/dittofs/internal/rtps/types"
	"golang.org/x/net/ipv4"
)

// Transport is a UDPv4 transport.Transport bound to one unicast port and
// optionally joined to one multicast group.
type Transport struct {
	conn      *net.UDPConn
	pktConn   *ipv4.PacketConn
	unicast   types.Locator
	multicast *net.UDPAddr
	recvCh    chan transport.Received
	closeCh   chan struct{}
}

// Config describes how to bind a Transport.
type Config struct {
	// Interface, when set, restricts the multicast join to that
	// NIC. Resolving a name to a net.Interface is the caller's
	// responsibility (§1 Non-goals: socket/interface enumeration glue
	// is an external collaborator); this package accepts the already
	// resolved *net.Interface.
	Interface *net.Interface
	Port      uint32
	Multicast net.IP
}

// New binds a UDP socket on Port, optionally joining the Multicast
// group, and starts its receive loop.
func New(cfg Config) (*Transport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		return nil, fmt.Errorf("udpv4: listen: %w", err)
	}

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	t := &Transport{
		conn:    conn,
		unicast: types.NewUDPv4Locator(localAddr.IP, uint32(localAddr.Port)),
		recvCh:  make(chan transport.Received, 256),
		closeCh: make(chan struct{}),
	}

	if cfg.Multicast != nil {
		t.pktConn = ipv4.NewPacketConn(conn)
		group := &net.UDPAddr{IP: cfg.Multicast, Port: int(cfg.Port)}
		if err := t.pktConn.JoinGroup(cfg.Interface, group); err != nil {
			conn.Close()
			return nil, fmt.Errorf("udpv4: join multicast group %s: %w", cfg.Multicast, err)
		}
		t.multicast = group
	}

	go t.receiveLoop()
	return t, nil
}

func (t *Transport) receiveLoop() {
	buf := make([]byte, 65536)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closeCh:
			default:
				logger.Warn("udp transport read failed", logger.Fmt(logger.KeyError, "%v", err))
			}
			close(t.recvCh)
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case t.recvCh <- transport.Received{Source: types.NewUDPv4Locator(src.IP, uint32(src.Port)), Data: data}:
		case <-t.closeCh:
			close(t.recvCh)
			return
		}
	}
}

// Write implements transport.Transport.
func (t *Transport) Write(ctx context.Context, data []byte, destination types.Locator) error {
	addr := destination.UDPAddr()
	if addr == nil {
		return fmt.Errorf("udpv4: locator %s is not a UDP address", destination)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	_, err := t.conn.WriteToUDP(data, addr)
	return err
}

// Receive implements transport.Transport.
func (t *Transport) Receive() <-chan transport.Received { return t.recvCh }

// DefaultUnicastLocator implements transport.Transport.
func (t *Transport) DefaultUnicastLocator() types.Locator { return t.unicast }

// Close implements transport.Transport.
func (t *Transport) Close() error {
	close(t.closeCh)
	return t.conn.Close()
}
