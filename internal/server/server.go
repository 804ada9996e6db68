// Package server binds the wire-level request/response logic in
// internal/respond to actual UDP and TCP sockets, hot-swapping the zone
// snapshot it answers from whenever the configured zone provider produces
// a new one.
package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	derrors "github.com/nkovacs/adnsd/internal/errors"
	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/respond"
	"github.com/nkovacs/adnsd/internal/security"
	"github.com/nkovacs/adnsd/internal/transport"
	"github.com/nkovacs/adnsd/internal/zone"
)

// udpMaxSize is the largest UDP response this server will ever send: 1232
// bytes, the commonly recommended safe EDNS payload size. It is above RFC
// 1035 §2.3.4's 512-byte limit for messages without EDNS0 and is applied
// whatever payload size the query advertises.
const udpMaxSize = 1232

// tcpTransactionTimeout bounds how long a single TCP connection may sit
// idle between messages (and how long the AXFR response this connection
// triggered is allowed to take to write out) before it is closed.
const tcpTransactionTimeout = 30 * time.Second

// Server listens for DNS queries and updates on a single address, over
// both UDP and TCP, answering from whatever zone snapshot was most
// recently published by its provider.
type Server struct {
	Addr string

	current atomic.Pointer[zone.Zone]
	updates chan provider.Update

	// limiter, if non-nil, gates every UDP datagram and TCP connection
	// attempt by source IP before it reaches Respond.
	limiter *security.RateLimiter
}

// New creates a Server bound to addr (host:port, e.g. "0.0.0.0:53"). The
// server does not start listening until Run is called. A nil limiter
// disables rate limiting.
func New(addr string, updates chan provider.Update, limiter *security.RateLimiter) *Server {
	return &Server{Addr: addr, updates: updates, limiter: limiter}
}

// Snapshot returns the zone this server is currently answering from, or
// nil if none has been published yet.
func (s *Server) Snapshot() *zone.Zone {
	return s.current.Load()
}

// SetSnapshot publishes z as the zone this server answers from. Exposed
// so a single provider's snapshots can be fanned out to several servers
// without each needing its own WatchSnapshots goroutine.
func (s *Server) SetSnapshot(z *zone.Zone) {
	s.current.Store(z)
}

// WatchSnapshots consumes zone snapshots from snapshots until ctx is
// canceled, publishing each as the zone the server answers from. Run it
// in its own goroutine alongside the provider that feeds snapshots.
func (s *Server) WatchSnapshots(ctx context.Context, snapshots <-chan *zone.Zone) {
	for {
		select {
		case <-ctx.Done():
			return
		case z, ok := <-snapshots:
			if !ok {
				return
			}
			s.current.Store(z)
		}
	}
}

// Run listens on Addr over both UDP and TCP until ctx is canceled. It
// blocks until both listeners have stopped.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: transport.PlatformControl}

	udpConn, err := lc.ListenPacket(ctx, "udp", s.Addr)
	if err != nil {
		return &derrors.NetworkError{Operation: "listen udp " + s.Addr, Err: err}
	}
	tcpListener, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		_ = udpConn.Close()
		return &derrors.NetworkError{Operation: "listen tcp " + s.Addr, Err: err}
	}

	done := make(chan struct{}, 2)
	go func() {
		s.serveUDP(ctx, udpConn)
		done <- struct{}{}
	}()
	go func() {
		s.serveTCP(ctx, tcpListener)
		done <- struct{}{}
	}()

	<-ctx.Done()
	_ = udpConn.Close()
	_ = tcpListener.Close()
	<-done
	<-done
	return nil
}

func (s *Server) serveUDP(ctx context.Context, conn net.PacketConn) {
	for {
		bufPtr := transport.GetBuffer()
		n, addr, err := conn.ReadFrom(*bufPtr)
		if err != nil {
			transport.PutBuffer(bufPtr)
			select {
			case <-ctx.Done():
				return
			default:
				log.Warnf("udp: read error: %v", err)
				return
			}
		}
		raw := append([]byte(nil), (*bufPtr)[:n]...)
		transport.PutBuffer(bufPtr)
		if s.limiter != nil && !s.limiter.Allow(hostOf(addr.String())) {
			continue
		}
		go s.answerUDP(ctx, conn, addr, raw)
	}
}

func (s *Server) answerUDP(ctx context.Context, conn net.PacketConn, addr net.Addr, raw []byte) {
	z := s.current.Load()
	if z == nil {
		return
	}
	resp := respond.Respond(ctx, false, z, s.updates, addr.String(), raw)
	if resp == nil {
		return
	}
	for _, out := range resp.Serialize(z, udpMaxSize) {
		if _, err := conn.WriteTo(out, addr); err != nil {
			log.Warnf("udp: write to %s failed: %v", addr, err)
		}
	}
}

func (s *Server) serveTCP(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Warnf("tcp: accept error: %v", err)
				return
			}
		}
		if s.limiter != nil && !s.limiter.Allow(hostOf(conn.RemoteAddr().String())) {
			_ = conn.Close()
			continue
		}
		go s.serveTCPConn(ctx, conn)
	}
}

// hostOf strips the port from a host:port address string, falling back to
// the address unchanged if it has no port (e.g. a unix socket path).
func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// serveTCPConn handles every length-prefixed message on a single TCP
// connection (RFC 1035 §4.2.2) until the peer closes it or an idle
// transaction timeout elapses. ctx is passed to Respond but does not end
// the loop.
func (s *Server) serveTCPConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	addr := conn.RemoteAddr().String()
	reader := bufio.NewReader(conn)

	for {
		if err := conn.SetDeadline(time.Now().Add(tcpTransactionTimeout)); err != nil {
			return
		}

		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return
		}

		z := s.current.Load()
		if z == nil {
			return
		}
		resp := respond.Respond(ctx, true, z, s.updates, addr, raw)
		if resp == nil {
			continue
		}
		for _, out := range resp.Serialize(z, 1<<16-1) {
			frame := make([]byte, 2+len(out))
			binary.BigEndian.PutUint16(frame, uint16(len(out)))
			copy(frame[2:], out)
			if _, err := conn.Write(frame); err != nil {
				log.Warnf("tcp: write to %s failed: %v", addr, err)
				return
			}
		}
	}
}

