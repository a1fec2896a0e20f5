// Package transport provides the connected-UDP-datagram-socket
// abstraction the protocol client sends commands and receives
// responses over.
package transport

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// Config tunes a Transport. Zero values take the documented defaults,
// following the teacher's Config-struct convention.
type Config struct {
	Server         string // default "api.anidb.net"
	Port           int    // default 9000
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MTU            int // default 1400
}

const (
	defaultServer         = "api.anidb.net"
	defaultPort           = 9000
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultMTU            = 1400
)

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return c.ConnectTimeout
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return defaultReadTimeout
	}
	return c.ReadTimeout
}

func (c Config) writeTimeout() time.Duration {
	if c.WriteTimeout <= 0 {
		return defaultWriteTimeout
	}
	return c.WriteTimeout
}

// mtu returns the configured maximum datagram size, or the 1400-byte
// default when unset.
func (c Config) mtu() int {
	if c.MTU <= 0 {
		return defaultMTU
	}
	return c.MTU
}

// Transport is the narrow send/receive/close surface the protocol
// client depends on, grounded on pkg/transport/transport.go's
// Transport/Conn interface pair — narrowed here from QUIC-or-TCP
// Dial/Listen to a single connected UDP socket.
type Transport interface {
	// Connect resolves and dials the configured server:port.
	Connect(ctx context.Context) error
	// Send writes one datagram. The caller is responsible for keeping
	// it within the configured MTU.
	Send(ctx context.Context, data []byte) error
	// Receive blocks for at most the configured read timeout (or until
	// ctx is done) and returns one datagram.
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the underlying socket.
	Close() error
}

// udpTransport wraps a net.UDPConn, following pkg/transport/tcp/
// tcp.go's timeout-and-wrap-net.Conn shape.
type udpTransport struct {
	cfg  Config
	conn *net.UDPConn
}

// New constructs a Transport that has not yet connected.
func New(cfg Config) Transport {
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	return &udpTransport{cfg: cfg}
}

func (t *udpTransport) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(t.cfg.Server, strconv.Itoa(t.cfg.Port))

	resolveCtx, cancel := context.WithTimeout(ctx, t.cfg.connectTimeout())
	defer cancel()

	var resolver net.Resolver
	raddr, err := resolver.LookupIPAddr(resolveCtx, t.cfg.Server)
	if err != nil || len(raddr) == 0 {
		return errs.Wrap(errs.ProtocolNetworkOffline, "resolve "+addr, err)
	}

	udpAddr := &net.UDPAddr{IP: raddr[0].IP, Port: t.cfg.Port}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return errs.Wrap(errs.ProtocolNetworkOffline, "dial "+addr, err)
	}
	t.conn = conn
	return nil
}

func (t *udpTransport) Send(ctx context.Context, data []byte) error {
	if t.conn == nil {
		return errs.New(errs.ProtocolNetworkOffline, "send before connect")
	}
	if len(data) > t.cfg.mtu() {
		return errs.Newf(errs.ValidationInvalidConfiguration, "datagram of %d bytes exceeds MTU %d", len(data), t.cfg.mtu())
	}
	if dl, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(dl)
	} else {
		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.writeTimeout()))
	}
	_, err := t.conn.Write(data)
	if err != nil {
		return errs.Wrap(errs.ProtocolTimeout, "send failed", err)
	}
	return nil
}

func (t *udpTransport) Receive(ctx context.Context) ([]byte, error) {
	if t.conn == nil {
		return nil, errs.New(errs.ProtocolNetworkOffline, "receive before connect")
	}
	if dl, ok := ctx.Deadline(); ok {
		t.conn.SetReadDeadline(dl)
	} else {
		t.conn.SetReadDeadline(time.Now().Add(t.cfg.readTimeout()))
	}
	buf := make([]byte, 65535)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, errs.Wrap(errs.ProtocolTimeout, "receive timed out", err)
		}
		return nil, errs.Wrap(errs.ProtocolInvalidPacket, "receive failed", err)
	}
	return buf[:n], nil
}

func (t *udpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
