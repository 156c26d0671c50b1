package quic

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/tawawhite/quic/transport"
)

// Client dials outbound QUIC connections (spec section 1: "the host
// supplies datagrams inbound and a callback for datagrams outbound").
// A Client never accepts a connection for an unrecognized CID — an
// unsolicited datagram is either matched against the purgatory (and
// answered with a stateless reset) or dropped.
type Client struct {
	engine *engine
}

// NewClient creates a Client that dials connections using config,
// following the teacher's non-error-returning constructor shape;
// configuration problems surface from ListenAndServe/Connect instead.
func NewClient(config *Config) *Client {
	return &Client{engine: newEngine(config)}
}

// SetHandler installs the event handler invoked for every connection
// and stream event.
func (c *Client) SetHandler(h Handler) {
	c.engine.SetHandler(h)
}

// SetLogger configures transaction logging, following the teacher's
// cmd/quince verbosity scale (0=off 1=error 2=info 3=debug 4=trace).
func (c *Client) SetLogger(level int, w io.Writer) {
	c.engine.SetLogger(level, w)
}

// ListenAndServe opens the local UDP socket used for every connection
// this Client dials, and starts its background read/timeout loops.
func (c *Client) ListenAndServe(addr string) error {
	if err := c.engine.config.Validate(); err != nil {
		return err
	}
	return c.engine.listen(addr)
}

// Connect dials a new connection to addr, sending its first Initial
// packet immediately.
func (c *Client) Connect(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrap(err, "quic: resolve remote address")
	}
	scid, err := c.engine.newSCID()
	if err != nil {
		return errors.Wrap(err, "quic: generate scid")
	}
	conn, err := transport.Connect(scid, c.engine.config.transportConfig())
	if err != nil {
		return errors.Wrap(err, "quic: create connection")
	}
	var localAddr net.Addr
	if c.engine.socket != nil {
		localAddr = c.engine.socket.LocalAddr()
	}
	rc := newRemoteConn(localAddr, udpAddr, scid, conn)
	c.engine.registerConn(rc)
	c.engine.attachLogger(rc)
	c.engine.pumpConn(rc, time.Now())
	return nil
}

// Close shuts down every dialed connection and the underlying socket.
func (c *Client) Close() error {
	return c.engine.close()
}
