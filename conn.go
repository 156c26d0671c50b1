package quic

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/tawawhite/quic/transport"
)

// Connection-lifecycle events, raised by the engine rather than the
// core (spec section 1(e): "the engine-level multiplexer" owns accept/
// close notification). These share transport.EventType's numbering
// space so a Handler can switch over a single Event.Type value
// alongside the core's own stream events (transport.EventStream and
// friends), matching the teacher's cmd/quince client.go call site.
const (
	EventConnAccept transport.EventType = iota + 100
	EventConnClose
)

// Conn is the engine-facing view of one QUIC connection: stream access
// plus the addressing/state queries an application needs, without
// exposing the core's tick-driven internals (spec section 1(e)).
type Conn interface {
	// LocalAddr returns the local network address.
	LocalAddr() net.Addr
	// RemoteAddr returns the peer's network address.
	RemoteAddr() net.Addr
	// Stream returns (creating if necessary) the stream with the given
	// ID, or nil if the ID is not valid for this side to open.
	Stream(id uint64) *transport.Stream
	// Close starts closing the connection, sending a CONNECTION_CLOSE
	// with the given application error code and reason.
	Close(errCode uint64, reason string) error
}

// remoteConn binds one transport.Conn to a UDP peer address and its
// current set of connection IDs, the engine glue spec section 1(e)
// marks out of the core's scope. scid is the CID currently used to
// look this connection up in the engine's table.
type remoteConn struct {
	addr net.Addr
	scid []byte
	conn *transport.Conn

	localAddr net.Addr

	// cids lists every local CID this connection has minted (initial
	// plus any later NEW_CONNECTION_ID), so the engine can register/
	// retire table entries and purgatory rows in step with the core's
	// own CID pool (spec section 4.3).
	cids [][]byte

	createdAt time.Time
	// acceptNotified is set once EventConnAccept has been raised for
	// this connection, so the engine's poll loop raises it exactly once
	// on the tick the handshake first completes (spec section 1(e):
	// connection-lifecycle notification is engine glue, the core only
	// exposes IsEstablished()).
	acceptNotified bool
}

func newRemoteConn(localAddr, addr net.Addr, scid []byte, conn *transport.Conn) *remoteConn {
	return &remoteConn{
		addr:      addr,
		scid:      append([]byte(nil), scid...),
		conn:      conn,
		localAddr: localAddr,
		cids:      [][]byte{append([]byte(nil), scid...)},
		createdAt: time.Now(),
	}
}

func (c *remoteConn) LocalAddr() net.Addr  { return c.localAddr }
func (c *remoteConn) RemoteAddr() net.Addr { return c.addr }

func (c *remoteConn) Stream(id uint64) *transport.Stream {
	st, err := c.conn.Stream(id)
	if err != nil {
		return nil
	}
	return st
}

func (c *remoteConn) Close(errCode uint64, reason string) error {
	c.conn.Close(true, errCode, reason)
	return nil
}

// Handler processes connection and stream events (spec section 6,
// "Embedder callbacks"), collapsed to the single dispatch method the
// teacher's cmd/quince client.go drives directly.
type Handler interface {
	Serve(c Conn, events []transport.Event)
}

// purgaType records why a CID was placed in the purgatory, mirroring
// lsquic_purga.c's enum purga_type: a closed connection's CIDs are
// remembered so a stray packet gets a stateless reset instead of being
// dropped or, worse, silently handed to a brand new connection.
type purgaType uint8

const (
	purgaTypeNormal purgaType = iota
	purgaTypeStatelessReset
)

type purgaEntry struct {
	typ        purgaType
	resetToken [16]byte
	expiresAt  time.Time
}

// purgatory is the engine-wide table of recently retired connection
// IDs (SPEC_FULL.md section 5, grounded on lsquic_purga.c). Unlike
// lsquic's page-allocator, entries are individually timestamped and
// swept lazily; the pack's uuid dependency mints each entry's reset
// token when the originating connection did not advertise one of its
// own (e.g. client-side connections, which never send
// StatelessResetToken).
type purgatory struct {
	minLife time.Duration
	entries map[string]purgaEntry
}

func newPurgatory(minLife time.Duration) *purgatory {
	return &purgatory{
		minLife: minLife,
		entries: make(map[string]purgaEntry),
	}
}

// add records cid as belonging to a connection that just closed or
// retired it, due to be forgotten after minLife.
func (p *purgatory) add(cid []byte, resetToken []byte, now time.Time) {
	e := purgaEntry{
		typ:       purgaTypeStatelessReset,
		expiresAt: now.Add(p.minLife),
	}
	if len(resetToken) == 16 {
		copy(e.resetToken[:], resetToken)
	} else {
		token := uuid.New()
		copy(e.resetToken[:], token[:])
	}
	p.entries[string(cid)] = e
}

// contains reports whether cid is still remembered, returning the
// stateless-reset token to send back if one was minted for it.
func (p *purgatory) contains(cid []byte) (token [16]byte, ok bool) {
	e, found := p.entries[string(cid)]
	if !found {
		return token, false
	}
	return e.resetToken, true
}

// sweep drops entries older than minLife, matching lsquic_purga_add's
// trailing-page eviction performed inline on every insert.
func (p *purgatory) sweep(now time.Time) {
	for cid, e := range p.entries {
		if !now.Before(e.expiresAt) {
			delete(p.entries, cid)
		}
	}
}
