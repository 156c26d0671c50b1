package quic

import (
	"crypto/rand"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tawawhite/quic/transport"
)

// defaultSCIDLength is the length of locally-minted connection IDs
// (spec section 6 Configuration: "SCID length (4-18)"); 8 bytes is
// the teacher's own choice, large enough to make collisions in the
// engine's connection table practically impossible.
const defaultSCIDLength = 8

// maxDatagramSize bounds one read from the UDP socket.
const maxDatagramSize = 65535

// engine is the shared connection-ID-keyed multiplexer both Client and
// Server build on (spec section 1(e): "the engine-level multiplexer"
// — connection-ID to connection lookup, datagram dispatch, connection
// retirement purgatory — is out of the CORE's scope but is exactly
// what this type supplies).
type engine struct {
	config *Config

	socket *net.UDPConn

	mu        sync.Mutex
	conns     map[string]*remoteConn // keyed by local CID bytes
	purgatory *purgatory

	handler Handler
	log     *logrus.Logger

	// acceptConnFunc mints a new connection for an unrecognized DCID, or
	// returns (nil, nil) to drop the datagram. Client engines never
	// override it (rejectConn); Server engines replace it with a
	// handshake-accepting implementation.
	acceptConnFunc func(dcid []byte, addr *net.UDPAddr) (*remoteConn, error)

	closing bool
	wg      sync.WaitGroup
}

func newEngine(config *Config) *engine {
	if config == nil {
		config = NewConfig(nil)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := &engine{
		config:    config,
		conns:     make(map[string]*remoteConn),
		purgatory: newPurgatory(config.PurgatoryLifetime),
		log:       log,
	}
	e.acceptConnFunc = e.rejectConn
	return e
}

// rejectConn is the default acceptConnFunc: never accept, matching a
// Client (NewServer installs Server.acceptConn instead).
func (e *engine) rejectConn(dcid []byte, addr *net.UDPAddr) (*remoteConn, error) {
	return nil, nil
}

// SetHandler installs the application event handler.
func (e *engine) SetHandler(h Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// SetLogger configures logrus's output and level, following the
// teacher's logLevel scale (0=off .. 4=trace) mapped onto logrus's
// own level set (an engine that never logs anything keeps Output at
// io.Discard, its zero-cost default).
func (e *engine) SetLogger(level int, w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.SetOutput(w)
	switch {
	case level <= 0:
		e.log.SetLevel(logrus.PanicLevel)
		e.log.SetOutput(io.Discard)
	case level == 1:
		e.log.SetLevel(logrus.ErrorLevel)
	case level == 2:
		e.log.SetLevel(logrus.InfoLevel)
	case level == 3:
		e.log.SetLevel(logrus.DebugLevel)
	default:
		e.log.SetLevel(logrus.TraceLevel)
	}
}

func (e *engine) listen(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrap(err, "quic: resolve listen address")
	}
	socket, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return errors.Wrap(err, "quic: listen udp")
	}
	if e.config.RecvBufferSize > 0 {
		_ = socket.SetReadBuffer(e.config.RecvBufferSize)
	}
	if e.config.SendBufferSize > 0 {
		_ = socket.SetWriteBuffer(e.config.SendBufferSize)
	}
	e.socket = socket
	e.wg.Add(2)
	go e.readLoop()
	go e.timeoutLoop()
	return nil
}

func (e *engine) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := e.socket.ReadFromUDP(buf)
		if err != nil {
			e.mu.Lock()
			closing := e.closing
			e.mu.Unlock()
			if closing {
				return
			}
			e.log.WithError(err).Error("quic: read udp")
			continue
		}
		e.handleDatagram(buf[:n], addr)
	}
}

// handleDatagram dispatches one inbound datagram to its connection by
// destination CID, handing the first datagram for an unknown CID to
// acceptConnFunc (a server accepts it whatever its packet type, a
// client never does), or issuing a stateless reset for a CID
// remembered in the purgatory (SPEC_FULL.md section 5).
func (e *engine) handleDatagram(b []byte, addr *net.UDPAddr) {
	dcid, ok := peekDCID(b)
	if !ok {
		return
	}
	e.mu.Lock()
	rc := e.conns[string(dcid)]
	e.mu.Unlock()
	if rc == nil {
		if token, found := e.purgatory.contains(dcid); found {
			e.sendStatelessReset(addr, token)
			return
		}
		var err error
		rc, err = e.acceptConn(dcid, addr)
		if err != nil {
			e.log.WithError(err).Debug("quic: accept connection")
			return
		}
		if rc == nil {
			// acceptConnFunc declined (a client never accepts); drop.
			return
		}
	}
	now := time.Now()
	if _, err := rc.conn.Write(b); err != nil {
		e.log.WithError(err).WithField("remote", addr).Debug("quic: connection write error")
		e.closeConn(rc, now)
		return
	}
	e.pumpConn(rc, now)
}

// acceptConn mints a new connection for an unrecognized DCID via the
// role-specific acceptConnFunc (spec section 1(e): connection creation
// on first accepted Initial is engine glue, not core behavior).
func (e *engine) acceptConn(dcid []byte, addr *net.UDPAddr) (*remoteConn, error) {
	return e.acceptConnFunc(dcid, addr)
}

func (e *engine) registerConn(rc *remoteConn) {
	e.mu.Lock()
	e.conns[string(rc.scid)] = rc
	e.mu.Unlock()
}

func (e *engine) pumpConn(rc *remoteConn, now time.Time) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, err := rc.conn.Read(buf)
		if err != nil {
			e.log.WithError(err).WithField("remote", rc.addr).Debug("quic: connection read error")
			e.closeConn(rc, now)
			return
		}
		if n == 0 {
			break
		}
		if _, err := e.socket.WriteToUDP(buf[:n], rc.addr.(*net.UDPAddr)); err != nil {
			e.log.WithError(err).WithField("remote", rc.addr).Debug("quic: write udp")
			return
		}
	}
	e.dispatchEvents(rc)
	if rc.conn.IsClosed() {
		e.closeConn(rc, now)
	}
}

func (e *engine) dispatchEvents(rc *remoteConn) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler == nil {
		return
	}
	var events []transport.Event
	if !rc.acceptNotified && rc.conn.IsEstablished() {
		rc.acceptNotified = true
		events = append(events, transport.Event{Type: EventConnAccept})
	}
	events = rc.conn.Events(events)
	if len(events) == 0 {
		return
	}
	handler.Serve(rc, events)
}

func (e *engine) closeConn(rc *remoteConn, now time.Time) {
	e.detachLogger(rc)
	e.mu.Lock()
	for _, cid := range rc.cids {
		delete(e.conns, string(cid))
	}
	e.mu.Unlock()
	for _, cid := range rc.cids {
		e.purgatory.add(cid, rc.conn.LocalResetToken(), now)
	}
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler != nil {
		handler.Serve(rc, []transport.Event{{Type: EventConnClose}})
	}
}

func (e *engine) timeoutLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		e.mu.Lock()
		closing := e.closing
		rcs := make([]*remoteConn, 0, len(e.conns))
		seen := make(map[*remoteConn]bool)
		for _, rc := range e.conns {
			if !seen[rc] {
				seen[rc] = true
				rcs = append(rcs, rc)
			}
		}
		e.mu.Unlock()
		if closing {
			return
		}
		now := time.Now()
		e.purgatory.sweep(now)
		for _, rc := range rcs {
			rc.conn.Tick(now)
			e.pumpConn(rc, now)
		}
	}
}

func (e *engine) sendStatelessReset(addr *net.UDPAddr, token [16]byte) {
	// A stateless reset is indistinguishable from a short-header packet
	// to anyone but the token's owner (RFC 9000 section 10.3): a random
	// first byte with the fixed bit set, random padding, and the token
	// as the final 16 bytes.
	b := make([]byte, 21+rand10())
	if _, err := rand.Read(b); err != nil {
		return
	}
	b[0] = (b[0] & 0x3f) | 0x40
	copy(b[len(b)-16:], token[:])
	_, _ = e.socket.WriteToUDP(b, addr)
}

func rand10() int {
	var b [1]byte
	_, _ = rand.Read(b[:])
	return int(b[0]) % 20
}

func (e *engine) newSCID() ([]byte, error) {
	cid := make([]byte, defaultSCIDLength)
	if _, err := rand.Read(cid); err != nil {
		return nil, err
	}
	return cid, nil
}

func (e *engine) close() error {
	e.mu.Lock()
	if e.closing {
		e.mu.Unlock()
		return nil
	}
	e.closing = true
	conns := make([]*remoteConn, 0, len(e.conns))
	seen := make(map[*remoteConn]bool)
	for _, rc := range e.conns {
		if !seen[rc] {
			seen[rc] = true
			conns = append(conns, rc)
		}
	}
	e.mu.Unlock()
	now := time.Now()
	for _, rc := range conns {
		rc.conn.Close(true, 0, "")
		e.pumpConn(rc, now)
	}
	var err error
	if e.socket != nil {
		err = e.socket.Close()
	}
	e.wg.Wait()
	return err
}

// peekDCID extracts the destination connection ID from a datagram
// without fully parsing it, just enough for engine-level routing
// (spec section 1(e)): the core still re-parses the header properly
// once the datagram reaches transport.Conn.Write.
func peekDCID(b []byte) ([]byte, bool) {
	if len(b) < 1 {
		return nil, false
	}
	if b[0]&0x80 != 0 {
		// Long header: version(4) dcil(1) dcid(dcil)
		if len(b) < 6 {
			return nil, false
		}
		dcil := int(b[5])
		if len(b) < 6+dcil {
			return nil, false
		}
		return b[6 : 6+dcil], true
	}
	// Short header: dcid length is not self-describing on the wire: the
	// engine matches against every known CID length it has minted. All
	// connections created by this engine use defaultSCIDLength, so that
	// is what is assumed here.
	if len(b) < 1+defaultSCIDLength {
		return nil, false
	}
	return b[1 : 1+defaultSCIDLength], true
}
