package quic

import (
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/tawawhite/quic/transport"
)

// Server accepts inbound QUIC connections on a listening UDP socket
// (spec section 1(e): "connection creation on first accepted
// Initial" is engine glue sitting above the per-connection core).
type Server struct {
	engine *engine
}

// NewServer creates a Server that accepts connections using config.
func NewServer(config *Config) *Server {
	e := newEngine(config)
	s := &Server{engine: e}
	e.acceptConnFunc = s.acceptConn
	return s
}

// SetHandler installs the event handler invoked for every connection
// and stream event.
func (s *Server) SetHandler(h Handler) {
	s.engine.SetHandler(h)
}

// SetLogger configures transaction logging, following the teacher's
// cmd/quince verbosity scale (0=off 1=error 2=info 3=debug 4=trace).
func (s *Server) SetLogger(level int, w io.Writer) {
	s.engine.SetLogger(level, w)
}

// ListenAndServe opens addr and starts accepting connections.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.engine.config.Validate(); err != nil {
		return err
	}
	return s.engine.listen(addr)
}

// Close shuts down every accepted connection and the listening socket.
func (s *Server) Close() error {
	return s.engine.close()
}

// acceptConn is the server's acceptConnFunc: it mints a fresh local
// SCID and a transport.Conn via transport.Accept on the first
// datagram seen for dcid. Retry/Version-Negotiation round trips and
// anti-amplification are the core's concern once the connection
// exists (spec section 4.6); the engine's only job is to create it.
func (s *Server) acceptConn(dcid []byte, addr *net.UDPAddr) (*remoteConn, error) {
	scid, err := s.engine.newSCID()
	if err != nil {
		return nil, errors.Wrap(err, "quic: generate scid")
	}
	conn, err := transport.Accept(scid, dcid, s.engine.config.transportConfig())
	if err != nil {
		return nil, errors.Wrap(err, "quic: accept connection")
	}
	rc := newRemoteConn(s.engine.socket.LocalAddr(), addr, scid, conn)
	s.engine.registerConn(rc)
	s.engine.attachLogger(rc)
	return rc, nil
}
