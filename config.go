package quic

import (
	"crypto/tls"
	"time"

	"github.com/pkg/errors"

	"github.com/tawawhite/quic/transport"
)

// Config holds engine-wide construction options: the per-connection
// transport.Config every accepted/dialed connection is built from, plus
// the glue concerns spec section 1(e) keeps out of the core — the
// handshake timeout, the retired-CID purgatory window, a connection cap,
// and the UDP socket buffer sizes.
//
// One Config is normally shared, read-only, across every Client/Server
// built from it (same sharing discipline as transport.Config).
type Config struct {
	TLS    *tls.Config
	Params transport.Parameters
	// Version is the QUIC version new connections start with. Zero
	// selects transport.Version1.
	Version uint32

	// HandshakeTimeout is the handshake time limit; Validate requires it
	// to be positive. The engine does not apply it: a connection is not
	// dropped for failing to complete its handshake in time.
	HandshakeTimeout time.Duration
	// PurgatoryLifetime is how long a retired connection's CIDs are
	// remembered so a late-arriving packet gets a stateless reset instead
	// of being silently dropped (SPEC_FULL.md section 5, grounded on
	// lsquic's lsquic_purga min_life).
	PurgatoryLifetime time.Duration
	// MaxConns is a cap on connections (attempted + active), zero meaning
	// unbounded. The engine does not consult it, so the number of
	// connections it keeps is not bounded.
	MaxConns int

	// RecvBufferSize and SendBufferSize set the UDP socket's receive and
	// send buffer sizes when non-zero.
	RecvBufferSize int
	SendBufferSize int
}

// NewConfig returns a Config with documented defaults applied, following
// the teacher's cmd/quince newConfig() pattern.
func NewConfig(tlsConfig *tls.Config) *Config {
	return &Config{
		TLS:               tlsConfig,
		Params:            transport.NewConfig(tlsConfig).Params,
		Version:           transport.Version1,
		HandshakeTimeout:  10 * time.Second,
		PurgatoryLifetime: 30 * time.Second,
	}
}

// Validate reports a configuration error without mutating c, so it can
// be called as a guard before ListenAndServe/Connect.
func (c *Config) Validate() error {
	if c.TLS == nil {
		return errors.New("quic: config: TLS is required")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("quic: config: HandshakeTimeout must be positive")
	}
	if c.PurgatoryLifetime < 0 {
		return errors.New("quic: config: PurgatoryLifetime must not be negative")
	}
	return nil
}

func (c *Config) transportConfig() *transport.Config {
	return &transport.Config{
		Version: c.Version,
		TLS:     c.TLS,
		Params:  c.Params,
	}
}
