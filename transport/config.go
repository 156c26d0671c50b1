package transport

import "crypto/tls"

// Config holds per-connection construction options (spec section 6,
// "Configuration (recognized options)"). One Config is normally shared,
// read-only, across every connection an engine creates; Connect/Accept
// copy the Params value into each connection's localParams so per-
// connection mutation (CID fix-ups before the handshake starts) never
// touches the shared struct.
type Config struct {
	// Version is the QUIC version this connection starts with. Zero
	// selects Version1.
	Version uint32
	// TLS is the underlying TLS configuration driving the handshake
	// (spec section 1(a): the crypto session is an out-of-scope
	// collaborator; this is just where the embedder plugs it in).
	TLS *tls.Config
	// Params are the local transport parameters offered to the peer.
	// Connect/Accept fill in the CID-derived fields (InitialSourceCID,
	// OriginalDestinationCID, RetrySourceCID) themselves.
	Params Parameters
}

// NewConfig returns a Config with spec section 6 defaults applied.
func NewConfig(tlsConfig *tls.Config) *Config {
	return &Config{
		Version: Version1,
		TLS:     tlsConfig,
		Params:  defaultParameters(),
	}
}
