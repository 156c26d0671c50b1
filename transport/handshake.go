package transport

import (
	"context"
	"crypto/tls"
)

// tlsHandshake is the crypto-session collaborator (spec section 4.4,
// "out of scope internals, in-scope shape"): it wraps crypto/tls's
// QUIC-mode handshake state machine (Go 1.21+, tls.QUICConn) so the
// connection FSM only ever sees CRYPTO bytes in and secrets/events out,
// never TLS record framing.
type tlsHandshake struct {
	owner       *Conn
	tlsConfig   *tls.Config
	isClient    bool
	ourParams   []byte
	lastParams  *Parameters

	conn *tls.QUICConn

	started        bool
	complete       bool
	peerParamsSeen bool
	peerParams     Parameters

	// sendBuf[space] holds CRYPTO bytes crypto/tls has queued for that
	// packet number space's crypto stream, drained by Conn.doHandshake
	// into packetNumberSpace.cryptoStream.send.
	sendBuf [packetSpaceCount][]byte

	pendingSecrets []quicSecretEvent
}

// quicSecretEvent carries one newly-available AEAD secret from
// crypto/tls, to be turned into an opener or sealer for the matching
// packet number space.
type quicSecretEvent struct {
	space    packetSpace
	readKey  []byte // nil unless this event set the read (decrypt) secret
	writeKey []byte // nil unless this event set the write (encrypt) secret
}

// init wires the handshake collaborator to its owning connection; the
// actual tls.QUICConn is created lazily by setTransportParams/start since
// it needs our encoded transport parameters up front.
func (h *tlsHandshake) init(owner *Conn, tlsConfig *tls.Config) {
	h.owner = owner
	h.tlsConfig = tlsConfig
	h.isClient = owner.isClient
}

// setTransportParams (re)creates the underlying tls.QUICConn with our
// current transport parameters. Called once at connection creation and
// again after Retry/Version-Negotiation resets the handshake.
func (h *tlsHandshake) setTransportParams(p *Parameters) {
	h.lastParams = p
	h.ourParams = encodeParameters(p)
	if h.isClient {
		h.conn = tls.QUICClient(&tls.QUICConfig{TLSConfig: h.tlsConfig})
	} else {
		h.conn = tls.QUICServer(&tls.QUICConfig{TLSConfig: h.tlsConfig})
	}
	h.conn.SetTransportParameters(h.ourParams)
}

// reset recreates the handshake state machine from scratch (spec 4.6:
// Retry and Version Negotiation both restart the Initial space and the
// crypto session along with it).
func (h *tlsHandshake) reset() {
	h.started = false
	h.complete = false
	h.peerParamsSeen = false
	h.peerParams = Parameters{}
	for i := range h.sendBuf {
		h.sendBuf[i] = nil
	}
	h.pendingSecrets = nil
	h.setTransportParams(h.lastParams)
}

// doHandshake drives the handshake forward: starts it if not yet
// started, then drains any events crypto/tls has queued.
func (h *tlsHandshake) doHandshake() error {
	if !h.started {
		h.started = true
		if err := h.conn.Start(context.Background()); err != nil {
			return wrapTLSAlert(err)
		}
	}
	return h.drainEvents()
}

// handleData feeds received CRYPTO frame bytes at the given space into
// crypto/tls and drains resulting events.
func (h *tlsHandshake) handleData(space packetSpace, data []byte) error {
	if err := h.conn.HandleData(quicSpaceToLevel(space), data); err != nil {
		return wrapTLSAlert(err)
	}
	return h.drainEvents()
}

func (h *tlsHandshake) drainEvents() error {
	for {
		ev := h.conn.NextEvent()
		switch ev.Kind {
		case tls.QUICNoEvent:
			return nil
		case tls.QUICSetReadSecret:
			h.pendingSecrets = append(h.pendingSecrets, quicSecretEvent{space: quicLevelToSpace(ev.Level), readKey: ev.Data})
		case tls.QUICSetWriteSecret:
			h.pendingSecrets = append(h.pendingSecrets, quicSecretEvent{space: quicLevelToSpace(ev.Level), writeKey: ev.Data})
		case tls.QUICWriteData:
			space := quicLevelToSpace(ev.Level)
			h.sendBuf[space] = append(h.sendBuf[space], ev.Data...)
		case tls.QUICTransportParameters:
			h.peerParams = decodeParameters(ev.Data)
			h.peerParamsSeen = true
		case tls.QUICTransportParametersRequired:
			h.conn.SetTransportParameters(h.ourParams)
		case tls.QUICHandshakeDone:
			h.complete = true
		}
	}
}

// takeSecrets drains newly-available key material for the caller to turn
// into openers/sealers.
func (h *tlsHandshake) takeSecrets() []quicSecretEvent {
	s := h.pendingSecrets
	h.pendingSecrets = nil
	return s
}

// takeCryptoBytes drains queued outbound CRYPTO bytes for space.
func (h *tlsHandshake) takeCryptoBytes(space packetSpace) []byte {
	b := h.sendBuf[space]
	h.sendBuf[space] = nil
	return b
}

func (h *tlsHandshake) HandshakeComplete() bool { return h.complete }

// peerTransportParams returns the peer's decoded transport parameters,
// or nil if not yet received.
func (h *tlsHandshake) peerTransportParams() *Parameters {
	if !h.peerParamsSeen {
		return nil
	}
	return &h.peerParams
}

// writeSpace picks the most advanced space whose keys are still valid,
// used when probing or closing and no packet number space has anything
// queued of its own (spec 4.6 step 6h / CONNECTION_CLOSE emission).
func (h *tlsHandshake) writeSpace() packetSpace {
	for i := packetSpaceApplication; ; i-- {
		if h.owner.packetNumberSpaces[i].canEncrypt() {
			return i
		}
		if i == packetSpaceInitial {
			break
		}
	}
	return packetSpaceCount
}

func quicLevelToSpace(level tls.QUICEncryptionLevel) packetSpace {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return packetSpaceInitial
	case tls.QUICEncryptionLevelHandshake:
		return packetSpaceHandshake
	default:
		return packetSpaceApplication
	}
}

func quicSpaceToLevel(space packetSpace) tls.QUICEncryptionLevel {
	switch space {
	case packetSpaceInitial:
		return tls.QUICEncryptionLevelInitial
	case packetSpaceHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

// wrapTLSAlert turns a crypto/tls QUIC alert error into a CRYPTO_ERROR
// transport error (RFC 9001 section 4.8: TLS alerts map to 0x100+alert).
func wrapTLSAlert(err error) error {
	if ae, ok := err.(tls.AlertError); ok {
		return newError(CryptoErrorBase+ErrorCode(ae), "tls alert")
	}
	return newError(InternalError, err.Error())
}
