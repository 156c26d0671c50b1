package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// Wire-format sizing constants. Spec section 1 marks the bit-layout of
// each QUIC draft revision a non-goal; these are the sizes the CORE
// needs to know to budget packets, not a claim of exact on-wire parity
// with any particular draft.
const (
	MaxCIDLength         = 20
	MinInitialPacketSize = 1200
	MaxPacketSize        = 65527

	minPayloadLength       = 4 // smallest payload so a packet number sample can be read
	maxCryptoFrameOverhead = 16
	maxStreamFrameOverhead = 16

	retryIntegrityTagLen = 16
)

type packetType uint8

const (
	packetTypeInitial packetType = iota
	packetTypeZeroRTT
	packetTypeHandshake
	packetTypeRetry
	packetTypeShort
	packetTypeVersionNegotiation
)

func (t packetType) String() string {
	switch t {
	case packetTypeInitial:
		return "initial"
	case packetTypeZeroRTT:
		return "0rtt"
	case packetTypeHandshake:
		return "handshake"
	case packetTypeRetry:
		return "retry"
	case packetTypeShort:
		return "short"
	case packetTypeVersionNegotiation:
		return "version_negotiation"
	}
	return "unknown"
}

// packetSpace identifies one of the three packet number spaces (spec
// section 3). 0-RTT and 1-RTT packets share the Application space.
type packetSpace uint8

const (
	packetSpaceInitial packetSpace = iota
	packetSpaceHandshake
	packetSpaceApplication
	packetSpaceCount
)

func (s packetSpace) String() string {
	switch s {
	case packetSpaceInitial:
		return "initial"
	case packetSpaceHandshake:
		return "handshake"
	case packetSpaceApplication:
		return "application"
	}
	return "unknown"
}

func packetTypeFromSpace(space packetSpace) packetType {
	switch space {
	case packetSpaceInitial:
		return packetTypeInitial
	case packetSpaceHandshake:
		return packetTypeHandshake
	default:
		return packetTypeShort
	}
}

// encryptionLevel returns the level a given packet type is protected at.
func (t packetType) encryptionLevel() encryptionLevel {
	switch t {
	case packetTypeInitial:
		return levelInitial
	case packetTypeZeroRTT:
		return levelZeroRTT
	case packetTypeHandshake:
		return levelHandshake
	default:
		return levelOneRTT
	}
}

type encryptionLevel uint8

const (
	levelInitial encryptionLevel = iota
	levelZeroRTT
	levelHandshake
	levelOneRTT
)

func (l encryptionLevel) String() string {
	switch l {
	case levelInitial:
		return "initial"
	case levelZeroRTT:
		return "0rtt"
	case levelHandshake:
		return "handshake"
	case levelOneRTT:
		return "1rtt"
	}
	return "unknown"
}

// packetHeader is the public, version-agnostic subset of a packet header
// the codec exposes to the rest of the core.
type packetHeader struct {
	version uint32
	dcid    []byte
	scid    []byte
	dcil    uint8 // expected DCID length, needed to parse short headers
}

// packet describes one inbound or outbound packet. The core treats the
// bytes themselves opaquely (spec section 6); this struct is the small
// decoded/encoded shell the frame dispatcher and send controller work
// against.
type packet struct {
	typ    packetType
	header packetHeader

	packetNumber uint64
	payloadLen   int // length of payload, including packet-number field for long headers

	token             []byte
	supportedVersions []uint32

	headerLen int // bytes consumed decoding the header (excluding packet number)
}

func (p *packet) String() string {
	return p.typ.String()
}

func (p *packet) encodedLen() int {
	n := 0
	if p.typ == packetTypeShort {
		n = 1 + len(p.header.dcid)
	} else {
		n = 1 + 4 + 1 + len(p.header.dcid) + 1 + len(p.header.scid)
		if p.typ == packetTypeInitial {
			n += varintLen(uint64(len(p.token))) + len(p.token)
		}
		n += varintLen(uint64(p.payloadLen))
	}
	n += pnLen(p.packetNumber)
	return n
}

// decodeHeader parses just enough of the header to route the packet to a
// handler (packet type, version, CIDs). It does not remove header
// protection or decode the packet number, both of which require the
// per-space keys (decodeBody does that via pnSpace.decryptPacket).
func (p *packet) decodeHeader(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, newError(FrameEncodingError, "short header")
	}
	first := b[0]
	if first&0x80 == 0 {
		// Short header: 0 1 S R R K PP
		p.typ = packetTypeShort
		dcidLen := int(p.header.dcil)
		if len(b) < 1+dcidLen {
			return 0, newError(FrameEncodingError, "short header cid")
		}
		p.header.dcid = b[1 : 1+dcidLen]
		p.headerLen = 1 + dcidLen
		return p.headerLen, nil
	}
	// Long header.
	if len(b) < 6 {
		return 0, newError(FrameEncodingError, "long header")
	}
	version := binary.BigEndian.Uint32(b[1:5])
	off := 5
	dcil := int(b[off])
	off++
	if len(b) < off+dcil {
		return 0, newError(FrameEncodingError, "dcid")
	}
	dcid := b[off : off+dcil]
	off += dcil
	if version == 0 {
		p.typ = packetTypeVersionNegotiation
		p.header.version = 0
		p.header.dcid = dcid
		if len(b) < off+1 {
			return 0, newError(FrameEncodingError, "scid")
		}
		scil := int(b[off])
		off++
		if len(b) < off+scil {
			return 0, newError(FrameEncodingError, "scid")
		}
		p.header.scid = b[off : off+scil]
		off += scil
		p.headerLen = off
		return off, nil
	}
	longType := (first >> 4) & 0x3
	switch longType {
	case 0:
		p.typ = packetTypeInitial
	case 1:
		p.typ = packetTypeZeroRTT
	case 2:
		p.typ = packetTypeHandshake
	case 3:
		p.typ = packetTypeRetry
	}
	p.header.version = version
	p.header.dcid = dcid
	if len(b) < off+1 {
		return 0, newError(FrameEncodingError, "scid")
	}
	scil := int(b[off])
	off++
	if len(b) < off+scil {
		return 0, newError(FrameEncodingError, "scid")
	}
	p.header.scid = b[off : off+scil]
	off += scil
	p.headerLen = off
	return off, nil
}

// decodeBody parses the long-header fields that follow the CIDs: token
// (Initial only), length, and for Retry the trailing token. It leaves
// the packet number / payload, which require header protection removal,
// to pnSpace.decryptPacket.
func (p *packet) decodeBody(b []byte) (int, error) {
	off := p.headerLen
	switch p.typ {
	case packetTypeVersionNegotiation:
		for off+4 <= len(b) {
			p.supportedVersions = append(p.supportedVersions, binary.BigEndian.Uint32(b[off:off+4]))
			off += 4
		}
		return off - p.headerLen, nil
	case packetTypeRetry:
		tokenLen := len(b) - off - retryIntegrityTagLen
		if tokenLen < 0 {
			return 0, newError(FrameEncodingError, "retry token")
		}
		p.token = b[off : off+tokenLen]
		off += tokenLen
		return off - p.headerLen, nil
	case packetTypeInitial:
		var tokenLen uint64
		n := getVarint(b[off:], &tokenLen)
		if n == 0 {
			return 0, newError(FrameEncodingError, "token length")
		}
		off += n
		if uint64(len(b)-off) < tokenLen {
			return 0, newError(FrameEncodingError, "token")
		}
		p.token = b[off : off+int(tokenLen)]
		off += int(tokenLen)
		var length uint64
		n = getVarint(b[off:], &length)
		if n == 0 {
			return 0, newError(FrameEncodingError, "length")
		}
		off += n
		p.payloadLen = int(length)
		p.headerLen = off
		return off - p.headerLen, nil
	case packetTypeShort:
		// Short headers carry no explicit length: the packet (packet
		// number + payload) extends to the end of the datagram, since
		// only the last packet in a UDP datagram may use a short header
		// (RFC 9000 section 12.2).
		p.payloadLen = len(b) - off
		return 0, nil
	default:
		var length uint64
		n := getVarint(b[off:], &length)
		if n == 0 {
			return 0, newError(FrameEncodingError, "length")
		}
		off += n
		p.payloadLen = int(length)
		p.headerLen = off
		return 0, nil
	}
}

// encode writes the (unprotected) header up to and including the packet
// number. It returns the offset at which the payload should be written.
// Header protection and AEAD sealing are applied afterwards by the
// caller (pnSpace.encryptPacket), matching the teacher's two-step send().
func (p *packet) encode(b []byte) (int, error) {
	pnLength := pnLen(p.packetNumber)
	if p.typ == packetTypeShort {
		if len(b) < 1+len(p.header.dcid)+pnLength {
			return 0, errShortBuffer
		}
		b[0] = 0x40 | byte(pnLength-1)
		off := 1
		off += copy(b[off:], p.header.dcid)
		off += encodePacketNumber(b[off:], p.packetNumber, pnLength)
		return off, nil
	}
	longType := byte(0)
	switch p.typ {
	case packetTypeZeroRTT:
		longType = 1
	case packetTypeHandshake:
		longType = 2
	case packetTypeRetry:
		longType = 3
	}
	b[0] = 0xc0 | longType<<4 | byte(pnLength-1)
	off := 1
	binary.BigEndian.PutUint32(b[off:], p.header.version)
	off += 4
	b[off] = byte(len(p.header.dcid))
	off++
	off += copy(b[off:], p.header.dcid)
	b[off] = byte(len(p.header.scid))
	off++
	off += copy(b[off:], p.header.scid)
	if p.typ == packetTypeInitial {
		n := putVarint(b[off:], uint64(len(p.token)))
		if n == 0 {
			return 0, errShortBuffer
		}
		off += n
		off += copy(b[off:], p.token)
	}
	// Length: packet number + payload, always encoded as a 2-byte varint
	// so it can be patched after frames are written.
	lenOff := off
	off += 2
	off += encodePacketNumber(b[off:], p.packetNumber, pnLength)
	putVarint2(b[lenOff:lenOff+2], uint64(p.payloadLen))
	return off, nil
}

// putVarint2 always encodes using the 2-byte varint form, used for the
// long-header Length field which must be patched in place.
func putVarint2(b []byte, v uint64) {
	b[0] = 0x40 | byte(v>>8)
	b[1] = byte(v)
}

func pnLen(pn uint64) int {
	switch {
	case pn < 1<<8:
		return 1
	case pn < 1<<16:
		return 2
	case pn < 1<<24:
		return 3
	default:
		return 4
	}
}

func encodePacketNumber(b []byte, pn uint64, length int) int {
	for i := 0; i < length; i++ {
		b[i] = byte(pn >> (8 * (length - 1 - i)))
	}
	return length
}

func decodePacketNumber(b []byte, length int) uint64 {
	var pn uint64
	for i := 0; i < length; i++ {
		pn = (pn << 8) | uint64(b[i])
	}
	return pn
}

// retryIntegrityKey/Nonce are the fixed values used to compute the Retry
// Integrity Tag (RFC 9001 section 5.8, QUIC v1).
var (
	retryIntegrityKey   = []byte{0xbe, 0x0c, 0x69, 0x0b, 0x9f, 0x66, 0x57, 0x5a, 0x1d, 0x76, 0x6b, 0x54, 0xe3, 0x68, 0xc8, 0x4e}
	retryIntegrityNonce = []byte{0x46, 0x15, 0x99, 0xd3, 0x5d, 0x63, 0x2b, 0xf2, 0x23, 0x98, 0x25, 0xbb}
)

// verifyRetryIntegrity checks the trailing 16-byte integrity tag of a
// Retry packet against the original DCID the client used.
func verifyRetryIntegrity(b []byte, origDCID []byte) bool {
	if len(b) < retryIntegrityTagLen {
		return false
	}
	tag := retryIntegrityTag(b[:len(b)-retryIntegrityTagLen], origDCID)
	got := b[len(b)-retryIntegrityTagLen:]
	if len(tag) != len(got) {
		return false
	}
	diff := 0
	for i := range tag {
		diff |= int(tag[i] ^ got[i])
	}
	return diff == 0
}

func retryIntegrityTag(pseudoPacket []byte, origDCID []byte) []byte {
	block, err := aes.NewCipher(retryIntegrityKey)
	if err != nil {
		panic(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	ad := make([]byte, 0, 1+len(origDCID)+len(pseudoPacket))
	ad = append(ad, byte(len(origDCID)))
	ad = append(ad, origDCID...)
	ad = append(ad, pseudoPacket...)
	return aead.Seal(nil, retryIntegrityNonce, nil, ad)
}
