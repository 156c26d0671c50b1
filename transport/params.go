package transport

import "time"

// Parameters are QUIC transport parameters exchanged during the
// handshake (spec section 6, "transport-parameter bit encoding" is
// explicitly a non-goal: this struct is the decoded, in-memory shape
// only; its wire encoding is a crypto-session collaborator concern).
type Parameters struct {
	OriginalDestinationCID []byte
	InitialSourceCID       []byte
	RetrySourceCID         []byte
	StatelessResetToken    []byte

	MaxIdleTimeout    time.Duration
	MaxUDPPayloadSize uint64
	AckDelayExponent  uint64
	MaxAckDelay       time.Duration

	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxStreamsBidi          uint64
	InitialMaxStreamsUni           uint64

	DisableActiveMigration bool
	ActiveConnIDLimit      uint64
}

// encodeParameters and decodeParameters shuttle a Parameters value
// through the TLS quic_transport_parameters extension. RFC 9000 section
// 18's exact TLV bit layout is a non-goal (spec section 1); this is a
// simple length-prefixed encoding sufficient for this implementation's
// own client and server to agree with each other, not for interop with
// a third-party QUIC stack's wire bytes.
func encodeParameters(p *Parameters) []byte {
	b := make([]byte, 0, 128)
	b = appendVarintBytes(b, p.OriginalDestinationCID)
	b = appendVarintBytes(b, p.InitialSourceCID)
	b = appendVarintBytes(b, p.RetrySourceCID)
	b = appendVarintBytes(b, p.StatelessResetToken)
	b = appendVarintUint(b, uint64(p.MaxIdleTimeout))
	b = appendVarintUint(b, p.MaxUDPPayloadSize)
	b = appendVarintUint(b, p.AckDelayExponent)
	b = appendVarintUint(b, uint64(p.MaxAckDelay))
	b = appendVarintUint(b, p.InitialMaxData)
	b = appendVarintUint(b, p.InitialMaxStreamDataBidiLocal)
	b = appendVarintUint(b, p.InitialMaxStreamDataBidiRemote)
	b = appendVarintUint(b, p.InitialMaxStreamDataUni)
	b = appendVarintUint(b, p.InitialMaxStreamsBidi)
	b = appendVarintUint(b, p.InitialMaxStreamsUni)
	flag := uint64(0)
	if p.DisableActiveMigration {
		flag = 1
	}
	b = appendVarintUint(b, flag)
	b = appendVarintUint(b, p.ActiveConnIDLimit)
	return b
}

func decodeParameters(b []byte) Parameters {
	var p Parameters
	var off int
	p.OriginalDestinationCID, off = readVarintBytes(b, off)
	p.InitialSourceCID, off = readVarintBytes(b, off)
	p.RetrySourceCID, off = readVarintBytes(b, off)
	p.StatelessResetToken, off = readVarintBytes(b, off)
	var v uint64
	v, off = readVarintUint(b, off)
	p.MaxIdleTimeout = time.Duration(v)
	p.MaxUDPPayloadSize, off = readVarintUint(b, off)
	p.AckDelayExponent, off = readVarintUint(b, off)
	v, off = readVarintUint(b, off)
	p.MaxAckDelay = time.Duration(v)
	p.InitialMaxData, off = readVarintUint(b, off)
	p.InitialMaxStreamDataBidiLocal, off = readVarintUint(b, off)
	p.InitialMaxStreamDataBidiRemote, off = readVarintUint(b, off)
	p.InitialMaxStreamDataUni, off = readVarintUint(b, off)
	p.InitialMaxStreamsBidi, off = readVarintUint(b, off)
	p.InitialMaxStreamsUni, off = readVarintUint(b, off)
	v, off = readVarintUint(b, off)
	p.DisableActiveMigration = v != 0
	p.ActiveConnIDLimit, off = readVarintUint(b, off)
	_ = off
	return p
}

func appendVarintBytes(b []byte, v []byte) []byte {
	tmp := make([]byte, varintLen(uint64(len(v))))
	putVarint(tmp, uint64(len(v)))
	b = append(b, tmp...)
	return append(b, v...)
}

func appendVarintUint(b []byte, v uint64) []byte {
	tmp := make([]byte, varintLen(v))
	putVarint(tmp, v)
	return append(b, tmp...)
}

func readVarintBytes(b []byte, off int) ([]byte, int) {
	var length uint64
	n := getVarint(b[off:], &length)
	if n == 0 {
		return nil, off
	}
	off += n
	if off+int(length) > len(b) {
		return nil, off
	}
	v := append([]byte(nil), b[off:off+int(length)]...)
	return v, off + int(length)
}

func readVarintUint(b []byte, off int) (uint64, int) {
	var v uint64
	n := getVarint(b[off:], &v)
	if n == 0 {
		return 0, off
	}
	return v, off + n
}

// defaultParameters returns the spec section 6 defaults.
func defaultParameters() Parameters {
	return Parameters{
		MaxIdleTimeout:                  30 * time.Second,
		MaxUDPPayloadSize:               65527,
		AckDelayExponent:                3,
		MaxAckDelay:                     25 * time.Millisecond,
		InitialMaxData:                  1 << 20,
		InitialMaxStreamDataBidiLocal:   1 << 16,
		InitialMaxStreamDataBidiRemote:  1 << 16,
		InitialMaxStreamDataUni:         1 << 16,
		InitialMaxStreamsBidi:           100,
		InitialMaxStreamsUni:            100,
		ActiveConnIDLimit:               activeConnIDLimit,
	}
}
