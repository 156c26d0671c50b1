package transport

import "time"

// packetNumberSpace is one of the three packet number spaces (spec
// section 3): Initial, Handshake, or Application. It owns that space's
// current AEAD keys, its CRYPTO stream, and the receive-side ACK
// bookkeeping (spec section 4.1).
type packetNumberSpace struct {
	opener *packetOpener
	sealer *packetSealer

	cryptoStream *Stream

	// Receive-side packet number tracking.
	recvPacketNeedAck    rangeSet // packet numbers received but not yet acked
	recvPacketHistory    rangeSet // packet numbers ever received (for dedup + largest)
	ackElicited          bool
	largestRecvPacketNum uint64
	hasLargestRecv       bool
	largestRecvTime      time.Time

	// savedAck is the most recently processed incoming ACK frame's range
	// set, kept so a newly arrived ACK that is a strict superset, a
	// forward extension, or identical can be dispatched cheaply instead
	// of being walked range-by-range again (spec section 4.1, the
	// saved-ACK optimization described in SPEC_FULL.md section 5).
	savedAck    rangeSet
	hasSavedAck bool

	nextPacketNumber uint64
	firstPacketAcked bool

	dropped bool
}

func (s *packetNumberSpace) init() {
	s.cryptoStream = newStream(0)
	s.cryptoStream.critical = true
}

// reset clears receive/send bookkeeping but keeps keys and the crypto
// stream; the Retry and Version Negotiation paths call it to restart the
// Initial space, where drop() would discard the keys instead.
func (s *packetNumberSpace) reset() {
	s.recvPacketNeedAck.reset()
	s.recvPacketHistory.reset()
	s.ackElicited = false
	s.hasLargestRecv = false
	s.hasSavedAck = false
	s.savedAck.reset()
	s.nextPacketNumber = 0
	s.firstPacketAcked = false
}

func (s *packetNumberSpace) canDecrypt() bool { return s.opener != nil && !s.dropped }
func (s *packetNumberSpace) canEncrypt() bool { return s.sealer != nil && !s.dropped }

// drop discards keys and in-flight bookkeeping once a space is retired
// (spec section 4.6, "Ignoring Initial space" / "discarding Handshake
// keys"). The caller is responsible for telling the send controller via
// lossRecovery.dropUnackedData.
func (s *packetNumberSpace) drop() {
	s.opener = nil
	s.sealer = nil
	s.dropped = true
}

// isPacketReceived reports whether pn has already been seen, guarding
// against replay (spec invariant: "a packet number is processed at most
// once per space").
func (s *packetNumberSpace) isPacketReceived(pn uint64) bool {
	return s.recvPacketHistory.contains(pn)
}

// onPacketReceived records pn as received and to be covered by the next
// ACK, and tracks the largest packet number/arrival time for ACK Delay
// computation (RFC 9000 section 13.2.5). Whether an ACK is due is left to
// ackElicited, which recvFrames sets only for ack-eliciting packets.
func (s *packetNumberSpace) onPacketReceived(pn uint64, now time.Time) {
	s.recvPacketHistory.push(pn)
	s.recvPacketNeedAck.push(pn)
	if !s.hasLargestRecv || pn > s.largestRecvPacketNum {
		s.largestRecvPacketNum = pn
		s.largestRecvTime = now
		s.hasLargestRecv = true
	}
}

// ready reports whether this space has anything that warrants sending a
// packet right now: a pending ACK, or CRYPTO bytes queued.
func (s *packetNumberSpace) ready() bool {
	if s.ackElicited {
		return true
	}
	return streamHasPendingSend(s.cryptoStream)
}

// nextPN allocates the next outgoing packet number for this space (RFC
// 9000 section 12.3: numbers are never reused within a space).
func (s *packetNumberSpace) nextPN() uint64 {
	pn := s.nextPacketNumber
	s.nextPacketNumber++
	return pn
}

// decryptPacket removes header protection and decrypts the payload of a
// packet whose header has already been parsed by packet.decodeHeader/
// decodeBody. b is the full datagram slice starting at the packet's
// first byte; p.headerLen is the offset of the (still-protected) packet
// number field. It returns the plaintext payload and the number of bytes
// of b this packet occupies, so the caller can advance past it to reach
// any packet coalesced after it in the same datagram (RFC 9000 section
// 12.2); the reconstructed full packet number is recorded on p.
func (s *packetNumberSpace) decryptPacket(b []byte, p *packet) ([]byte, int, error) {
	if !s.canDecrypt() {
		return nil, 0, newError(InternalError, "keys not available")
	}
	sample := headerProtectionSample(b, p.headerLen)
	mask := s.opener.headerProtectionMask(sample)

	if p.typ == packetTypeShort {
		b[0] ^= mask[0] & 0x1f
	} else {
		b[0] ^= mask[0] & 0x0f
	}
	pnLength := int(b[0]&0x03) + 1
	pnOff := p.headerLen
	for i := 0; i < pnLength; i++ {
		b[pnOff+i] ^= mask[1+i]
	}
	truncated := decodePacketNumber(b[pnOff:pnOff+pnLength], pnLength)
	fullPN := decodePacketNumberWindow(truncated, pnLength, s.largestRecvPacketNum, s.hasLargestRecv)

	headerEnd := pnOff + pnLength
	payloadEnd := pnOff + p.payloadLen
	if payloadEnd > len(b) {
		return nil, 0, newError(FrameEncodingError, "payload length")
	}
	aad := b[:headerEnd]
	payload, err := s.opener.Open(fullPN, aad, b[headerEnd:payloadEnd])
	if err != nil {
		return nil, 0, newError(ProtocolViolation, "aead open failed")
	}
	p.packetNumber = fullPN
	return payload, payloadEnd, nil
}

// encryptPacket applies AEAD sealing and header protection to a packet
// whose unprotected header and plaintext payload have already been
// written by packet.encode into b: b[:p.headerLen] is the common header,
// b[p.headerLen:p.headerLen+pnLength] the packet number, and the
// remainder the plaintext payload. b must be sized to the full
// plaintext length; encryptPacket grows it in place with the AEAD tag
// (Overhead() extra bytes, already accounted for by the caller's
// capacity) and returns the total number of bytes written.
func (s *packetNumberSpace) encryptPacket(b []byte, p *packet) (int, error) {
	if !s.canEncrypt() {
		return 0, newError(InternalError, "keys not available")
	}
	pnLength := pnLen(p.packetNumber)
	pnOff := p.headerLen
	headerEnd := pnOff + pnLength
	payloadEnd := len(b)

	aad := b[:headerEnd]
	sealed := s.sealer.Seal(p.packetNumber, aad, b[headerEnd:payloadEnd])
	b = append(b[:headerEnd], sealed...)
	total := len(b)

	sample := headerProtectionSample(b, p.headerLen)
	mask := s.sealer.headerProtectionMask(sample)
	if p.typ == packetTypeShort {
		b[0] ^= mask[0] & 0x1f
	} else {
		b[0] ^= mask[0] & 0x0f
	}
	for i := 0; i < pnLength; i++ {
		b[pnOff+i] ^= mask[1+i]
	}
	return total, nil
}

// decodePacketNumberWindow reconstructs the full packet number from its
// truncated wire form using the largest packet number received so far
// (RFC 9000 appendix A.3).
func decodePacketNumberWindow(truncated uint64, pnLength int, largest uint64, hasLargest bool) uint64 {
	if !hasLargest {
		return truncated
	}
	pnWin := uint64(1) << (8 * pnLength)
	pnHalfWin := pnWin / 2
	expected := largest + 1
	candidate := (expected &^ (pnWin - 1)) | truncated
	switch {
	case candidate+pnHalfWin <= expected && candidate < (1<<62)-pnWin:
		return candidate + pnWin
	case candidate > expected+pnHalfWin && candidate >= pnWin:
		return candidate - pnWin
	default:
		return candidate
	}
}

// mergeIncomingAck implements the saved-ACK fast path (SPEC_FULL.md
// section 5 / spec section 4.1 Open Question): given the newly decoded
// ACK frame's range set, dispatch on its relationship to the previously
// saved one.
//
//   - superset / merge: new ranges reach a higher largest packet number
//     than saved -> replace saved with new ranges, process only the
//     packet numbers saved did not cover. Both cases take this one
//     branch; saved is replaced, not merged in place.
//   - replace: any other new ranges that are not a subset of saved ->
//     replace wholesale, process everything.
//   - keep: new ranges is a subset of (or equal to) saved -> nothing new
//     to process, keep the saved state as-is.
func (s *packetNumberSpace) mergeIncomingAck(incoming rangeSet) (toProcess rangeSet, keep bool) {
	if !s.hasSavedAck {
		s.savedAck = incoming.clone()
		s.hasSavedAck = true
		return incoming, false
	}
	if incoming.empty() {
		return rangeSet{}, true
	}
	savedLargest := s.savedAck.largest()
	newLargest := incoming.largest()

	isSupersetOrMerge := newLargest > savedLargest
	isSubset := newLargest <= savedLargest && subsetOf(incoming, s.savedAck)

	switch {
	case isSubset:
		return rangeSet{}, true
	case isSupersetOrMerge:
		delta := rangeSet{}
		for _, r := range incoming.ranges {
			for n := r.start; n <= r.end; n++ {
				if !s.savedAck.contains(n) {
					delta.push(n)
				}
			}
		}
		s.savedAck = incoming.clone()
		return delta, false
	default:
		s.savedAck = incoming.clone()
		return incoming, false
	}
}

func subsetOf(a, b rangeSet) bool {
	for _, r := range a.ranges {
		for n := r.start; n <= r.end; n++ {
			if !b.contains(n) {
				return false
			}
		}
	}
	return true
}
