package transport

// streamMap is the Stream Table (spec section 2): keyed lookup, a single
// closed-ID set shared by all four Stream ID Types, and peer-initiated-creation
// policy enforcement.
type streamMap struct {
	streams map[uint64]*Stream
	closed  map[uint64]bool

	// Limits on locally-initiated streams, granted by the peer.
	peerMaxStreamsBidi uint64
	peerMaxStreamsUni  uint64
	localOpenedBidi    uint64
	localOpenedUni     uint64

	// Limits on peer-initiated streams, granted by us.
	localMaxStreamsBidi uint64
	localMaxStreamsUni  uint64
	peerOpenedBidi      uint64
	peerOpenedUni       uint64
}

func (m *streamMap) init(maxStreamsBidi, maxStreamsUni uint64) {
	m.streams = make(map[uint64]*Stream)
	m.closed = make(map[uint64]bool)
	m.localMaxStreamsBidi = maxStreamsBidi
	m.localMaxStreamsUni = maxStreamsUni
}

func (m *streamMap) get(id uint64) *Stream {
	return m.streams[id]
}

// create opens a new stream, applying peer-initiated creation policy: a
// peer opening stream N implicitly opens every lower-numbered stream of
// the same Stream ID Type that does not exist yet (RFC 9000 section 2.1),
// subject to the advertised limit (spec invariant: "a peer-initiated
// stream ID <= currently-advertised max").
func (m *streamMap) create(id uint64, local, bidi bool) (*Stream, error) {
	if m.closed[id] {
		return nil, newError(StreamStateError, sprint("stream closed ", id))
	}
	if !local {
		index := id >> 2
		var limit uint64
		if bidi {
			limit = m.localMaxStreamsBidi
		} else {
			limit = m.localMaxStreamsUni
		}
		if index >= limit {
			return nil, newError(StreamLimitError, sprint("stream limit exceeded ", id))
		}
		// Implicitly open lower-numbered streams of the same type.
		typeMask := id & 0x03
		for n := id - 4; int64(n) >= 0 && n&0x03 == typeMask; n -= 4 {
			if _, ok := m.streams[n]; ok || m.closed[n] {
				break
			}
			m.streams[n] = newStream(n)
			if bidi {
				m.peerOpenedBidi++
			} else {
				m.peerOpenedUni++
			}
		}
		if bidi {
			if index+1 > m.peerOpenedBidi {
				m.peerOpenedBidi = index + 1
			}
		} else {
			if index+1 > m.peerOpenedUni {
				m.peerOpenedUni = index + 1
			}
		}
	} else {
		index := id >> 2
		var limit uint64
		if bidi {
			limit = m.peerMaxStreamsBidi
		} else {
			limit = m.peerMaxStreamsUni
		}
		if index >= limit {
			return nil, newError(StreamLimitError, sprint("local stream limit ", id))
		}
		if bidi {
			m.localOpenedBidi++
		} else {
			m.localOpenedUni++
		}
	}
	st := newStream(id)
	m.streams[id] = st
	return st, nil
}

// close removes a stream once both directions have reached a terminal
// state and marks its ID permanently closed (spec invariant: "a closed
// stream ID is never resurrected").
func (m *streamMap) close(id uint64) {
	delete(m.streams, id)
	m.closed[id] = true
}

func (m *streamMap) setPeerMaxStreamsBidi(max uint64) {
	if max > m.peerMaxStreamsBidi {
		m.peerMaxStreamsBidi = max
	}
}

func (m *streamMap) setPeerMaxStreamsUni(max uint64) {
	if max > m.peerMaxStreamsUni {
		m.peerMaxStreamsUni = max
	}
}

// hasFlushable reports whether any stream has data, a FIN, or a
// service-flag bit ready to send.
func (m *streamMap) hasFlushable() bool {
	for _, st := range m.streams {
		if streamHasPendingSend(st) {
			return true
		}
	}
	return false
}

func streamHasPendingSend(st *Stream) bool {
	if st.send.sendOff-st.send.base < uint64(len(st.send.data)) {
		return true
	}
	if st.send.finSet && !st.send.finSent {
		return true
	}
	return st.updateMaxData || st.sendBlocked || st.sendReset
}

// isStreamCritical reports whether id names a connection-internal
// stream (crypto or HTTP/3 control/QPACK) that must always be eligible
// in a write tick regardless of user priority (spec section 4.2).
func isStreamCritical(st *Stream) bool {
	return st.critical
}
