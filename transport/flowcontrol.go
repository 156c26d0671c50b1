package transport

// flowControl tracks send/recv credit for either the connection as a
// whole or a single stream (spec section 2, "Flow Controller").
//
// Receive side: maxRecv is the limit we have already advertised to the
// peer; maxRecvNext is the next limit to advertise, computed (and
// promoted to maxRecv) by commitMaxRecv when a MAX_DATA/MAX_STREAM_DATA
// frame carrying it is scheduled. recvRead counts the bytes received and
// charged against maxRecv (addRecv), used to decide when to open the
// window further; bytes the application has read are not tracked here,
// so the window grows as data arrives, not as it is consumed.
//
// Send side: maxSend is the limit the peer has granted us; sendOffset
// tracks bytes already sent.
type flowControl struct {
	maxRecv      uint64
	maxRecvNext  uint64
	recvRead     uint64
	windowUpdate uint64 // initial window size, used to grow maxRecvNext

	maxSend    uint64
	sendOffset uint64

	blocked bool // DATA_BLOCKED / STREAM_DATA_BLOCKED should be sent
}

func (f *flowControl) init(maxRecv, maxSend uint64) {
	f.maxRecv = maxRecv
	f.maxRecvNext = maxRecv
	f.windowUpdate = maxRecv
	f.maxSend = maxSend
}

// canRecv returns how many more bytes we are willing to accept.
func (f *flowControl) canRecv() uint64 {
	if f.recvRead > f.maxRecv {
		return 0
	}
	return f.maxRecv - f.recvRead
}

// addRecv records n freshly-received bytes (not yet necessarily read by
// the application); used for violation checks at frame-dispatch time.
func (f *flowControl) addRecv(n int) {
	f.recvRead += uint64(n)
}

// release is called when the application consumes n bytes that were
// already counted in addRecv, so recvRead does not double count: in this
// design recvRead already represents "received" bytes counted against
// the limit, so release is a no-op placeholder kept for callers that
// track consumption separately (stream read cursor).
func (f *flowControl) release(n int) {}

// shouldUpdateMaxRecv reports whether to grow the window: once received
// bytes (recvRead) leave at most half of it outstanding.
func (f *flowControl) shouldUpdateMaxRecv() bool {
	if f.maxRecvNext <= f.recvRead {
		return true
	}
	return f.maxRecvNext-f.recvRead <= f.windowUpdate/2
}

// commitMaxRecv is called once a MAX_DATA/MAX_STREAM_DATA advancing the
// window has been scheduled: it computes the next limit to advertise.
func (f *flowControl) commitMaxRecv() {
	next := f.recvRead + f.windowUpdate
	if next > f.maxRecvNext {
		f.maxRecvNext = next
	}
	f.maxRecv = f.maxRecvNext
}

// canSend returns how many more bytes we may send under the peer's
// advertised limit.
func (f *flowControl) canSend() uint64 {
	if f.sendOffset > f.maxSend {
		return 0
	}
	return f.maxSend - f.sendOffset
}

func (f *flowControl) addSend(n int) {
	f.sendOffset += uint64(n)
	if f.canSend() > 0 {
		f.blocked = false
	}
}

// setMaxSend advances the peer-granted send limit; per spec section 4.5
// it is ignored if not strictly greater (MAX_DATA/MAX_STREAM_DATA are
// monotonic-only).
func (f *flowControl) setMaxSend(max uint64) {
	if max > f.maxSend {
		f.maxSend = max
		f.blocked = false
	}
}
