package transport

// Frame type codes (RFC 9000 section 19). Spec section 6 legality table
// is enforced by frameLegalInSpace, defined alongside the dispatcher
// (recvFrames) in conn.go.
const (
	frameTypePadding            = 0x00
	frameTypePing               = 0x01
	frameTypeAck                = 0x02
	frameTypeAckECN             = 0x03
	frameTypeResetStream        = 0x04
	frameTypeStopSending        = 0x05
	frameTypeCrypto             = 0x06
	frameTypeNewToken           = 0x07
	frameTypeStream             = 0x08
	frameTypeStreamEnd          = 0x0f
	frameTypeMaxData            = 0x10
	frameTypeMaxStreamData      = 0x11
	frameTypeMaxStreamsBidi     = 0x12
	frameTypeMaxStreamsUni      = 0x13
	frameTypeDataBlocked        = 0x14
	frameTypeStreamDataBlocked  = 0x15
	frameTypeStreamsBlockedBidi = 0x16
	frameTypeStreamsBlockedUni  = 0x17
	frameTypeNewConnectionID    = 0x18
	frameTypeRetireConnectionID = 0x19
	frameTypePathChallenge      = 0x1a
	frameTypePathResponse       = 0x1b
	frameTypeConnectionClose    = 0x1c
	frameTypeApplicationClose   = 0x1d
	frameTypeHanshakeDone       = 0x1e
)

// isFrameAckEliciting reports whether a frame of this type makes the
// packet carrying it ack-eliciting (spec glossary).
func isFrameAckEliciting(typ uint64) bool {
	switch typ {
	case frameTypeAck, frameTypeAckECN, frameTypePadding,
		frameTypeConnectionClose, frameTypeApplicationClose:
		return false
	default:
		return true
	}
}

type frame interface {
	encode(b []byte) (int, error)
	decode(b []byte) (int, error)
	encodedLen() int
}

// --- PADDING ---

type paddingFrame struct {
	length int
}

func newPaddingFrame(length int) *paddingFrame { return &paddingFrame{length: length} }

func (f *paddingFrame) encodedLen() int { return f.length }

func (f *paddingFrame) encode(b []byte) (int, error) {
	if len(b) < f.length {
		return 0, errShortBuffer
	}
	for i := 0; i < f.length; i++ {
		b[i] = 0
	}
	return f.length, nil
}

func (f *paddingFrame) decode(b []byte) (int, error) {
	n := 0
	for n < len(b) && b[n] == frameTypePadding {
		n++
	}
	f.length = n
	return n, nil
}

// --- PING ---

type pingFrame struct{}

func (f *pingFrame) encodedLen() int { return 1 }

func (f *pingFrame) encode(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, errShortBuffer
	}
	b[0] = frameTypePing
	return 1, nil
}

func (f *pingFrame) decode(b []byte) (int, error) {
	return 1, nil
}

// --- ACK ---

type ackRange struct {
	gap      uint64
	ackRange uint64
}

type ackFrame struct {
	largestAck    uint64
	ackDelay      uint64
	firstAckRange uint64
	ackRanges     []ackRange
	ecnCounts     *ecnCounts
}

type ecnCounts struct {
	ect0, ect1, ce uint64
}

func newAckFrame(ackDelay uint64, recv rangeSet) *ackFrame {
	f := &ackFrame{ackDelay: ackDelay}
	if len(recv.ranges) == 0 {
		return f
	}
	f.largestAck = recv.ranges[0].end
	f.firstAckRange = recv.ranges[0].len() - 1
	for i := 1; i < len(recv.ranges); i++ {
		gap := recv.ranges[i-1].start - recv.ranges[i].end - 2
		f.ackRanges = append(f.ackRanges, ackRange{gap: gap, ackRange: recv.ranges[i].len() - 1})
	}
	return f
}

func (f *ackFrame) encodedLen() int {
	typ := frameTypeAck
	if f.ecnCounts != nil {
		typ = frameTypeAckECN
	}
	n := varintLen(uint64(typ)) + varintLen(f.largestAck) + varintLen(f.ackDelay) +
		varintLen(uint64(len(f.ackRanges))) + varintLen(f.firstAckRange)
	for _, r := range f.ackRanges {
		n += varintLen(r.gap) + varintLen(r.ackRange)
	}
	if f.ecnCounts != nil {
		n += varintLen(f.ecnCounts.ect0) + varintLen(f.ecnCounts.ect1) + varintLen(f.ecnCounts.ce)
	}
	return n
}

func (f *ackFrame) encode(b []byte) (int, error) {
	typ := uint64(frameTypeAck)
	if f.ecnCounts != nil {
		typ = frameTypeAckECN
	}
	off := 0
	off += putVarint(b[off:], typ)
	off += putVarint(b[off:], f.largestAck)
	off += putVarint(b[off:], f.ackDelay)
	off += putVarint(b[off:], uint64(len(f.ackRanges)))
	off += putVarint(b[off:], f.firstAckRange)
	for _, r := range f.ackRanges {
		off += putVarint(b[off:], r.gap)
		off += putVarint(b[off:], r.ackRange)
	}
	if f.ecnCounts != nil {
		off += putVarint(b[off:], f.ecnCounts.ect0)
		off += putVarint(b[off:], f.ecnCounts.ect1)
		off += putVarint(b[off:], f.ecnCounts.ce)
	}
	return off, nil
}

func (f *ackFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b[off:], &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack type")
	}
	off += n
	var count uint64
	if n = getVarint(b[off:], &f.largestAck); n == 0 {
		return 0, newError(FrameEncodingError, "largest ack")
	}
	off += n
	if n = getVarint(b[off:], &f.ackDelay); n == 0 {
		return 0, newError(FrameEncodingError, "ack delay")
	}
	off += n
	if n = getVarint(b[off:], &count); n == 0 {
		return 0, newError(FrameEncodingError, "range count")
	}
	off += n
	if n = getVarint(b[off:], &f.firstAckRange); n == 0 {
		return 0, newError(FrameEncodingError, "first range")
	}
	off += n
	f.ackRanges = f.ackRanges[:0]
	for i := uint64(0); i < count; i++ {
		var r ackRange
		if n = getVarint(b[off:], &r.gap); n == 0 {
			return 0, newError(FrameEncodingError, "gap")
		}
		off += n
		if n = getVarint(b[off:], &r.ackRange); n == 0 {
			return 0, newError(FrameEncodingError, "range")
		}
		off += n
		f.ackRanges = append(f.ackRanges, r)
	}
	if typ == frameTypeAckECN {
		f.ecnCounts = &ecnCounts{}
		if n = getVarint(b[off:], &f.ecnCounts.ect0); n == 0 {
			return 0, newError(FrameEncodingError, "ect0")
		}
		off += n
		if n = getVarint(b[off:], &f.ecnCounts.ect1); n == 0 {
			return 0, newError(FrameEncodingError, "ect1")
		}
		off += n
		if n = getVarint(b[off:], &f.ecnCounts.ce); n == 0 {
			return 0, newError(FrameEncodingError, "ce")
		}
		off += n
	}
	return off, nil
}

func (f *ackFrame) String() string {
	return sprint("largest=", f.largestAck, " delay=", f.ackDelay, " ranges=", len(f.ackRanges))
}

// toRangeSet reconstructs the set of acknowledged packet numbers encoded
// by this frame, newest-first, or nil if the ranges are malformed
// (spec section 4.1: InvalidAck on a malformed range).
func (f *ackFrame) toRangeSet() *rangeSet {
	rs := &rangeSet{}
	if f.largestAck < f.firstAckRange {
		return nil
	}
	start := f.largestAck - f.firstAckRange
	rs.ranges = append(rs.ranges, numberRange{start: start, end: f.largestAck})
	largest := start
	for _, r := range f.ackRanges {
		if largest < r.gap+2 {
			return nil
		}
		end := largest - r.gap - 2
		if end < r.ackRange {
			return nil
		}
		start := end - r.ackRange
		rs.ranges = append(rs.ranges, numberRange{start: start, end: end})
		largest = start
	}
	return rs
}

// --- RESET_STREAM ---

type resetStreamFrame struct {
	streamID  uint64
	errorCode uint64
	finalSize uint64
}

func newResetStreamFrame(streamID, errorCode, finalSize uint64) *resetStreamFrame {
	return &resetStreamFrame{streamID: streamID, errorCode: errorCode, finalSize: finalSize}
}

func (f *resetStreamFrame) encodedLen() int {
	return varintLen(frameTypeResetStream) + varintLen(f.streamID) + varintLen(f.errorCode) + varintLen(f.finalSize)
}

func (f *resetStreamFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeResetStream)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	off += putVarint(b[off:], f.finalSize)
	return off, nil
}

func (f *resetStreamFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "reset_stream")
	}
	off += n
	if n = getVarint(b[off:], &f.streamID); n == 0 {
		return 0, newError(FrameEncodingError, "reset_stream id")
	}
	off += n
	if n = getVarint(b[off:], &f.errorCode); n == 0 {
		return 0, newError(FrameEncodingError, "reset_stream code")
	}
	off += n
	if n = getVarint(b[off:], &f.finalSize); n == 0 {
		return 0, newError(FrameEncodingError, "reset_stream size")
	}
	off += n
	return off, nil
}

// --- STOP_SENDING ---

type stopSendingFrame struct {
	streamID  uint64
	errorCode uint64
}

func newStopSendingFrame(streamID, errorCode uint64) *stopSendingFrame {
	return &stopSendingFrame{streamID: streamID, errorCode: errorCode}
}

func (f *stopSendingFrame) encodedLen() int {
	return varintLen(frameTypeStopSending) + varintLen(f.streamID) + varintLen(f.errorCode)
}

func (f *stopSendingFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeStopSending)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	return off, nil
}

func (f *stopSendingFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending")
	}
	off += n
	if n = getVarint(b[off:], &f.streamID); n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending id")
	}
	off += n
	if n = getVarint(b[off:], &f.errorCode); n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending code")
	}
	off += n
	return off, nil
}

// --- CRYPTO ---

type cryptoFrame struct {
	offset uint64
	data   []byte
}

func newCryptoFrame(data []byte, offset uint64) *cryptoFrame {
	return &cryptoFrame{data: data, offset: offset}
}

func (f *cryptoFrame) encodedLen() int {
	return varintLen(frameTypeCrypto) + varintLen(f.offset) + varintLen(uint64(len(f.data))) + len(f.data)
}

func (f *cryptoFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeCrypto)
	off += putVarint(b[off:], f.offset)
	off += putVarint(b[off:], uint64(len(f.data)))
	off += copy(b[off:], f.data)
	return off, nil
}

func (f *cryptoFrame) decode(b []byte) (int, error) {
	off := 0
	var typ, length uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto")
	}
	off += n
	if n = getVarint(b[off:], &f.offset); n == 0 {
		return 0, newError(FrameEncodingError, "crypto offset")
	}
	off += n
	if n = getVarint(b[off:], &length); n == 0 {
		return 0, newError(FrameEncodingError, "crypto length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "crypto data")
	}
	f.data = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *cryptoFrame) String() string { return sprint("offset=", f.offset, " length=", len(f.data)) }

// --- NEW_TOKEN ---

type newTokenFrame struct {
	token []byte
}

func newNewTokenFrame(token []byte) *newTokenFrame { return &newTokenFrame{token: token} }

func (f *newTokenFrame) encodedLen() int {
	return varintLen(frameTypeNewToken) + varintLen(uint64(len(f.token))) + len(f.token)
}

func (f *newTokenFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeNewToken)
	off += putVarint(b[off:], uint64(len(f.token)))
	off += copy(b[off:], f.token)
	return off, nil
}

func (f *newTokenFrame) decode(b []byte) (int, error) {
	off := 0
	var typ, length uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_token")
	}
	off += n
	if n = getVarint(b[off:], &length); n == 0 {
		return 0, newError(FrameEncodingError, "new_token length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "new_token data")
	}
	f.token = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

// --- STREAM ---

type streamFrame struct {
	streamID uint64
	offset   uint64
	data     []byte
	fin      bool
}

func newStreamFrame(streamID uint64, data []byte, offset uint64, fin bool) *streamFrame {
	return &streamFrame{streamID: streamID, data: data, offset: offset, fin: fin}
}

func (f *streamFrame) encodedLen() int {
	// Always encodes OFF and LEN bits for simplicity.
	return varintLen(frameTypeStream) + varintLen(f.streamID) + varintLen(f.offset) +
		varintLen(uint64(len(f.data))) + len(f.data)
}

func (f *streamFrame) encode(b []byte) (int, error) {
	typ := uint64(frameTypeStream) | 0x04 | 0x02 // OFF=1 LEN=1
	if f.fin {
		typ |= 0x01
	}
	off := putVarint(b, typ)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.offset)
	off += putVarint(b[off:], uint64(len(f.data)))
	off += copy(b[off:], f.data)
	return off, nil
}

func (f *streamFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream")
	}
	off += n
	f.fin = typ&0x01 != 0
	hasLen := typ&0x02 != 0
	hasOff := typ&0x04 != 0
	if n = getVarint(b[off:], &f.streamID); n == 0 {
		return 0, newError(FrameEncodingError, "stream id")
	}
	off += n
	f.offset = 0
	if hasOff {
		if n = getVarint(b[off:], &f.offset); n == 0 {
			return 0, newError(FrameEncodingError, "stream offset")
		}
		off += n
	}
	var length uint64
	if hasLen {
		if n = getVarint(b[off:], &length); n == 0 {
			return 0, newError(FrameEncodingError, "stream length")
		}
		off += n
	} else {
		length = uint64(len(b) - off)
	}
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "stream data")
	}
	f.data = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

// --- MAX_DATA ---

type maxDataFrame struct {
	maximumData uint64
}

func newMaxDataFrame(max uint64) *maxDataFrame { return &maxDataFrame{maximumData: max} }

func (f *maxDataFrame) encodedLen() int {
	return varintLen(frameTypeMaxData) + varintLen(f.maximumData)
}

func (f *maxDataFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeMaxData)
	off += putVarint(b[off:], f.maximumData)
	return off, nil
}

func (f *maxDataFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_data")
	}
	off += n
	if n = getVarint(b[off:], &f.maximumData); n == 0 {
		return 0, newError(FrameEncodingError, "max_data value")
	}
	off += n
	return off, nil
}

// --- MAX_STREAM_DATA ---

type maxStreamDataFrame struct {
	streamID    uint64
	maximumData uint64
}

func newMaxStreamDataFrame(streamID, max uint64) *maxStreamDataFrame {
	return &maxStreamDataFrame{streamID: streamID, maximumData: max}
}

func (f *maxStreamDataFrame) encodedLen() int {
	return varintLen(frameTypeMaxStreamData) + varintLen(f.streamID) + varintLen(f.maximumData)
}

func (f *maxStreamDataFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeMaxStreamData)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.maximumData)
	return off, nil
}

func (f *maxStreamDataFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data")
	}
	off += n
	if n = getVarint(b[off:], &f.streamID); n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data id")
	}
	off += n
	if n = getVarint(b[off:], &f.maximumData); n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data value")
	}
	off += n
	return off, nil
}

// --- MAX_STREAMS ---

type maxStreamsFrame struct {
	maximumStreams uint64
	bidi           bool
}

func newMaxStreamsFrame(max uint64, bidi bool) *maxStreamsFrame {
	return &maxStreamsFrame{maximumStreams: max, bidi: bidi}
}

func (f *maxStreamsFrame) encodedLen() int {
	return varintLen(frameTypeMaxStreamsBidi) + varintLen(f.maximumStreams)
}

func (f *maxStreamsFrame) encode(b []byte) (int, error) {
	typ := uint64(frameTypeMaxStreamsUni)
	if f.bidi {
		typ = frameTypeMaxStreamsBidi
	}
	off := putVarint(b, typ)
	off += putVarint(b[off:], f.maximumStreams)
	return off, nil
}

func (f *maxStreamsFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_streams")
	}
	off += n
	f.bidi = typ == frameTypeMaxStreamsBidi
	if n = getVarint(b[off:], &f.maximumStreams); n == 0 {
		return 0, newError(FrameEncodingError, "max_streams value")
	}
	off += n
	return off, nil
}

// --- DATA_BLOCKED ---

type dataBlockedFrame struct {
	dataLimit uint64
}

func newDataBlockedFrame(limit uint64) *dataBlockedFrame { return &dataBlockedFrame{dataLimit: limit} }

func (f *dataBlockedFrame) encodedLen() int {
	return varintLen(frameTypeDataBlocked) + varintLen(f.dataLimit)
}

func (f *dataBlockedFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeDataBlocked)
	off += putVarint(b[off:], f.dataLimit)
	return off, nil
}

func (f *dataBlockedFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "data_blocked")
	}
	off += n
	if n = getVarint(b[off:], &f.dataLimit); n == 0 {
		return 0, newError(FrameEncodingError, "data_blocked limit")
	}
	off += n
	return off, nil
}

// --- STREAM_DATA_BLOCKED ---

type streamDataBlockedFrame struct {
	streamID  uint64
	dataLimit uint64
}

func newStreamDataBlockedFrame(streamID, limit uint64) *streamDataBlockedFrame {
	return &streamDataBlockedFrame{streamID: streamID, dataLimit: limit}
}

func (f *streamDataBlockedFrame) encodedLen() int {
	return varintLen(frameTypeStreamDataBlocked) + varintLen(f.streamID) + varintLen(f.dataLimit)
}

func (f *streamDataBlockedFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeStreamDataBlocked)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.dataLimit)
	return off, nil
}

func (f *streamDataBlockedFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked")
	}
	off += n
	if n = getVarint(b[off:], &f.streamID); n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked id")
	}
	off += n
	if n = getVarint(b[off:], &f.dataLimit); n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked limit")
	}
	off += n
	return off, nil
}

// --- STREAMS_BLOCKED ---

type streamsBlockedFrame struct {
	streamLimit uint64
	bidi        bool
}

func newStreamsBlockedFrame(limit uint64, bidi bool) *streamsBlockedFrame {
	return &streamsBlockedFrame{streamLimit: limit, bidi: bidi}
}

func (f *streamsBlockedFrame) encodedLen() int {
	return varintLen(frameTypeStreamsBlockedBidi) + varintLen(f.streamLimit)
}

func (f *streamsBlockedFrame) encode(b []byte) (int, error) {
	typ := uint64(frameTypeStreamsBlockedUni)
	if f.bidi {
		typ = frameTypeStreamsBlockedBidi
	}
	off := putVarint(b, typ)
	off += putVarint(b[off:], f.streamLimit)
	return off, nil
}

func (f *streamsBlockedFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "streams_blocked")
	}
	off += n
	f.bidi = typ == frameTypeStreamsBlockedBidi
	if n = getVarint(b[off:], &f.streamLimit); n == 0 {
		return 0, newError(FrameEncodingError, "streams_blocked value")
	}
	off += n
	return off, nil
}

// --- NEW_CONNECTION_ID ---

type newConnectionIDFrame struct {
	sequenceNumber uint64
	retirePriorTo  uint64
	connectionID   []byte
	resetToken     [16]byte
}

func (f *newConnectionIDFrame) encodedLen() int {
	return varintLen(frameTypeNewConnectionID) + varintLen(f.sequenceNumber) + varintLen(f.retirePriorTo) +
		1 + len(f.connectionID) + 16
}

func (f *newConnectionIDFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeNewConnectionID)
	off += putVarint(b[off:], f.sequenceNumber)
	off += putVarint(b[off:], f.retirePriorTo)
	b[off] = byte(len(f.connectionID))
	off++
	off += copy(b[off:], f.connectionID)
	off += copy(b[off:], f.resetToken[:])
	return off, nil
}

func (f *newConnectionIDFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id")
	}
	off += n
	if n = getVarint(b[off:], &f.sequenceNumber); n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id seq")
	}
	off += n
	if n = getVarint(b[off:], &f.retirePriorTo); n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id retire")
	}
	off += n
	if off >= len(b) {
		return 0, newError(FrameEncodingError, "new_connection_id length")
	}
	cidLen := int(b[off])
	off++
	if len(b) < off+cidLen+16 {
		return 0, newError(FrameEncodingError, "new_connection_id body")
	}
	f.connectionID = b[off : off+cidLen]
	off += cidLen
	copy(f.resetToken[:], b[off:off+16])
	off += 16
	return off, nil
}

// --- RETIRE_CONNECTION_ID ---

type retireConnectionIDFrame struct {
	sequenceNumber uint64
}

func (f *retireConnectionIDFrame) encodedLen() int {
	return varintLen(frameTypeRetireConnectionID) + varintLen(f.sequenceNumber)
}

func (f *retireConnectionIDFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeRetireConnectionID)
	off += putVarint(b[off:], f.sequenceNumber)
	return off, nil
}

func (f *retireConnectionIDFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "retire_connection_id")
	}
	off += n
	if n = getVarint(b[off:], &f.sequenceNumber); n == 0 {
		return 0, newError(FrameEncodingError, "retire_connection_id seq")
	}
	off += n
	return off, nil
}

// --- PATH_CHALLENGE / PATH_RESPONSE ---

type pathChallengeFrame struct {
	data [8]byte
}

func (f *pathChallengeFrame) encodedLen() int { return varintLen(frameTypePathChallenge) + 8 }

func (f *pathChallengeFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypePathChallenge)
	off += copy(b[off:], f.data[:])
	return off, nil
}

func (f *pathChallengeFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "path_challenge")
	}
	off += n
	if len(b) < off+8 {
		return 0, newError(FrameEncodingError, "path_challenge data")
	}
	copy(f.data[:], b[off:off+8])
	off += 8
	return off, nil
}

type pathResponseFrame struct {
	data [8]byte
}

func (f *pathResponseFrame) encodedLen() int { return varintLen(frameTypePathResponse) + 8 }

func (f *pathResponseFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypePathResponse)
	off += copy(b[off:], f.data[:])
	return off, nil
}

func (f *pathResponseFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "path_response")
	}
	off += n
	if len(b) < off+8 {
		return 0, newError(FrameEncodingError, "path_response data")
	}
	copy(f.data[:], b[off:off+8])
	off += 8
	return off, nil
}

// --- CONNECTION_CLOSE ---

type connectionCloseFrame struct {
	application  bool
	errorCode    uint64
	frameType    uint64
	reasonPhrase []byte
}

func newConnectionCloseFrame(errorCode uint64, frameType uint64, reason []byte, app bool) *connectionCloseFrame {
	return &connectionCloseFrame{errorCode: errorCode, frameType: frameType, reasonPhrase: reason, application: app}
}

func (f *connectionCloseFrame) encodedLen() int {
	n := varintLen(frameTypeConnectionClose) + varintLen(f.errorCode)
	if !f.application {
		n += varintLen(f.frameType)
	}
	n += varintLen(uint64(len(f.reasonPhrase))) + len(f.reasonPhrase)
	return n
}

func (f *connectionCloseFrame) encode(b []byte) (int, error) {
	typ := uint64(frameTypeConnectionClose)
	if f.application {
		typ = frameTypeApplicationClose
	}
	off := putVarint(b, typ)
	off += putVarint(b[off:], f.errorCode)
	if !f.application {
		off += putVarint(b[off:], f.frameType)
	}
	off += putVarint(b[off:], uint64(len(f.reasonPhrase)))
	off += copy(b[off:], f.reasonPhrase)
	return off, nil
}

func (f *connectionCloseFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close")
	}
	off += n
	f.application = typ == frameTypeApplicationClose
	if n = getVarint(b[off:], &f.errorCode); n == 0 {
		return 0, newError(FrameEncodingError, "connection_close code")
	}
	off += n
	if !f.application {
		if n = getVarint(b[off:], &f.frameType); n == 0 {
			return 0, newError(FrameEncodingError, "connection_close frame type")
		}
		off += n
	}
	var length uint64
	if n = getVarint(b[off:], &length); n == 0 {
		return 0, newError(FrameEncodingError, "connection_close reason length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "connection_close reason")
	}
	f.reasonPhrase = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *connectionCloseFrame) String() string {
	return sprint("code=", errorCodeString(ErrorCode(f.errorCode)), " reason=", string(f.reasonPhrase))
}

// --- HANDSHAKE_DONE ---

type handshakeDoneFrame struct{}

func (f *handshakeDoneFrame) encodedLen() int { return varintLen(frameTypeHanshakeDone) }

func (f *handshakeDoneFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeHanshakeDone)
	return off, nil
}

func (f *handshakeDoneFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "handshake_done")
	}
	off += n
	return off, nil
}

// encodeFrames writes frames sequentially into b, in the order supplied.
// Spec section 5 requires a fixed class order within a packet; the
// caller (sendFrames in conn.go) is responsible for ordering frames
// before calling this.
func encodeFrames(b []byte, frames []frame) (int, error) {
	off := 0
	for _, f := range frames {
		n, err := f.encode(b[off:])
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}
