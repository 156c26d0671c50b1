package transport

// EventType identifies a connection-level event delivered to the
// embedder (spec section 6, "Embedder callbacks"). The core only
// raises the stream-lifecycle events below; connection-lifecycle
// events (accept/close) are the engine's to raise, but share this type
// so a handler can switch over a single value (see the root package's
// EventConnAccept/EventConnClose).
type EventType int

// Stream lifecycle events raised by the core.
const (
	// EventStream indicates a stream has newly received data or a FIN
	// to read.
	EventStream EventType = iota + 1
	// EventStreamReset indicates the peer abruptly terminated its send
	// side (RESET_STREAM received).
	EventStreamReset
	// EventStreamStop indicates the peer asked us to stop sending
	// (STOP_SENDING received).
	EventStreamStop
	// EventStreamComplete indicates all data queued on a locally-opened
	// stream has been acknowledged.
	EventStreamComplete
)

// Event is a single notification the embedder drains via Conn.Events.
type Event struct {
	Type      EventType
	StreamID  uint64
	ErrorCode uint64
}

func newStreamRecvEvent(streamID uint64) Event {
	return Event{Type: EventStream, StreamID: streamID}
}

func newStreamResetEvent(streamID uint64, errorCode uint64) Event {
	return Event{Type: EventStreamReset, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamStopEvent(streamID uint64, errorCode uint64) Event {
	return Event{Type: EventStreamStop, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamCompleteEvent(streamID uint64) Event {
	return Event{Type: EventStreamComplete, StreamID: streamID}
}
