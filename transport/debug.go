package transport

// debugLog receives low-volume internal trace lines. It is nil by
// default (zero cost on the hot path); tests set it to capture traces
// without wiring a full LogEvent sink.
var debugLog func(format string, args ...interface{})

// debug is the core's internal trace hook, kept separate from the
// structured LogEvent/qlog path (log.go) which is what embedders and
// the root package's logger actually consume.
func debug(format string, args ...interface{}) {
	if debugLog != nil {
		debugLog(format, args...)
	}
}
