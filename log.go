package quic

import (
	"github.com/sirupsen/logrus"

	"github.com/tawawhite/quic/transport"
)

// attachLogger wires rc's transport.LogEvent stream into the engine's
// logrus logger, one structured log line per event — the same
// granularity as the teacher's transactionLogger, rebuilt on logrus
// fields instead of a hand-rolled io.Writer formatter (SPEC_FULL.md
// section 3). Skipped entirely when the engine is below debug level,
// since qlog-shaped per-packet/per-frame logging is the noisiest tier.
func (e *engine) attachLogger(rc *remoteConn) {
	if e.log == nil || e.log.GetLevel() < logrus.DebugLevel {
		return
	}
	entry := e.log.WithFields(logrus.Fields{
		"remote": rc.addr,
		"scid":   hexString(rc.scid),
	})
	rc.conn.OnLogEvent(func(ev transport.LogEvent) {
		logTransportEvent(entry, ev)
	})
}

func (e *engine) detachLogger(rc *remoteConn) {
	rc.conn.OnLogEvent(nil)
}

// logTransportEvent turns one transport.LogEvent into a logrus record,
// the same (type, fields...) shape the teacher's formatLogEvent wrote
// as plain text, now as structured fields queryable by log aggregators.
func logTransportEvent(entry *logrus.Entry, e transport.LogEvent) {
	fields := make(logrus.Fields, len(e.Fields))
	for _, f := range e.Fields {
		if f.Str != "" {
			fields[f.Key] = f.Str
		} else {
			fields[f.Key] = f.Num
		}
	}
	entry.WithTime(e.Time).WithFields(fields).Debug(e.Type)
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}
