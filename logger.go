package tcpcore

import (
	"context"
	"log/slog"

	"github.com/nibbleware/tcpcore/internal"
	"github.com/rs/xid"
)

func (cs *ConnectionState) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (cs.log != nil && cs.log.Handler().Enabled(context.Background(), lvl))
}

func (cs *ConnectionState) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(cs.log, lvl, msg, attrs...)
}

func (cs *ConnectionState) debug(msg string, attrs ...slog.Attr) {
	cs.logattrs(slog.LevelDebug, msg, attrs...)
}

func (cs *ConnectionState) trace(msg string, attrs ...slog.Attr) {
	cs.logattrs(internal.LevelTrace, msg, attrs...)
}

func (cs *ConnectionState) logerr(msg string, attrs ...slog.Attr) {
	cs.logattrs(slog.LevelError, msg, attrs...)
}

// traceAttr returns the attribute every log line carries: the connection's
// xid-based trace ID, so log lines from many concurrently-tracked
// connections can be correlated back to one without allocating a string
// key per call (mirrors a kernel TCP-info exporter's use of xid to label
// tracked connections).
func (cs *ConnectionState) traceAttr() slog.Attr {
	return slog.String("trace_id", cs.traceID.String())
}

func (cs *ConnectionState) traceSeg(msg string, seg Segment) {
	if cs.logenabled(internal.LevelTrace) {
		cs.trace(msg,
			cs.traceAttr(),
			slog.Uint64("seg.seq", uint64(seg.SEQ)),
			slog.Uint64("seg.ack", uint64(seg.ACK)),
			slog.Uint64("seg.wnd", uint64(seg.WND)),
			slog.String("seg.flags", seg.Flags.String()),
			slog.Uint64("seg.data", uint64(seg.DATALEN)),
		)
	}
}

func (cs *ConnectionState) traceTransition(from, to State) {
	cs.trace("state transition",
		cs.traceAttr(),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}

// newTraceID mints a new correlation ID for a connection. Exposed as a
// variable so tests can substitute a deterministic generator.
var newTraceID = xid.New
