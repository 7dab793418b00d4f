package tcpcore

import "net/netip"

// Demultiplexing (DX) is stateless by design (spec §4 Non-goal: no demux
// hash table lives in this module): matching a received segment to a
// connection is a pure function over the candidate's 4-tuple and the
// segment's addressing, never a stored index this module owns or mutates.

// Demuxable is any value that can report the 4-tuple DX matches on. The
// API orchestrator's ConnectionState implements it.
type Demuxable interface {
	Tuple() FourTuple
}

// MatchesEstablished reports whether an inbound segment addressed to
// localPort from remoteAddr:remotePort belongs to a fully-specified
// (non-Listen) connection's tuple.
func MatchesEstablished(d Demuxable, localPort uint16, remoteAddr netip.Addr, remotePort uint16) bool {
	return d.Tuple().Matches(localPort, remoteAddr, remotePort)
}

// MatchesListen reports whether d's local port is localPort, the only part
// of a Listen-state connection's tuple there is to match (it has no remote
// half yet). It does not check d's state; [SelectConnection] does that
// through its isListenState argument.
func MatchesListen(d Demuxable, localPort uint16) bool {
	t := d.Tuple()
	return t.LocalPort == localPort
}

// SelectConnection implements the demultiplexing priority RFC 9293 §3.10.7
// assumes: prefer an exact fully-specified match over a wildcard Listen
// match. candidates is scanned in order; callers own how candidates is
// built and indexed (spec Non-goal: no demux table in this module).
func SelectConnection[T Demuxable](candidates []T, localPort uint16, remoteAddr netip.Addr, remotePort uint16, isListenState func(T) bool) (match T, ok bool) {
	var listenMatch T
	haveListenMatch := false
	for _, c := range candidates {
		if MatchesEstablished(c, localPort, remoteAddr, remotePort) {
			return c, true
		}
		if isListenState(c) && MatchesListen(c, localPort) {
			listenMatch = c
			haveListenMatch = true
		}
	}
	if haveListenMatch {
		return listenMatch, true
	}
	return match, false
}
