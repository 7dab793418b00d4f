package tcpcore

// Action is the Input Dispatcher's single output: a tagged variant
// describing the one externally-observable effect the embedding must
// perform in response to an inbound segment. The dispatcher never
// performs the side effect itself — it only classifies which one applies
// — keeping the core pure and testable (spec §9 design note).
type Action uint8

const (
	// ActionAccept means the segment was admitted; no reply segment is
	// required beyond whatever the connection's own data path later sends.
	ActionAccept Action = iota
	// ActionDrop means the segment was silently discarded; no reply.
	ActionDrop
	// ActionSendAck means the embedding must emit a bare ACK reflecting
	// the now-current rcv.nxt/snd.nxt.
	ActionSendAck
	// ActionSendSynAck means the embedding must emit a SYN|ACK in
	// response to a SYN received in Listen, or to a bare SYN in SynSent
	// when Policy.SimultaneousOpenTransitions is set.
	ActionSendSynAck
	// ActionSendChallengeAck means the embedding must emit a bare ACK per
	// RFC 5961 in response to a segment that looked like an off-path
	// attack attempt (out-of-window RST, ACK of unsent data, or an
	// in-window SYN on a synchronized connection).
	ActionSendChallengeAck
	// ActionSendRst means the embedding must emit a RST; this occurs for
	// segments addressed to a Closed connection and for an unacceptable
	// handshake ACK in SynSent or SynRcvd.
	ActionSendRst
	// ActionAbort means a valid RST was received: the connection has moved
	// to Closed (or to Listen under Policy.RSTReturnsToListen) and its
	// sequence, window and congestion state was reset.
	ActionAbort
)
