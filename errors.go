package tcpcore

import "errors"

// RejectError represents a segment that was rejected by a validator and
// must never reach a component handler (spec §7). It is distinct from the
// handler-level errors below, which only arise from the small set of
// (state, flags) combinations each component handler explicitly accepts.
type RejectError struct{ err string }

func (e *RejectError) Error() string { return e.err }

func newRejectErr(msg string) *RejectError { return &RejectError{err: "reject segment: " + msg} }

var (
	// Validator rejection reasons (RFC 793 §3.4, RFC 5961 §3/§5). No code
	// in this package returns them: the validators report their outcome as
	// SeqValidation/AckValidation/RstValidation values, which the
	// dispatcher maps to Drop or SendChallengeAck.
	errWindowOverflow    = newRejectErr("window exceeds 2**16")
	errSeqNotInWindow    = newRejectErr("seq not in send/receive window")
	errLastNotInWindow   = newRejectErr("last octet not in send/receive window")
	errZeroWindow        = newRejectErr("zero window admits no data")
	errRequireSequential = newRejectErr("seq != rcv.nxt, only sequential segments accepted")
	errAckNotNext        = newRejectErr("ack != expected next")

	// WrongState is returned by an API orchestrator or component handler
	// call issued from an incompatible lifecycle state (spec §7). The
	// dispatcher maps it to Drop when it arises while processing an
	// inbound segment.
	ErrWrongState = errors.New("tcpcore: wrong state for operation")

	// InvalidAckNumber names a handshake/teardown ACK whose ackno does not
	// match the expected iss+1 or snd_nxt+1. ROD's handlers return no
	// error and no code in this package returns it; the dispatcher checks
	// the ackno before calling ROD and answers a mismatch with an Action.
	ErrInvalidAckNumber = errors.New("tcpcore: invalid ack number")

	// InvalidSequenceNumber names a FIN whose seg.seqno != rcv_nxt. ROD's
	// FIN handler returns no error and no code in this package returns it;
	// the dispatcher's sequence-window check drops such a segment first.
	ErrInvalidSequenceNumber = errors.New("tcpcore: invalid sequence number")

	errPortZero        = errors.New("tcpcore: port 0 is not a valid bind/connect target")
	errWindowTooLarge  = errors.New("tcpcore: window exceeds uint16 range")
	errConnNotExist    = errors.New("tcpcore: connection does not exist")
	errAlreadyClosing  = errors.New("tcpcore: connection already closing")
	errNotBound        = errors.New("tcpcore: local port not bound")
)
