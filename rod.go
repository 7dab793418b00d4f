package tcpcore

import "time"

// Default retransmission bookkeeping (spec §4.4). The estimator itself is
// an external collaborator (spec Non-goals, "retransmission queue/RTT
// estimator"); ROD only carries the fields an estimator would read and
// write, so the API orchestrator has somewhere stable to expose them.
const (
	DefaultRTO = 3000 * time.Millisecond
)

// ReliableOrderedDelivery owns the send/receive sequence-space state: iss,
// irs, snd_nxt, snd_lbb, rcv_nxt, lastack, plus the passive bookkeeping a
// retransmission-queue/RTT-estimator collaborator would consult (rto,
// nrtx, sa, sv, rtime), a duplicate-ACK counter, and a timestamp echo
// placeholder. Only ROD's own handlers write these fields (invariant 1).
type ReliableOrderedDelivery struct {
	iss Value
	irs Value

	sndNxt Value // next sequence number this side will send
	sndLBB Value // last byte buffered for send (tracks ahead of sndNxt once a data-path collaborator exists)
	rcvNxt Value // next sequence number expected from the peer
	lastAck Value // highest ack number the peer has acknowledged to us (snd.una)

	// Retransmission placeholders: carried so an external RTT
	// estimator/retransmission queue has a stable home for them, never
	// computed or consulted by ROD's own handlers.
	rto    time.Duration
	nrtx   int
	sa, sv int64
	rtime  int64

	dupAcks  int
	tsRecent uint32 // timestamp echo placeholder, RFC 7323 is out of scope
}

// NewReliableOrderedDelivery returns a ROD with retransmission defaults and
// all sequence-space fields zeroed; onListenOrConnect and the handshake
// handlers set iss/irs/rcvNxt/sndNxt.
func NewReliableOrderedDelivery() ReliableOrderedDelivery {
	return ReliableOrderedDelivery{rto: DefaultRTO}
}

func (rod *ReliableOrderedDelivery) ISS() Value     { return rod.iss }
func (rod *ReliableOrderedDelivery) IRS() Value     { return rod.irs }
func (rod *ReliableOrderedDelivery) SndNxt() Value  { return rod.sndNxt }
func (rod *ReliableOrderedDelivery) SndLBB() Value  { return rod.sndLBB }
func (rod *ReliableOrderedDelivery) RcvNxt() Value  { return rod.rcvNxt }
func (rod *ReliableOrderedDelivery) LastAck() Value { return rod.lastAck }
func (rod *ReliableOrderedDelivery) DupAcks() int    { return rod.dupAcks }
func (rod *ReliableOrderedDelivery) RTO() time.Duration { return rod.rto }

// onListenOrConnect seeds iss (from the injected [ISSSource]) and resets
// the rest of the sequence space, ahead of a SYN being sent or a Listen
// PCB becoming ready to accept one.
func (rod *ReliableOrderedDelivery) onListenOrConnect(iss Value) {
	rod.iss = iss
	rod.sndNxt = iss
	rod.sndLBB = iss
	rod.irs = 0
	rod.rcvNxt = 0
	rod.lastAck = iss
	rod.nrtx = 0
	rod.dupAcks = 0
}

// onSynInListen records the peer's irs and rcv_nxt from an inbound SYN,
// and advances snd_nxt past the SYN|ACK this side is about to send.
func (rod *ReliableOrderedDelivery) onSynInListen(seg Segment) {
	rod.irs = seg.SEQ
	rod.rcvNxt = Add(seg.SEQ, 1)
	rod.sndNxt = Add(rod.iss, 1)
	rod.sndLBB = rod.sndNxt
}

// onSynAckInSynSent records the peer's irs/rcv_nxt from the SYN|ACK and
// advances snd_nxt/lastack past our own SYN that it acknowledged.
func (rod *ReliableOrderedDelivery) onSynAckInSynSent(seg Segment) {
	rod.irs = seg.SEQ
	rod.rcvNxt = Add(seg.SEQ, 1)
	rod.sndNxt = Add(rod.iss, 1)
	rod.sndLBB = rod.sndNxt
	rod.lastAck = seg.ACK
	rod.dupAcks = 0
}

// onAckInSynRcvd records the ACK of our SYN|ACK.
func (rod *ReliableOrderedDelivery) onAckInSynRcvd(seg Segment) {
	rod.lastAck = seg.ACK
	rod.dupAcks = 0
}

// onFin advances rcv_nxt past a FIN's implicit one byte of sequence space.
// Shared by every rcvXxxFin handler named in spec §4.3's table.
func (rod *ReliableOrderedDelivery) onFin(seg Segment) {
	rod.rcvNxt = Add(seg.SEQ, 1)
}

// onCloseEmitFin advances snd_nxt/snd_lbb past the one sequence number a
// locally-emitted FIN consumes, at the moment the API orchestrator's
// Close() decides to send one. Unlike an ACK it is not conditioned on
// anything from the peer: snd_nxt always advances the instant a segment
// is sent, only lastack waits for the peer's acknowledgment.
func (rod *ReliableOrderedDelivery) onCloseEmitFin() {
	rod.sndNxt = Add(rod.sndNxt, 1)
	rod.sndLBB = rod.sndNxt
}

// onAckAdvanceSnd records a teardown ACK (FinWait1/Closing/LastAck) that
// acknowledges our own FIN.
func (rod *ReliableOrderedDelivery) onAckAdvanceSnd(seg Segment) {
	rod.lastAck = seg.ACK
	rod.sndNxt = seg.ACK
	rod.sndLBB = seg.ACK
	rod.dupAcks = 0
}

// onAckEstablished updates lastack for an in-sequence ACK received
// while Established, and maintains the duplicate-ACK counter (RFC 5681
// §3.2's fast-retransmit signal, consumed by the CC data-path collaborator
// once it is built out beyond the stub in this module).
func (rod *ReliableOrderedDelivery) onAckEstablished(seg Segment) (advanced bool) {
	if seg.ACK == rod.lastAck {
		rod.dupAcks++
		return false
	}
	rod.lastAck = seg.ACK
	rod.dupAcks = 0
	return true
}

// onRst clears the sequence space back to zero; CM decides whether the
// connection returns to Listen or Closed.
func (rod *ReliableOrderedDelivery) onRst() {
	rod.iss, rod.irs = 0, 0
	rod.sndNxt, rod.sndLBB, rod.rcvNxt, rod.lastAck = 0, 0, 0, 0
	rod.dupAcks = 0
	rod.nrtx = 0
}

// SeqValidation is the outcome of [ReliableOrderedDelivery.ValidateSequenceNumber].
type SeqValidation uint8

const (
	SeqValid SeqValidation = iota
	SeqInvalid
)

// ValidateSequenceNumber implements RFC 793 §3.3/RFC 9293 §3.4's
// segment-acceptability test, restricted to the single in-order segment
// this module accepts (spec Non-goal: out-of-order reassembly). rcvWnd is
// FC-owned and passed in read-only.
func (rod *ReliableOrderedDelivery) ValidateSequenceNumber(seg Segment, rcvWnd Size) SeqValidation {
	if rcvWnd == 0 {
		if seg.DATALEN == 0 && seg.SEQ == rod.rcvNxt {
			return SeqValid
		}
		return SeqInvalid
	}
	if !seg.SEQ.InWindow(rod.rcvNxt, rcvWnd) {
		return SeqInvalid
	}
	if seg.DATALEN > 0 {
		last := seg.Last()
		if !last.InWindow(rod.rcvNxt, rcvWnd) {
			return SeqInvalid
		}
	}
	if seg.SEQ != rod.rcvNxt {
		// in-window but not the next expected octet: this module has no
		// reassembly buffer, so anything but the exact next byte is
		// rejected rather than queued (spec Non-goal).
		return SeqInvalid
	}
	return SeqValid
}

// AckValidation is the outcome of [ReliableOrderedDelivery.ValidateAck].
type AckValidation uint8

const (
	AckValid AckValidation = iota
	AckDuplicate
	AckFuture
	AckOld
)

// ValidateAck classifies an inbound ACK against [lastAck, sndNxt] (RFC
// 9293 §3.10.7.4).
func (rod *ReliableOrderedDelivery) ValidateAck(seg Segment) AckValidation {
	switch {
	case seg.ACK == rod.lastAck:
		return AckDuplicate
	case rod.sndNxt.LessThan(seg.ACK):
		return AckFuture
	case seg.ACK.LessThan(rod.lastAck):
		return AckOld
	default:
		return AckValid
	}
}

// RstValidation is the outcome of [ReliableOrderedDelivery.ValidateRst].
type RstValidation uint8

const (
	RstValid RstValidation = iota
	RstChallenge
)

// ValidateRst implements the RFC 5961 §3.2 in-window RST check: any
// in-window sequence number aborts the connection outright, and an
// out-of-window RST draws a challenge ACK instead (invariant 5) rather
// than changing state.
func (rod *ReliableOrderedDelivery) ValidateRst(seg Segment, rcvWnd Size) RstValidation {
	if seg.SEQ.InWindow(rod.rcvNxt, maxSize(rcvWnd, 1)) {
		return RstValid
	}
	return RstChallenge
}

func maxSize(a, b Size) Size {
	if a > b {
		return a
	}
	return b
}
