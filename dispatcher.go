package tcpcore

// dispatch implements the Input Dispatcher algorithm: the RFC 5961 RST
// check first, then RFC 793 §3.4 sequence-window validation, then fan-out
// to the per-(state,flags) handler named by the state-switch table below,
// where the RFC 5961 ACK classification happens. It returns the single Action the embedding must perform,
// and never performs that action itself (spec §9 design note).
//
// Component writes happen in a fixed order — ROD, then FC, then CC, then
// CM — so that if an earlier component's handler were ever to reject a
// segment (none do today; rejection happens in the validators below,
// strictly before any handler runs), no later component's write would
// have been observed. This is the atomicity guarantee: either every
// handler for a segment runs, or none does.
func (cs *ConnectionState) dispatch(seg Segment) Action {
	state := cs.cm.State()

	if seg.Flags.HasAny(FlagRST) {
		return cs.dispatchRST(seg, state)
	}

	if state == StateClosed {
		return cs.reportAction(ActionSendRst)
	}

	if state == StateListen {
		return cs.dispatchListen(seg)
	}

	if state == StateSynSent {
		return cs.dispatchSynSent(seg)
	}

	// Every remaining state is synchronized: RFC 9293 §3.10.7.4 requires
	// the sequence-window check unconditionally before anything else.
	rcvWnd := cs.fc.RcvWnd()
	if cs.rod.ValidateSequenceNumber(seg, rcvWnd) != SeqValid {
		cs.reportDrop("seq-not-in-window")
		return cs.reportAction(ActionDrop)
	}

	if seg.Flags.HasAny(FlagSYN) {
		// An in-window SYN while synchronized is itself a RFC 5961 §4
		// attack signal: challenge rather than honor it.
		cs.reportDrop("syn-while-synchronized")
		return cs.reportAction(ActionSendChallengeAck)
	}

	if !seg.Flags.HasAny(FlagACK) {
		cs.reportDrop("missing-ack-while-synchronized")
		return cs.reportAction(ActionDrop)
	}

	switch state {
	case StateSynRcvd:
		return cs.dispatchSynRcvd(seg)
	case StateEstablished:
		return cs.dispatchEstablished(seg)
	case StateFinWait1:
		return cs.dispatchFinWait1(seg)
	case StateFinWait2:
		return cs.dispatchFinWait2(seg)
	case StateCloseWait:
		return cs.dispatchEstablished(seg) // ack/window handling identical; FIN already delivered
	case StateClosing:
		return cs.dispatchClosing(seg)
	case StateTimeWait:
		return cs.dispatchTimeWait(seg)
	case StateLastAck:
		return cs.dispatchLastAck(seg)
	default:
		cs.reportDrop("unhandled-state")
		return cs.reportAction(ActionDrop)
	}
}

// dispatchRST implements RFC 5961 §3.2: any in-window RST aborts the
// connection outright, and an out-of-window RST draws a challenge ACK
// instead of being honored (invariant 5). Listen and Closed have no
// meaningful rcv.nxt to validate against, so any RST addressed to them is
// simply dropped (there is no state to protect).
func (cs *ConnectionState) dispatchRST(seg Segment, state State) Action {
	if state == StateClosed || state == StateListen {
		cs.reportDrop("rst-to-closed-or-listen")
		return cs.reportAction(ActionDrop)
	}
	switch cs.rod.ValidateRst(seg, cs.fc.RcvWnd()) {
	case RstValid:
		cs.rod.onRst()
		cs.fc.onRst()
		cs.cc.onRst()
		cs.cm.onRst(cs.Policy.RSTReturnsToListen)
		return cs.reportAction(ActionAbort)
	default: // RstChallenge
		cs.reportDrop("rst-out-of-window")
		return cs.reportAction(ActionSendChallengeAck)
	}
}

// dispatchListen handles the sole segment type Listen responds to: an
// initial SYN (spec §4.3's rcv_syn_in_listen row).
func (cs *ConnectionState) dispatchListen(seg Segment) Action {
	if !seg.isFirstSYN() {
		cs.reportDrop("non-syn-to-listen")
		return cs.reportAction(ActionDrop)
	}
	remoteAddr, remotePort := cs.pendingRemote.Addr, cs.pendingRemote.Port
	cs.cm.materializeRemoteFromListen(remoteAddr, remotePort)

	iss := cs.issSource().NextISS(cs.cm.Tuple())
	cs.rod.onListenOrConnect(iss)
	cs.rod.onSynInListen(seg)
	cs.fc.onListen()
	cs.fc.onSynInListen(seg, cs.rod.IRS())
	cs.cc.onHandshakeComplete(cs.cm.MSS())
	from := cs.cm.State()
	cs.cm.onSynInListen()
	cs.observeTransition(from)
	return cs.reportAction(ActionSendSynAck)
}

// dispatchSynSent handles the SynSent row: SYN|ACK completes an active
// open, a simultaneous SYN alone is handled per Policy (spec §9 OQ3), and
// anything else is dropped.
func (cs *ConnectionState) dispatchSynSent(seg Segment) Action {
	hasSyn := seg.Flags.HasAny(FlagSYN)
	hasAck := seg.Flags.HasAny(FlagACK)

	if hasSyn && hasAck {
		if seg.ACK != Add(cs.rod.ISS(), 1) {
			cs.reportDrop("synsent-bad-ack")
			return cs.reportAction(ActionSendRst)
		}
		cs.rod.onSynAckInSynSent(seg)
		cs.fc.onSynAckInSynSent(seg, cs.rod.IRS())
		cs.cc.onHandshakeComplete(cs.cm.MSS())
		from := cs.cm.State()
		cs.cm.onSynAckInSynSent()
		cs.observeTransition(from)
		return cs.reportAction(ActionSendAck)
	}

	if hasSyn && !hasAck {
		if !cs.Policy.SimultaneousOpenTransitions {
			return cs.reportAction(ActionAccept)
		}
		cs.rod.onSynInListen(seg)
		cs.fc.onSynInListen(seg, cs.rod.IRS())
		from := cs.cm.State()
		cs.cm.onSynInSynSent()
		cs.observeTransition(from)
		return cs.reportAction(ActionSendSynAck)
	}

	cs.reportDrop("synsent-unexpected-segment")
	return cs.reportAction(ActionDrop)
}

// dispatchSynRcvd completes a passive-open handshake on the expected ACK.
func (cs *ConnectionState) dispatchSynRcvd(seg Segment) Action {
	switch cs.rod.ValidateAck(seg) {
	case AckValid:
		cs.rod.onAckInSynRcvd(seg)
		cs.fc.onAckInSynRcvd(seg, cs.rod.IRS())
		from := cs.cm.State()
		cs.cm.onAckInSynRcvd()
		cs.observeTransition(from)
		return cs.reportAction(ActionAccept)
	case AckDuplicate:
		cs.reportDrop("synrcvd-duplicate-ack")
		return cs.reportAction(ActionDrop)
	default:
		cs.reportDrop("synrcvd-invalid-ack")
		return cs.reportAction(ActionSendRst)
	}
}

// dispatchEstablished processes an in-sequence ACK/FIN while Established
// (and, by reuse, CloseWait): window updates, the established data-path
// ACK accounting in ROD, and the CloseWait transition on a FIN.
func (cs *ConnectionState) dispatchEstablished(seg Segment) Action {
	switch cs.rod.ValidateAck(seg) {
	case AckFuture:
		cs.reportDrop("established-future-ack")
		return cs.reportAction(ActionSendChallengeAck)
	case AckOld:
		return cs.reportAction(ActionDrop)
	default:
		if cs.fc.ValidateWindowUpdate(seg) == WindowUpdateAccept {
			cs.fc.ApplyWindowUpdate(seg)
		}
		cs.rod.onAckEstablished(seg)
	}

	if seg.Flags.HasAny(FlagFIN) {
		cs.rod.onFin(seg)
		from := cs.cm.State()
		cs.cm.onFinInEstablished()
		cs.observeTransition(from)
		return cs.reportAction(ActionSendAck)
	}
	return cs.reportAction(ActionAccept)
}

// dispatchFinWait1 resolves the three-way branch of RFC 9293 §3.10.7.4.
func (cs *ConnectionState) dispatchFinWait1(seg Segment) Action {
	ackOutcome := cs.rod.ValidateAck(seg)
	if ackOutcome == AckFuture {
		cs.reportDrop("finwait1-future-ack")
		return cs.reportAction(ActionSendChallengeAck)
	}
	acksOurFin := ackOutcome == AckValid && seg.ACK == cs.rod.SndNxt()
	finSet := seg.Flags.HasAny(FlagFIN)

	if ackOutcome == AckValid {
		cs.rod.onAckAdvanceSnd(seg)
	}
	if finSet {
		cs.rod.onFin(seg)
	}
	if !finSet && ackOutcome != AckValid {
		return cs.reportAction(ActionAccept)
	}
	from := cs.cm.State()
	cs.cm.onAckInFinWait1(finSet, acksOurFin)
	cs.observeTransition(from)
	if finSet {
		return cs.reportAction(ActionSendAck)
	}
	return cs.reportAction(ActionAccept)
}

// dispatchFinWait2 waits only for the peer's FIN.
func (cs *ConnectionState) dispatchFinWait2(seg Segment) Action {
	if !seg.Flags.HasAny(FlagFIN) {
		return cs.reportAction(ActionAccept)
	}
	cs.rod.onFin(seg)
	from := cs.cm.State()
	cs.cm.onFinInFinWait2()
	cs.observeTransition(from)
	return cs.reportAction(ActionSendAck)
}

// dispatchClosing waits for the ACK of our FIN.
func (cs *ConnectionState) dispatchClosing(seg Segment) Action {
	if cs.rod.ValidateAck(seg) != AckValid || seg.ACK != cs.rod.SndNxt() {
		cs.reportDrop("closing-not-our-fin-ack")
		return cs.reportAction(ActionDrop)
	}
	cs.rod.onAckAdvanceSnd(seg)
	from := cs.cm.State()
	cs.cm.onAckInClosing()
	cs.observeTransition(from)
	return cs.reportAction(ActionAccept)
}

// dispatchTimeWait answers a FIN that passed the sequence-window check with
// an ACK and drops every other segment; the 2MSL
// expiry to Closed is driven externally via [ConnectionState.ForceClose].
func (cs *ConnectionState) dispatchTimeWait(seg Segment) Action {
	if seg.Flags.HasAny(FlagFIN) {
		return cs.reportAction(ActionSendAck)
	}
	return cs.reportAction(ActionDrop)
}

// dispatchLastAck waits for the ACK of our FIN to complete the close.
func (cs *ConnectionState) dispatchLastAck(seg Segment) Action {
	if cs.rod.ValidateAck(seg) != AckValid || seg.ACK != cs.rod.SndNxt() {
		cs.reportDrop("lastack-not-our-fin-ack")
		return cs.reportAction(ActionDrop)
	}
	cs.rod.onAckAdvanceSnd(seg)
	from := cs.cm.State()
	cs.cm.onAckInLastAck()
	cs.observeTransition(from)
	return cs.reportAction(ActionAccept)
}

func (cs *ConnectionState) reportAction(a Action) Action {
	cs.metrics().OnAction(a)
	return a
}

func (cs *ConnectionState) reportDrop(reason string) {
	cs.metrics().OnSegmentDropped(reason)
}

func (cs *ConnectionState) observeTransition(from State) {
	to := cs.cm.State()
	cs.traceTransition(from, to)
	cs.metrics().OnTransition(from, to)
}
