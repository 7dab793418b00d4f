package tcpcore

import "net/netip"

// Default static connection parameters (spec §3).
const (
	DefaultMSS            uint16 = 536
	DefaultTTL            uint8  = 255
	DefaultPriority       uint8  = 64
	DefaultKeepIdleMS     int64  = 7_200_000
	DefaultKeepIntervalMS int64  = 75_000
	DefaultKeepCount      int    = 9
)

// FourTuple identifies a connection by local/remote address and port.
// Demultiplexing (§4, DX) is keyed entirely by this value; the core never
// owns a lookup table over it (spec Non-goals).
type FourTuple struct {
	LocalAddr  netip.Addr
	LocalPort  uint16
	RemoteAddr netip.Addr
	RemotePort uint16
}

// Matches reports whether seg arrived from the peer identified by
// remoteAddr/remotePort on this tuple's local port.
func (t FourTuple) Matches(localPort uint16, remoteAddr netip.Addr, remotePort uint16) bool {
	return t.LocalPort == localPort && t.RemotePort == remotePort && t.RemoteAddr == remoteAddr
}

// ConnectionManagement owns the lifecycle State, the 4-tuple, and the
// static per-connection parameters (MSS, TOS, TTL, priority, keep-alive
// limits, flags word). It is the only component permitted to advance
// State (invariant 1); every other component's handlers touch only their
// own fields.
type ConnectionManagement struct {
	tuple FourTuple
	state State

	mss      uint16
	tos      uint8
	ttl      uint8
	priority uint8
	flags    uint16
	netif    int

	keepIdleMS     int64
	keepIntervalMS int64
	keepCount      int
}

// NewConnectionManagement returns a ConnectionManagement in StateClosed
// with every static parameter at its spec-mandated default.
func NewConnectionManagement() ConnectionManagement {
	return ConnectionManagement{
		mss:            DefaultMSS,
		ttl:            DefaultTTL,
		priority:       DefaultPriority,
		keepIdleMS:     DefaultKeepIdleMS,
		keepIntervalMS: DefaultKeepIntervalMS,
		keepCount:      DefaultKeepCount,
	}
}

// State returns the current lifecycle state.
func (cm *ConnectionManagement) State() State { return cm.state }

// Tuple returns the current 4-tuple. The remote half is the zero value
// until a passive-open SYN materializes it or an active Connect sets it.
func (cm *ConnectionManagement) Tuple() FourTuple { return cm.tuple }

// MSS returns the negotiated/default maximum segment size.
func (cm *ConnectionManagement) MSS() uint16 { return cm.mss }

// SetMSS overrides the default MSS. Only meaningful before the handshake
// completes; callers should not change it once Established.
func (cm *ConnectionManagement) SetMSS(mss uint16) { cm.mss = mss }

func (cm *ConnectionManagement) TTL() uint8        { return cm.ttl }
func (cm *ConnectionManagement) SetTTL(ttl uint8)  { cm.ttl = ttl }
func (cm *ConnectionManagement) TOS() uint8        { return cm.tos }
func (cm *ConnectionManagement) SetTOS(tos uint8)  { cm.tos = tos }
func (cm *ConnectionManagement) Priority() uint8   { return cm.priority }
func (cm *ConnectionManagement) Flags() uint16     { return cm.flags }
func (cm *ConnectionManagement) SetFlags(f uint16) { cm.flags = f }
func (cm *ConnectionManagement) NetifIndex() int   { return cm.netif }

// KeepAlive returns the configured keep-alive idle time, probe interval
// (both milliseconds) and probe count. These are exposed for the external
// timer collaborator (§5); the core never arms a timer itself.
func (cm *ConnectionManagement) KeepAlive() (idleMS, intervalMS int64, count int) {
	return cm.keepIdleMS, cm.keepIntervalMS, cm.keepCount
}

// SetKeepAlive overrides the keep-alive configuration.
func (cm *ConnectionManagement) SetKeepAlive(idleMS, intervalMS int64, count int) {
	cm.keepIdleMS, cm.keepIntervalMS, cm.keepCount = idleMS, intervalMS, count
}

// OnBind sets the local half of the tuple. Permitted only from Closed.
// Port 0 is rejected: ephemeral port allocation is a collaborator concern.
func (cm *ConnectionManagement) OnBind(localAddr netip.Addr, localPort uint16) error {
	if cm.state != StateClosed {
		return ErrWrongState
	}
	if localPort == 0 {
		return errPortZero
	}
	cm.tuple.LocalAddr = localAddr
	cm.tuple.LocalPort = localPort
	return nil
}

// OnListen moves Closed -> Listen. Requires a previously bound local port.
func (cm *ConnectionManagement) OnListen() error {
	if cm.state != StateClosed {
		return ErrWrongState
	}
	if cm.tuple.LocalPort == 0 {
		return errNotBound
	}
	cm.state = StateListen
	return nil
}

// OnConnect moves Closed -> SynSent and stores the remote half of the
// tuple. It does not itself emit a SYN; that is the TX collaborator's job
// once the API orchestrator reports the ISS/window it chose.
func (cm *ConnectionManagement) OnConnect(remoteAddr netip.Addr, remotePort uint16) error {
	if cm.state != StateClosed {
		return ErrWrongState
	}
	if remotePort == 0 {
		return errPortZero
	}
	cm.tuple.RemoteAddr = remoteAddr
	cm.tuple.RemotePort = remotePort
	cm.state = StateSynSent
	return nil
}

// materializeRemoteFromListen sets the remote half of the tuple from an
// inbound SYN received in Listen. Invariant 5 requires this happen before
// any ROD/FC/CC write for the segment that triggers it.
func (cm *ConnectionManagement) materializeRemoteFromListen(remoteAddr netip.Addr, remotePort uint16) {
	cm.tuple.RemoteAddr = remoteAddr
	cm.tuple.RemotePort = remotePort
}

// OnClose implements the state-dependent CLOSE call of RFC 9293 §3.10.4.
// It returns whether the embedding must now emit a FIN.
func (cm *ConnectionManagement) OnClose() (mustSendFIN bool, err error) {
	switch cm.state {
	case StateEstablished:
		cm.state = StateFinWait1
		return true, nil
	case StateCloseWait:
		cm.state = StateLastAck
		return true, nil
	case StateListen, StateSynSent, StateSynRcvd:
		cm.state = StateClosed
		return false, nil
	case StateClosed:
		return false, errConnNotExist
	default:
		// FinWait1/2, Closing, TimeWait, LastAck: already closing.
		return false, errAlreadyClosing
	}
}

// OnAbort unconditionally moves to Closed and reports whether an RST must
// be emitted: true unless the prior state was Closed or Listen.
func (cm *ConnectionManagement) OnAbort() (mustSendRST bool) {
	mustSendRST = cm.state != StateClosed && cm.state != StateListen
	cm.state = StateClosed
	cm.tuple.RemoteAddr = netip.Addr{}
	cm.tuple.RemotePort = 0
	return mustSendRST
}

// onRst resets the lifecycle marker to Closed, or to Listen if
// rstReturnsToListen policy requests it and the connection is in SynRcvd
// with a bound local port, the handshake half of a passive open (spec §9
// Open Question 4). A SynRcvd reached by simultaneous open from a bound
// port is treated the same way.
func (cm *ConnectionManagement) onRst(rstReturnsToListen bool) {
	wasPassive := cm.tuple.LocalPort != 0 && cm.state == StateSynRcvd
	if rstReturnsToListen && wasPassive {
		cm.state = StateListen
		cm.tuple.RemoteAddr = netip.Addr{}
		cm.tuple.RemotePort = 0
		return
	}
	cm.state = StateClosed
	cm.tuple.RemoteAddr = netip.Addr{}
	cm.tuple.RemotePort = 0
}

// Lifecycle-move-only handlers. Each performs the single RFC 793 state
// transition named by the dispatcher table (§4.3); sequence/window/
// congestion bookkeeping already happened in ROD/FC/CC by the time these
// run, per the fixed write order.

func (cm *ConnectionManagement) onSynInListen() { cm.state = StateSynRcvd }

func (cm *ConnectionManagement) onSynAckInSynSent() { cm.state = StateEstablished }

// onSynInSynSent materializes the simultaneous-open transition
// SynSent -> SynRcvd. Only invoked when Policy.SimultaneousOpenTransitions
// is enabled (spec §9 Open Question 3); the default policy leaves SynSent
// unchanged on a bare SYN.
func (cm *ConnectionManagement) onSynInSynSent() { cm.state = StateSynRcvd }

func (cm *ConnectionManagement) onAckInSynRcvd() { cm.state = StateEstablished }

func (cm *ConnectionManagement) onFinInEstablished() { cm.state = StateCloseWait }

// onAckInFinWait1 resolves the three FinWait1 outcomes from RFC 9293
// §3.10.7.4: a simultaneous FIN|ACK moves straight to TimeWait, a bare FIN
// moves to Closing, and an ACK of our FIN moves to FinWait2.
func (cm *ConnectionManagement) onAckInFinWait1(finAlsoSet, acksOurFin bool) {
	switch {
	case finAlsoSet && acksOurFin:
		cm.state = StateTimeWait
	case finAlsoSet:
		cm.state = StateClosing
	default:
		cm.state = StateFinWait2
	}
}

func (cm *ConnectionManagement) onFinInFinWait2() { cm.state = StateTimeWait }

func (cm *ConnectionManagement) onAckInClosing() { cm.state = StateTimeWait }

func (cm *ConnectionManagement) onAckInLastAck() { cm.state = StateClosed }

// forceClose is the 2MSL timer collaborator's hook (spec §9 OQ2): the only
// caller permitted to move TimeWait -> Closed without a validated segment.
func (cm *ConnectionManagement) forceClose() {
	cm.state = StateClosed
	cm.tuple.RemoteAddr = netip.Addr{}
	cm.tuple.RemotePort = 0
}
