package tcpcore

import (
	"log/slog"
	"net/netip"

	"github.com/rs/xid"
)

// Policy resolves the spec's Open Questions that a single hard-coded
// behavior cannot answer for every embedding.
type Policy struct {
	// SimultaneousOpenTransitions enables RFC 9293 §3.10.7.3's
	// SynSent -> SynRcvd move on a bare inbound SYN (simultaneous open,
	// spec §9 OQ3). Default false: a bare SYN in SynSent is accepted and
	// leaves the state unchanged.
	SimultaneousOpenTransitions bool
	// RSTReturnsToListen, when true, moves a bound connection in SynRcvd
	// that receives a valid RST back to Listen instead of Closed (spec §9 OQ4),
	// matching BSD-derived stacks that keep accepting on the same PCB.
	// Default false: a valid RST always ends at Closed.
	RSTReturnsToListen bool
}

// ConnectionConfig supplies a ConnectionState's collaborators. Every field
// has a usable default if left zero. A nil ISSSource defaults to a
// [CounterISSSource], which is for tests; a production deployment should
// supply [NewCryptoISSSource].
type ConnectionConfig struct {
	ISSSource ISSSource
	Metrics   MetricsRecorder
	Log       *slog.Logger
	Policy    Policy
}

// ConnectionState is the API orchestrator (spec §1, §9): it owns one
// instance each of CM, ROD, FC and CC, and exposes the narrow operation
// set — bind, listen, connect, close, abort, feed_segment — that is this
// module's entire external surface. It holds no mutex: like the teacher
// control block it is driven synchronously and concurrency safety is the
// embedding's responsibility.
type ConnectionState struct {
	cm  ConnectionManagement
	rod ReliableOrderedDelivery
	fc  FlowControl
	cc  CongestionControl

	Policy Policy

	iss ISSSource
	rec MetricsRecorder
	log *slog.Logger

	traceID xid.ID

	// pendingRemote is set by feedSegment immediately before a Listen-state
	// dispatch and consumed by dispatchListen to materialize the 4-tuple
	// (invariant 5). It carries no meaning outside a single feed_segment
	// call.
	pendingRemote struct {
		Addr netip.Addr
		Port uint16
	}
}

// NewConnectionState returns a ConnectionState in StateClosed, ready for
// Bind/Listen or Connect.
func NewConnectionState(cfg ConnectionConfig) *ConnectionState {
	cs := &ConnectionState{
		cm:      NewConnectionManagement(),
		rod:     NewReliableOrderedDelivery(),
		fc:      NewFlowControl(),
		cc:      NewCongestionControl(),
		Policy:  cfg.Policy,
		iss:     cfg.ISSSource,
		rec:     cfg.Metrics,
		log:     cfg.Log,
		traceID: newTraceID(),
	}
	if cs.iss == nil {
		cs.iss = NewCounterISSSource(1)
	}
	return cs
}

func (cs *ConnectionState) issSource() ISSSource {
	return cs.iss
}

func (cs *ConnectionState) metrics() MetricsRecorder {
	if cs.rec == nil {
		return noopMetrics{}
	}
	return cs.rec
}

// State returns the current lifecycle state (invariant 1: the sole
// authoritative marker).
func (cs *ConnectionState) State() State { return cs.cm.State() }

// Tuple returns the connection's current 4-tuple.
func (cs *ConnectionState) Tuple() FourTuple { return cs.cm.Tuple() }

// TraceID returns the xid-based correlation ID assigned at construction,
// for embeddings that want to tie their own logs to this connection's.
func (cs *ConnectionState) TraceID() xid.ID { return cs.traceID }

// CM / ROD / FC / CC expose the owning component read-only, for tests and
// for an embedding that wants to report e.g. cwnd without this module
// growing a getter for every field ever added to a component.
func (cs *ConnectionState) CM() *ConnectionManagement     { return &cs.cm }
func (cs *ConnectionState) ROD() *ReliableOrderedDelivery { return &cs.rod }
func (cs *ConnectionState) FC() *FlowControl              { return &cs.fc }
func (cs *ConnectionState) CC() *CongestionControl        { return &cs.cc }

// Bind assigns the local half of the 4-tuple. Must be called from Closed.
func (cs *ConnectionState) Bind(localAddr netip.Addr, localPort uint16) error {
	return cs.cm.OnBind(localAddr, localPort)
}

// Listen moves Closed -> Listen. Requires a prior Bind.
func (cs *ConnectionState) Listen() error {
	return cs.cm.OnListen()
}

// Connect performs an active open: moves Closed -> SynSent, seeds ROD/FC/
// CC for a fresh handshake, and returns the SYN segment the embedding must
// transmit.
func (cs *ConnectionState) Connect(remoteAddr netip.Addr, remotePort uint16) (Segment, error) {
	if err := cs.cm.OnConnect(remoteAddr, remotePort); err != nil {
		return Segment{}, err
	}
	iss := cs.issSource().NextISS(cs.cm.Tuple())
	cs.rod.onListenOrConnect(iss)
	cs.fc.onConnect()
	cs.cc.onConnect(cs.cm.MSS())
	return ClientSynSegment(iss, cs.fc.RcvWnd()), nil
}

// Close implements the state-dependent CLOSE call (RFC 9293 §3.10.4) and
// reports whether the embedding must now transmit a FIN.
func (cs *ConnectionState) Close() (mustSendFIN bool, err error) {
	mustSendFIN, err = cs.cm.OnClose()
	if err == nil && mustSendFIN {
		cs.rod.onCloseEmitFin()
	}
	return mustSendFIN, err
}

// Abort unconditionally moves to Closed and reports whether an RST must be
// transmitted.
func (cs *ConnectionState) Abort() (mustSendRST bool) {
	mustSendRST = cs.cm.OnAbort()
	cs.rod.onRst()
	cs.fc.onRst()
	cs.cc.onRst()
	return mustSendRST
}

// ForceClose is the 2MSL timer collaborator's hook (spec §9 OQ2): the only
// caller allowed to move TimeWait -> Closed without a validated segment.
func (cs *ConnectionState) ForceClose() {
	if cs.cm.State() != StateTimeWait {
		return
	}
	from := cs.cm.State()
	cs.cm.forceClose()
	cs.rod.onRst()
	cs.fc.onRst()
	cs.cc.onRst()
	cs.observeTransition(from)
}

// FeedSegment is the Input Dispatcher's sole entry point: remoteAddr/
// remotePort identify the sender (needed only while Listen has no 4-tuple
// of its own yet), seg is the decoded sequence-space view of the inbound
// segment.
func (cs *ConnectionState) FeedSegment(seg Segment, remoteAddr netip.Addr, remotePort uint16) Action {
	cs.pendingRemote.Addr = remoteAddr
	cs.pendingRemote.Port = remotePort
	cs.traceSeg("feed_segment", seg)
	return cs.dispatch(seg)
}
