package tcpcore

// InitialSsthresh is the conventional "infinite" starting slow-start
// threshold (RFC 5681 §3.1): congestion avoidance does not begin until a
// real loss event lowers it.
const InitialSsthresh uint32 = 0xFFFF

// CongestionControl owns cwnd and ssthresh. Only the initial-window
// computation of RFC 5681 §3.1 is implemented; the loss-driven data path
// (on_ack_in_established, on_dupack_in_established, on_timeout_in_established)
// is an explicit Non-goal (spec §4.5/§7) and is wired here only as a
// programming-error stub that halts if ever invoked, so a future
// congestion-avoidance collaborator has a named seam to replace.
type CongestionControl struct {
	cwnd     uint32
	ssthresh uint32
}

// NewCongestionControl returns a CongestionControl with ssthresh at its
// RFC 5681 default and cwnd at zero until a handshake computes it.
func NewCongestionControl() CongestionControl {
	return CongestionControl{ssthresh: InitialSsthresh}
}

func (cc *CongestionControl) Cwnd() uint32     { return cc.cwnd }
func (cc *CongestionControl) Ssthresh() uint32 { return cc.ssthresh }

// InitialWindow computes RFC 5681 §3.1's IW: min(4*MSS, max(2*MSS, 4380)).
func InitialWindow(mss uint16) uint32 {
	m := uint32(mss)
	innerMax := 2 * m
	if innerMax < 4380 {
		innerMax = 4380
	}
	fourMSS := 4 * m
	if fourMSS < innerMax {
		return fourMSS
	}
	return innerMax
}

// onHandshakeComplete sets cwnd to the RFC 5681 initial window: on the SYN
// received in Listen for a passive open, or on the SYN|ACK in SynSent for
// an active open.
func (cc *CongestionControl) onHandshakeComplete(mss uint16) {
	cc.cwnd = InitialWindow(mss)
	cc.ssthresh = InitialSsthresh
}

// onConnect sets cwnd to exactly one MSS, per the connect() API contract:
// the RFC 5681 initial window only applies once the handshake completes
// and onHandshakeComplete overwrites this value.
func (cc *CongestionControl) onConnect(mss uint16) {
	cc.cwnd = uint32(mss)
	cc.ssthresh = InitialSsthresh
}

// onRst resets cwnd; a future connection reuse recomputes it fresh at the
// next handshake.
func (cc *CongestionControl) onRst() {
	cc.cwnd = 0
	cc.ssthresh = InitialSsthresh
}

// onAckInEstablished is an explicit Non-goal stub: congestion response to
// data-path ACKs is out of scope for this module (spec §4.5). It exists so
// a caller that mistakenly wires the data path in finds the seam
// immediately rather than silently getting no congestion control.
func (cc *CongestionControl) onAckInEstablished(Segment) {
	panic("tcpcore: congestion-controlled data path is not implemented by this module")
}

func (cc *CongestionControl) onDupAckInEstablished(Segment) {
	panic("tcpcore: congestion-controlled data path is not implemented by this module")
}

func (cc *CongestionControl) onTimeoutInEstablished() {
	panic("tcpcore: congestion-controlled data path is not implemented by this module")
}
