package tcpcore

// DefaultWindow is the receive window this module advertises absent any
// buffer-sizing collaborator telling it otherwise (spec Non-goal: buffer
// storage). 65535 is the largest window expressible without the window
// scale option (Non-goal: window scaling negotiation).
const DefaultWindow Size = 65535

// FlowControl owns the send/receive window bookkeeping: snd_wnd,
// snd_wnd_max, the window-update sequence/ack watermarks snd_wl1/snd_wl2
// (RFC 9293 §3.10.7.1), rcv_wnd, the announced receive window and its
// right edge, and the persist-timer retry counter (the persist timer
// itself is an external collaborator). Window scale factors are carried
// but never negotiated (spec Non-goal).
type FlowControl struct {
	sndWnd    Size
	sndWndMax Size
	sndWL1    Value
	sndWL2    Value

	rcvWnd          Size
	rcvAnnWnd       Size
	rcvAnnRightEdge Value

	sndScale uint8
	rcvScale uint8

	persistCount int
}

// NewFlowControl returns a FlowControl advertising [DefaultWindow] on the
// receive side; the send window is unknown until a SYN/SYN-ACK supplies
// the peer's advertisement.
func NewFlowControl() FlowControl {
	return FlowControl{rcvWnd: DefaultWindow, rcvAnnWnd: DefaultWindow}
}

func (fc *FlowControl) SndWnd() Size    { return fc.sndWnd }
func (fc *FlowControl) SndWndMax() Size { return fc.sndWndMax }
func (fc *FlowControl) RcvWnd() Size    { return fc.rcvWnd }
func (fc *FlowControl) RcvAnnWnd() Size { return fc.rcvAnnWnd }

// onListen resets the window state ahead of a Listen PCB's next handshake,
// advertising the module's [DefaultWindow].
func (fc *FlowControl) onListen() {
	fc.sndWnd, fc.sndWndMax = 0, 0
	fc.sndWL1, fc.sndWL2 = 0, 0
	fc.rcvWnd, fc.rcvAnnWnd = DefaultWindow, DefaultWindow
	fc.persistCount = 0
}

// ConnectRcvWnd is the receive window an active open advertises on its
// initial SYN (spec's connect() contract: rcv_wnd=4096, distinct from the
// larger [DefaultWindow] a Listen PCB advertises).
const ConnectRcvWnd Size = 4096

// onConnect resets the window state ahead of an active open, advertising
// [ConnectRcvWnd].
func (fc *FlowControl) onConnect() {
	fc.sndWnd, fc.sndWndMax = 0, 0
	fc.sndWL1, fc.sndWL2 = 0, 0
	fc.rcvWnd, fc.rcvAnnWnd = ConnectRcvWnd, ConnectRcvWnd
	fc.persistCount = 0
}

// onSynInListen records the peer's advertised window from an inbound SYN
// and seeds the window-update watermarks so the eventual ACK of our
// SYN|ACK is accepted as a legitimate update.
func (fc *FlowControl) onSynInListen(seg Segment, irs Value) {
	fc.sndWnd = seg.WND
	fc.sndWndMax = seg.WND
	fc.sndWL1 = irs
	fc.sndWL2 = 0
}

// onSynAckInSynSent mirrors onSynInListen for the active-open side.
func (fc *FlowControl) onSynAckInSynSent(seg Segment, irs Value) {
	fc.sndWnd = seg.WND
	fc.sndWndMax = seg.WND
	fc.sndWL1 = irs
	fc.sndWL2 = seg.ACK
}

func (fc *FlowControl) onAckInSynRcvd(seg Segment, irs Value) {
	fc.sndWnd = seg.WND
	if seg.WND > fc.sndWndMax {
		fc.sndWndMax = seg.WND
	}
	fc.sndWL1 = irs
	fc.sndWL2 = seg.ACK
}

// WindowUpdateValidation is the outcome of [FlowControl.ValidateWindowUpdate].
type WindowUpdateValidation uint8

const (
	// WindowUpdateAccept means the segment's seq/ack are not older than
	// the last recorded update and snd_wnd/snd_wl1/snd_wl2 should advance.
	WindowUpdateAccept WindowUpdateValidation = iota
	// WindowUpdateStale means the segment is older than the last recorded
	// update; the advertised window must be ignored.
	WindowUpdateStale
)

// ValidateWindowUpdate implements RFC 9293 §3.10.7.1's update-acceptance
// test: SND.WL1 < SEG.SEQ, or SND.WL1 == SEG.SEQ and SND.WL2 <= SEG.ACK.
func (fc *FlowControl) ValidateWindowUpdate(seg Segment) WindowUpdateValidation {
	if fc.sndWL1.LessThan(seg.SEQ) || (fc.sndWL1 == seg.SEQ && fc.sndWL2.LessThanEq(seg.ACK)) {
		return WindowUpdateAccept
	}
	return WindowUpdateStale
}

// ApplyWindowUpdate records a segment already classified as
// [WindowUpdateAccept] by the dispatcher.
func (fc *FlowControl) ApplyWindowUpdate(seg Segment) {
	fc.sndWnd = seg.WND
	if seg.WND > fc.sndWndMax {
		fc.sndWndMax = seg.WND
	}
	fc.sndWL1 = seg.SEQ
	fc.sndWL2 = seg.ACK
}

// onRst clears the window state; CM decides the resulting lifecycle move.
func (fc *FlowControl) onRst() {
	fc.sndWnd, fc.sndWndMax = 0, 0
	fc.sndWL1, fc.sndWL2 = 0, 0
	fc.persistCount = 0
}
