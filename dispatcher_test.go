package tcpcore

import (
	"net/netip"
	"testing"
)

func newTestConnection(t *testing.T, seed uint32) *ConnectionState {
	t.Helper()
	return NewConnectionState(ConnectionConfig{ISSSource: NewCounterISSSource(seed)})
}

// S1 — Passive open.
func TestScenarioPassiveOpen(t *testing.T) {
	cs := newTestConnection(t, 7)
	if err := cs.Bind(netip.MustParseAddr("192.168.0.1"), 8080); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := cs.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	syn := Segment{SEQ: 1000, ACK: 0, Flags: FlagSYN, WND: 8192}
	action := cs.FeedSegment(syn, netip.MustParseAddr("192.168.0.2"), 12345)
	if action != ActionSendSynAck {
		t.Fatalf("Action = %v, want ActionSendSynAck", action)
	}
	if cs.State() != StateSynRcvd {
		t.Fatalf("State() = %s, want SYN-RECEIVED", cs.State())
	}
	if cs.ROD().IRS() != 1000 {
		t.Fatalf("IRS() = %d, want 1000", cs.ROD().IRS())
	}
	if cs.ROD().RcvNxt() != 1001 {
		t.Fatalf("RcvNxt() = %d, want 1001", cs.ROD().RcvNxt())
	}
	if cs.FC().SndWnd() != 8192 {
		t.Fatalf("SndWnd() = %d, want 8192", cs.FC().SndWnd())
	}
	if want := InitialWindow(DefaultMSS); cs.CC().Cwnd() != want {
		t.Fatalf("Cwnd() = %d, want %d (MSS=%d)", cs.CC().Cwnd(), want, DefaultMSS)
	}

	iss := cs.ROD().ISS()
	ack := Segment{SEQ: 1001, ACK: Add(iss, 1), Flags: FlagACK, WND: 8192}
	action = cs.FeedSegment(ack, netip.MustParseAddr("192.168.0.2"), 12345)
	if action != ActionAccept {
		t.Fatalf("Action = %v, want ActionAccept", action)
	}
	if cs.State() != StateEstablished {
		t.Fatalf("State() = %s, want ESTABLISHED", cs.State())
	}
	if cs.ROD().LastAck() != Add(iss, 1) {
		t.Fatalf("LastAck() = %d, want %d", cs.ROD().LastAck(), Add(iss, 1))
	}
}

// S2 — Active open.
func TestScenarioActiveOpen(t *testing.T) {
	cs := newTestConnection(t, 99)
	if err := cs.Bind(netip.MustParseAddr("192.168.0.3"), 12345); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	syn, err := cs.Connect(netip.MustParseAddr("192.168.0.2"), 80)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if cs.State() != StateSynSent {
		t.Fatalf("State() = %s, want SYN-SENT", cs.State())
	}
	if syn.SEQ == 0 {
		t.Fatal("expected a nonzero ISS")
	}
	if cs.FC().RcvWnd() != 4096 {
		t.Fatalf("RcvWnd() = %d, want 4096", cs.FC().RcvWnd())
	}
	if cs.CC().Cwnd() != uint32(DefaultMSS) {
		t.Fatalf("Cwnd() = %d, want %d", cs.CC().Cwnd(), DefaultMSS)
	}

	iss := cs.ROD().ISS()
	synAck := Segment{SEQ: 5000, ACK: Add(iss, 1), Flags: FlagSYN | FlagACK, WND: 8192}
	action := cs.FeedSegment(synAck, netip.MustParseAddr("192.168.0.2"), 80)
	if action != ActionSendAck {
		t.Fatalf("Action = %v, want ActionSendAck", action)
	}
	if cs.State() != StateEstablished {
		t.Fatalf("State() = %s, want ESTABLISHED", cs.State())
	}
	if cs.ROD().RcvNxt() != 5001 {
		t.Fatalf("RcvNxt() = %d, want 5001", cs.ROD().RcvNxt())
	}
	if cs.ROD().LastAck() != Add(iss, 1) {
		t.Fatalf("LastAck() = %d, want %d", cs.ROD().LastAck(), Add(iss, 1))
	}
}

// S3 — Graceful active close.
func TestScenarioGracefulActiveClose(t *testing.T) {
	cs := establishedFixture(t)
	N := cs.ROD().SndNxt()
	R := cs.ROD().RcvNxt()

	mustFin, err := cs.Close()
	if err != nil || !mustFin {
		t.Fatalf("Close() = (%v, %v), want (true, nil)", mustFin, err)
	}
	if cs.State() != StateFinWait1 {
		t.Fatalf("State() = %s, want FIN-WAIT-1", cs.State())
	}

	action := cs.FeedSegment(Segment{SEQ: R, ACK: Add(N, 1), Flags: FlagACK}, netip.Addr{}, 0)
	if action != ActionAccept {
		t.Fatalf("Action = %v, want ActionAccept", action)
	}
	if cs.State() != StateFinWait2 {
		t.Fatalf("State() = %s, want FIN-WAIT-2", cs.State())
	}

	action = cs.FeedSegment(Segment{SEQ: R, ACK: Add(N, 1), Flags: FlagFIN | FlagACK}, netip.Addr{}, 0)
	if action != ActionSendAck {
		t.Fatalf("Action = %v, want ActionSendAck", action)
	}
	if cs.State() != StateTimeWait {
		t.Fatalf("State() = %s, want TIME-WAIT", cs.State())
	}
}

// S4 — Simultaneous close.
func TestScenarioSimultaneousClose(t *testing.T) {
	cs := establishedFixture(t)
	N := cs.ROD().SndNxt()
	R := cs.ROD().RcvNxt()

	mustFin, err := cs.Close()
	if err != nil || !mustFin {
		t.Fatalf("Close() = (%v, %v), want (true, nil)", mustFin, err)
	}
	if cs.State() != StateFinWait1 {
		t.Fatalf("State() = %s, want FIN-WAIT-1", cs.State())
	}

	action := cs.FeedSegment(Segment{SEQ: R, ACK: N, Flags: FlagFIN | FlagACK}, netip.Addr{}, 0)
	if action != ActionSendAck {
		t.Fatalf("Action = %v, want ActionSendAck", action)
	}
	if cs.State() != StateClosing {
		t.Fatalf("State() = %s, want CLOSING", cs.State())
	}

	action = cs.FeedSegment(Segment{SEQ: Add(R, 1), ACK: Add(N, 1), Flags: FlagACK}, netip.Addr{}, 0)
	if action != ActionAccept {
		t.Fatalf("Action = %v, want ActionAccept", action)
	}
	if cs.State() != StateTimeWait {
		t.Fatalf("State() = %s, want TIME-WAIT", cs.State())
	}
}

// S5 — In-window RST in Established.
func TestScenarioInWindowRst(t *testing.T) {
	cs := establishedFixture(t)
	cs.rod.rcvNxt = 1000
	cs.fc.rcvWnd = 8192

	action := cs.FeedSegment(Segment{SEQ: 5000, Flags: FlagRST}, netip.Addr{}, 0)
	if action != ActionAbort {
		t.Fatalf("Action = %v, want ActionAbort", action)
	}
	if cs.State() != StateClosed {
		t.Fatalf("State() = %s, want CLOSED", cs.State())
	}
	if cs.ROD().SndNxt() != 0 || cs.ROD().RcvNxt() != 0 || cs.ROD().LastAck() != 0 {
		t.Fatalf("ROD not cleared: sndNxt=%d rcvNxt=%d lastAck=%d",
			cs.ROD().SndNxt(), cs.ROD().RcvNxt(), cs.ROD().LastAck())
	}
	if cs.CC().Cwnd() != 0 {
		t.Fatalf("Cwnd() = %d, want 0", cs.CC().Cwnd())
	}
}

// S6 — Out-of-window RST.
func TestScenarioOutOfWindowRst(t *testing.T) {
	cs := establishedFixture(t)
	cs.rod.rcvNxt = 1000
	cs.fc.rcvWnd = 8192
	before := cs.State()

	action := cs.FeedSegment(Segment{SEQ: Add(1000, 100000), Flags: FlagRST}, netip.Addr{}, 0)
	if action != ActionSendChallengeAck {
		t.Fatalf("Action = %v, want ActionSendChallengeAck", action)
	}
	if cs.State() != before {
		t.Fatalf("State() = %s, want unchanged %s", cs.State(), before)
	}
}

// S7 — Challenge on future ACK.
func TestScenarioChallengeOnFutureAck(t *testing.T) {
	cs := establishedFixture(t)
	rcvNxt := cs.ROD().RcvNxt()
	sndNxt := cs.ROD().SndNxt()

	action := cs.FeedSegment(Segment{SEQ: rcvNxt, ACK: Add(sndNxt, 1000), Flags: FlagACK}, netip.Addr{}, 0)
	if action != ActionSendChallengeAck {
		t.Fatalf("Action = %v, want ActionSendChallengeAck", action)
	}
}

// establishedFixture builds a ConnectionState already in Established via a
// full passive-open handshake, so scenario tests can start from a known
// snd_nxt/rcv_nxt pair instead of poking internals directly.
func establishedFixture(t *testing.T) *ConnectionState {
	t.Helper()
	cs := newTestConnection(t, 55)
	if err := cs.Bind(netip.MustParseAddr("10.0.0.1"), 8080); err != nil {
		t.Fatal(err)
	}
	if err := cs.Listen(); err != nil {
		t.Fatal(err)
	}
	syn := Segment{SEQ: 1000, Flags: FlagSYN, WND: 8192}
	if action := cs.FeedSegment(syn, netip.MustParseAddr("10.0.0.2"), 4000); action != ActionSendSynAck {
		t.Fatalf("setup SYN: Action = %v", action)
	}
	iss := cs.ROD().ISS()
	ack := Segment{SEQ: 1001, ACK: Add(iss, 1), Flags: FlagACK, WND: 8192}
	if action := cs.FeedSegment(ack, netip.MustParseAddr("10.0.0.2"), 4000); action != ActionAccept {
		t.Fatalf("setup ACK: Action = %v", action)
	}
	if cs.State() != StateEstablished {
		t.Fatalf("fixture setup ended in %s, want ESTABLISHED", cs.State())
	}
	return cs
}

// Invariant 6: abort() from {Closed, Listen} returns false; any other
// state returns true.
func TestInvariantAbortMustSendRst(t *testing.T) {
	cs := newTestConnection(t, 1)
	if cs.Abort() {
		t.Fatal("Abort() from Closed should not require RST")
	}
	if err := cs.Bind(netip.MustParseAddr("10.0.0.1"), 80); err != nil {
		t.Fatal(err)
	}
	if err := cs.Listen(); err != nil {
		t.Fatal(err)
	}
	if cs.Abort() {
		t.Fatal("Abort() from Listen should not require RST")
	}

	cs2 := establishedFixture(t)
	if !cs2.Abort() {
		t.Fatal("Abort() from Established should require RST")
	}
}

// Invariant 7: abort() is idempotent; close() in a terminal state returns
// must-send-FIN = false.
func TestInvariantAbortIdempotent(t *testing.T) {
	cs := establishedFixture(t)
	first := cs.Abort()
	second := cs.Abort()
	if !first {
		t.Fatal("first Abort() from Established should require RST")
	}
	if second {
		t.Fatal("second Abort() from already-Closed should not require RST")
	}
	if cs.State() != StateClosed {
		t.Fatalf("State() = %s, want CLOSED", cs.State())
	}
}

func TestInvariantCloseInTerminalState(t *testing.T) {
	cs := establishedFixture(t)
	mustFin, err := cs.Close()
	if err != nil || !mustFin {
		t.Fatalf("Close() = (%v, %v), want (true, nil)", mustFin, err)
	}
	if cs.State() != StateFinWait1 {
		t.Fatal("expected FinWait1 after close")
	}
	if _, err := cs.Close(); err != errAlreadyClosing {
		t.Fatalf("Close() in FinWait1 = %v, want errAlreadyClosing", err)
	}
}

// Invariant 3: snd_nxt - lastack >= 0 under signed modular comparison,
// checked on the Established fixture.
func TestInvariantSendUnaNeverAheadOfSndNxt(t *testing.T) {
	cs := establishedFixture(t)
	if cs.ROD().LastAck().LessThan(cs.ROD().SndNxt()) || cs.ROD().LastAck() == cs.ROD().SndNxt() {
		return
	}
	t.Fatalf("lastack %d is ahead of sndNxt %d", cs.ROD().LastAck(), cs.ROD().SndNxt())
}
