package tcpcore

import (
	"net/netip"
	"testing"
)

func TestConnectionManagementBindListen(t *testing.T) {
	var cm ConnectionManagement = NewConnectionManagement()

	if err := cm.OnListen(); err != errNotBound {
		t.Fatalf("OnListen before bind = %v, want errNotBound", err)
	}
	if err := cm.OnBind(netip.MustParseAddr("10.0.0.1"), 80); err != nil {
		t.Fatalf("OnBind: %v", err)
	}
	if err := cm.OnBind(netip.MustParseAddr("10.0.0.1"), 0); err != errPortZero {
		t.Fatalf("OnBind port 0 = %v, want errPortZero", err)
	}
	if err := cm.OnListen(); err != nil {
		t.Fatalf("OnListen: %v", err)
	}
	if cm.State() != StateListen {
		t.Fatalf("State() = %s, want LISTEN", cm.State())
	}
	if err := cm.OnListen(); err != ErrWrongState {
		t.Fatalf("OnListen twice = %v, want ErrWrongState", err)
	}
}

func TestConnectionManagementConnect(t *testing.T) {
	cm := NewConnectionManagement()
	if err := cm.OnConnect(netip.MustParseAddr("10.0.0.2"), 443); err != nil {
		t.Fatalf("OnConnect: %v", err)
	}
	if cm.State() != StateSynSent {
		t.Fatalf("State() = %s, want SYN-SENT", cm.State())
	}
	if cm.Tuple().RemotePort != 443 {
		t.Fatalf("Tuple().RemotePort = %d, want 443", cm.Tuple().RemotePort)
	}
}

func TestConnectionManagementCloseStateDependent(t *testing.T) {
	cm := NewConnectionManagement()
	cm.state = StateEstablished
	mustFin, err := cm.OnClose()
	if err != nil || !mustFin {
		t.Fatalf("OnClose() in Established = (%v, %v), want (true, nil)", mustFin, err)
	}
	if cm.State() != StateFinWait1 {
		t.Fatalf("State() after close = %s, want FIN-WAIT-1", cm.State())
	}

	cm2 := NewConnectionManagement()
	cm2.state = StateCloseWait
	mustFin, err = cm2.OnClose()
	if err != nil || !mustFin {
		t.Fatalf("OnClose() in CloseWait = (%v, %v), want (true, nil)", mustFin, err)
	}
	if cm2.State() != StateLastAck {
		t.Fatalf("State() after close = %s, want LAST-ACK", cm2.State())
	}

	cm3 := NewConnectionManagement()
	if _, err := cm3.OnClose(); err != errConnNotExist {
		t.Fatalf("OnClose() on Closed = %v, want errConnNotExist", err)
	}
}

func TestConnectionManagementAbort(t *testing.T) {
	cm := NewConnectionManagement()
	cm.state = StateEstablished
	if !cm.OnAbort() {
		t.Fatal("OnAbort() from Established should require RST")
	}
	if cm.State() != StateClosed {
		t.Fatalf("State() after abort = %s, want CLOSED", cm.State())
	}

	cm2 := NewConnectionManagement()
	cm2.state = StateListen
	if cm2.OnAbort() {
		t.Fatal("OnAbort() from Listen should not require RST")
	}
}

func TestConnectionManagementFinWait1Branches(t *testing.T) {
	cm := NewConnectionManagement()
	cm.state = StateFinWait1
	cm.onAckInFinWait1(false, true)
	if cm.State() != StateFinWait2 {
		t.Fatalf("ack-only branch: State() = %s, want FIN-WAIT-2", cm.State())
	}

	cm2 := NewConnectionManagement()
	cm2.state = StateFinWait1
	cm2.onAckInFinWait1(true, false)
	if cm2.State() != StateClosing {
		t.Fatalf("bare-fin branch: State() = %s, want CLOSING", cm2.State())
	}

	cm3 := NewConnectionManagement()
	cm3.state = StateFinWait1
	cm3.onAckInFinWait1(true, true)
	if cm3.State() != StateTimeWait {
		t.Fatalf("simultaneous fin|ack branch: State() = %s, want TIME-WAIT", cm3.State())
	}
}

func TestConnectionManagementRstReturnsToListenPolicy(t *testing.T) {
	cm := NewConnectionManagement()
	if err := cm.OnBind(netip.MustParseAddr("10.0.0.1"), 80); err != nil {
		t.Fatal(err)
	}
	if err := cm.OnListen(); err != nil {
		t.Fatal(err)
	}
	cm.materializeRemoteFromListen(netip.MustParseAddr("10.0.0.9"), 5555)
	cm.state = StateSynRcvd

	cm.onRst(true)
	if cm.State() != StateListen {
		t.Fatalf("onRst(true) from passive open = %s, want LISTEN", cm.State())
	}

	cm.state = StateSynRcvd
	cm.onRst(false)
	if cm.State() != StateClosed {
		t.Fatalf("onRst(false) = %s, want CLOSED", cm.State())
	}
}
