package tcpcore

import (
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type recordingMetrics struct {
	transitions int
	actions     int
	drops       int
}

func (r *recordingMetrics) OnTransition(State, State) { r.transitions++ }
func (r *recordingMetrics) OnAction(Action)           { r.actions++ }
func (r *recordingMetrics) OnSegmentDropped(string)   { r.drops++ }

func TestMetricsRecorderInvokedOnHandshake(t *testing.T) {
	rec := &recordingMetrics{}
	cs := NewConnectionState(ConnectionConfig{ISSSource: NewCounterISSSource(3), Metrics: rec})
	if err := cs.Bind(netip.MustParseAddr("10.0.0.1"), 8080); err != nil {
		t.Fatal(err)
	}
	if err := cs.Listen(); err != nil {
		t.Fatal(err)
	}
	cs.FeedSegment(Segment{SEQ: 1000, Flags: FlagSYN, WND: 8192}, netip.MustParseAddr("10.0.0.2"), 4000)

	if rec.actions == 0 {
		t.Fatal("expected OnAction to be called")
	}
	if rec.transitions == 0 {
		t.Fatal("expected OnTransition to be called on Listen -> SynRcvd")
	}
}

func TestPrometheusMetricsRegistersAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	m.OnTransition(StateListen, StateSynRcvd)
	m.OnAction(ActionSendSynAck)
	m.OnSegmentDropped("seq-not-in-window")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sawTransition bool
	for _, f := range families {
		if f.GetName() == "tcpcore_state_transitions_total" {
			sawTransition = true
			if total := sumCounterFamily(f); total != 1 {
				t.Fatalf("transitions total = %v, want 1", total)
			}
		}
	}
	if !sawTransition {
		t.Fatal("expected tcpcore_state_transitions_total to be registered")
	}
}

func sumCounterFamily(f *dto.MetricFamily) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}
