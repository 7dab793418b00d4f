package tcpcore

import "github.com/prometheus/client_golang/prometheus"

// MetricsRecorder is an injected collaborator the dispatcher and
// [ConnectionState.ForceClose] report to. It is pure instrumentation:
// no MetricsRecorder implementation is ever consulted for a decision, only
// notified of one already made, so swapping implementations can never
// change core behavior.
type MetricsRecorder interface {
	// OnTransition is called whenever the dispatcher or ForceClose
	// advances State. The state moves made by Listen, Connect, Close and
	// Abort are not reported.
	OnTransition(from, to State)
	// OnAction is called with the dispatcher's classification of every
	// inbound segment, once per feed_segment call.
	OnAction(a Action)
	// OnSegmentDropped is called with a short reason string suitable for
	// a metrics label when the dispatcher drops a segment or answers it
	// with a challenge or RST. An old ACK in Established/CloseWait, a
	// non-FIN segment in TimeWait and a segment addressed to a Closed
	// connection get no call.
	OnSegmentDropped(reason string)
}

// noopMetrics discards every call. It is the default MetricsRecorder so a
// ConnectionState built without one still runs.
type noopMetrics struct{}

func (noopMetrics) OnTransition(State, State) {}
func (noopMetrics) OnAction(Action)           {}
func (noopMetrics) OnSegmentDropped(string)   {}

// PrometheusMetrics is a MetricsRecorder backed by
// github.com/prometheus/client_golang, modeled on a kernel TCP-info
// exporter's collector/descriptor pattern: each call increments a label
// on a CounterVec rather than allocating per-connection state.
type PrometheusMetrics struct {
	transitions *prometheus.CounterVec
	actions     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewPrometheusMetrics registers its counters on reg and returns a ready
// PrometheusMetrics. Passing prometheus.NewRegistry() keeps this isolated
// from the global default registry, which matters when many
// ConnectionState values share a process.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tcpcore",
			Name:      "state_transitions_total",
			Help:      "Number of lifecycle state transitions, labeled by origin and destination state.",
		}, []string{"from", "to"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tcpcore",
			Name:      "dispatcher_actions_total",
			Help:      "Number of Input Dispatcher classifications, labeled by action.",
		}, []string{"action"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tcpcore",
			Name:      "segments_dropped_total",
			Help:      "Number of segments rejected by a validator, labeled by rejection reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.transitions, m.actions, m.dropped)
	return m
}

func (m *PrometheusMetrics) OnTransition(from, to State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *PrometheusMetrics) OnAction(a Action) {
	m.actions.WithLabelValues(a.String()).Inc()
}

func (m *PrometheusMetrics) OnSegmentDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}
