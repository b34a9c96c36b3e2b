// Package metrics records agent activity: asks per agent kind, failures,
// latency, session-gate backoffs and the live session count of a tree.
//
// Agents depend on the small Recorder interface; NoopRecorder is the default
// and Prometheus exports everything through client_golang.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Agent kinds used as the "kind" label.
const (
	KindModel      = "model"
	KindSequential = "sequential"
	KindParallel   = "parallel"
	KindLoop       = "loop"
)

// Recorder receives agent activity.
type Recorder interface {
	// ObserveAsk records one completed Ask call. err is nil on success.
	ObserveAsk(kind, agent string, d time.Duration, err error)
	// IncGateBackoff records one session-gate backoff of a composite.
	IncGateBackoff(agent string)
	// SetLiveSessions records the current session count of a tree root.
	SetLiveSessions(agent string, n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

// ObserveAsk implements Recorder.
func (NoopRecorder) ObserveAsk(string, string, time.Duration, error) {}

// IncGateBackoff implements Recorder.
func (NoopRecorder) IncGateBackoff(string) {}

// SetLiveSessions implements Recorder.
func (NoopRecorder) SetLiveSessions(string, int) {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	asks         *prometheus.CounterVec
	askErrors    *prometheus.CounterVec
	askDuration  *prometheus.HistogramVec
	gateBackoffs *prometheus.CounterVec
	liveSessions *prometheus.GaugeVec
}

// NewPrometheus creates the collectors and registers them with reg. A nil
// reg registers nothing, which is handy for tests using testutil.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		asks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentkit",
			Name:      "agent_asks_total",
			Help:      "Total Ask calls per agent.",
		}, []string{"kind", "agent"}),
		askErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentkit",
			Name:      "agent_ask_errors_total",
			Help:      "Total failed Ask calls per agent.",
		}, []string{"kind", "agent"}),
		askDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentkit",
			Name:      "agent_ask_duration_seconds",
			Help:      "Ask call duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind", "agent"}),
		gateBackoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentkit",
			Name:      "session_gate_backoffs_total",
			Help:      "Total session-gate backoffs per composite agent.",
		}, []string{"agent"}),
		liveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentkit",
			Name:      "live_sessions",
			Help:      "Live backend sessions held under an agent tree.",
		}, []string{"agent"}),
	}

	if reg == nil {
		return p, nil
	}

	for _, c := range p.Collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Collectors returns every collector owned by p.
func (p *Prometheus) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.asks, p.askErrors, p.askDuration, p.gateBackoffs, p.liveSessions}
}

// ObserveAsk implements Recorder.
func (p *Prometheus) ObserveAsk(kind, agent string, d time.Duration, err error) {
	p.asks.WithLabelValues(kind, agent).Inc()
	p.askDuration.WithLabelValues(kind, agent).Observe(d.Seconds())
	if err != nil {
		p.askErrors.WithLabelValues(kind, agent).Inc()
	}
}

// IncGateBackoff implements Recorder.
func (p *Prometheus) IncGateBackoff(agent string) {
	p.gateBackoffs.WithLabelValues(agent).Inc()
}

// SetLiveSessions implements Recorder.
func (p *Prometheus) SetLiveSessions(agent string, n int) {
	p.liveSessions.WithLabelValues(agent).Set(float64(n))
}
