package observability

import (
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported by domainwatch.
type Metrics struct {
	challenges   prometheus.Counter
	reconnects   prometheus.Counter
	sessionState *prometheus.GaugeVec
	lookups      *prometheus.CounterVec
	lookupFails  prometheus.Counter
	deliveries   *prometheus.CounterVec
	checks       *prometheus.CounterVec
}

var sessionStates = []domain.SessionState{
	domain.StateDisconnected,
	domain.StateAwaitingChallenge,
	domain.StateConnected,
	domain.StateClosing,
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		challenges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_session_challenges_total",
			Help: "Authentication challenges issued by the platform",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_session_reconnects_total",
			Help: "Automatic reconnects after transient close codes",
		}),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "domainwatch_session_state",
			Help: "1 for the current session state, 0 otherwise",
		}, []string{"state"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domainwatch_lookups_total",
			Help: "Successful expiration lookups by protocol",
		}, []string{"source"}),
		lookupFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_lookup_failures_total",
			Help: "Lookups where both protocols failed",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domainwatch_deliveries_total",
			Help: "Notification delivery attempts by outcome",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domainwatch_checks_total",
			Help: "Completed checks by run kind and alert tier",
		}, []string{"run", "tier"}),
	}
	reg.MustRegister(m.challenges, m.reconnects, m.sessionState, m.lookups, m.lookupFails, m.deliveries, m.checks)
	return m
}

func (m *Metrics) ChallengeIssued() {
	if m == nil {
		return
	}
	m.challenges.Inc()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// SessionState flips the gauge so exactly one state reads 1.
func (m *Metrics) SessionState(state domain.SessionState) {
	if m == nil {
		return
	}
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.sessionState.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) Lookup(source domain.LookupSource) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) LookupFailed() {
	if m == nil {
		return
	}
	m.lookupFails.Inc()
}

// Delivery records a send outcome ("sent", "not_live", "failed").
func (m *Metrics) Delivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// Check records a finished check. tier is "none" when nothing was sent and
// "error" when the lookup failed.
func (m *Metrics) Check(run domain.RunKind, tier string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(string(run), tier).Inc()
}
