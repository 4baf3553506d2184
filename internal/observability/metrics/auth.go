package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Layer labels for gate decisions.
const (
	LayerEdge  = "edge"
	LayerGuard = "guard"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Recorder receives auth metric events. Implementations must be safe for concurrent use.
type Recorder interface {
	GateDecision(layer, state string)
	LoginAttempt(outcome string)
	Refresh(result string)
	ObserveUpstream(op string, d time.Duration)
}

// Auth records auth metrics into Prometheus collectors.
type Auth struct {
	gateDecisions    *prometheus.CounterVec
	loginAttempts    *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

var _ Recorder = (*Auth)(nil)

// NewAuth registers the auth collectors with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewAuth(reg prometheus.Registerer) *Auth {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Auth{
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admingate",
			Subsystem: "auth",
			Name:      "gate_decisions_total",
			Help:      "Final state of each gatekeeper or guard evaluation.",
		}, []string{"layer", "state"}),
		loginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admingate",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admingate",
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Upstream session refresh attempts by result.",
		}, []string{"result"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "admingate",
			Subsystem: "auth",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of identity provider and profile store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// GateDecision counts a gate evaluation outcome.
func (a *Auth) GateDecision(layer, state string) {
	a.gateDecisions.WithLabelValues(layer, state).Inc()
}

// LoginAttempt counts a login outcome.
func (a *Auth) LoginAttempt(outcome string) {
	a.loginAttempts.WithLabelValues(outcome).Inc()
}

// Refresh counts a refresh attempt.
func (a *Auth) Refresh(result string) {
	a.refreshes.WithLabelValues(result).Inc()
}

// ObserveUpstream records the latency of an upstream call.
func (a *Auth) ObserveUpstream(op string, d time.Duration) {
	a.upstreamDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Nop discards all events.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) GateDecision(string, string)           {}
func (Nop) LoginAttempt(string)                   {}
func (Nop) Refresh(string)                        {}
func (Nop) ObserveUpstream(string, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
