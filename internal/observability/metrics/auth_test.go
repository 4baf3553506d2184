package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuth(reg)

	m.GateDecision(LayerEdge, "authorized")
	m.GateDecision(LayerEdge, "authorized")
	m.GateDecision(LayerGuard, "not_admin")
	m.LoginAttempt("success")
	m.Refresh(ResultFailure)
	m.ObserveUpstream("sign_in", 150*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.gateDecisions.WithLabelValues(LayerEdge, "authorized")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.gateDecisions.WithLabelValues(LayerGuard, "not_admin")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.loginAttempts.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.refreshes.WithLabelValues(ResultFailure)), 0)

	count, err := testutil.GatherAndCount(reg, "admingate_auth_upstream_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))

	m := NewAuth(prometheus.NewRegistry())
	assert.Same(t, m, OrNop(m))
}

type countingRecorder struct {
	gate, login, refresh, upstream int
}

func (c *countingRecorder) GateDecision(string, string)           { c.gate++ }
func (c *countingRecorder) LoginAttempt(string)                   { c.login++ }
func (c *countingRecorder) Refresh(string)                        { c.refresh++ }
func (c *countingRecorder) ObserveUpstream(string, time.Duration) { c.upstream++ }

func TestCombine(t *testing.T) {
	assert.Equal(t, Nop{}, Combine())
	assert.Equal(t, Nop{}, Combine(nil, nil))

	a := &countingRecorder{}
	assert.Same(t, a, Combine(nil, a))

	b := &countingRecorder{}
	rec := Combine(a, nil, b)
	rec.GateDecision(LayerEdge, "authorized")
	rec.LoginAttempt("success")
	rec.Refresh(ResultSuccess)
	rec.ObserveUpstream("refresh", time.Millisecond)

	for _, c := range []*countingRecorder{a, b} {
		assert.Equal(t, countingRecorder{gate: 1, login: 1, refresh: 1, upstream: 1}, *c)
	}
}
