package statsd

import (
	"time"

	"github.com/campus-admin/admingate/internal/observability/metrics"
)

// Recorder maps auth metric events onto StatsD counters and timings.
type Recorder struct {
	client *Client
}

var _ metrics.Recorder = (*Recorder)(nil)

// NewRecorder wraps client.
func NewRecorder(client *Client) *Recorder {
	return &Recorder{client: client}
}

func (r *Recorder) GateDecision(layer, state string) {
	r.client.Count("auth.gate_decision", 1, "layer:"+layer, "state:"+state)
}

func (r *Recorder) LoginAttempt(outcome string) {
	r.client.Count("auth.login_attempt", 1, "outcome:"+outcome)
}

func (r *Recorder) Refresh(result string) {
	r.client.Count("auth.refresh", 1, "result:"+result)
}

func (r *Recorder) ObserveUpstream(op string, d time.Duration) {
	r.client.Timing("auth.upstream", d, "op:"+op)
}
