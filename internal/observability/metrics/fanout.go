package metrics

import "time"

// Fanout forwards every event to each recorder in order.
type Fanout []Recorder

var _ Recorder = Fanout(nil)

// Combine drops nil recorders and returns a single Recorder for the rest.
func Combine(recs ...Recorder) Recorder {
	out := make(Fanout, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	}
	return out
}

func (f Fanout) GateDecision(layer, state string) {
	for _, r := range f {
		r.GateDecision(layer, state)
	}
}

func (f Fanout) LoginAttempt(outcome string) {
	for _, r := range f {
		r.LoginAttempt(outcome)
	}
}

func (f Fanout) Refresh(result string) {
	for _, r := range f {
		r.Refresh(result)
	}
}

func (f Fanout) ObserveUpstream(op string, d time.Duration) {
	for _, r := range f {
		r.ObserveUpstream(op, d)
	}
}
