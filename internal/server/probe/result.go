// Package probe decides whether an account's stored session is still
// authenticated against the upstream service.
package probe

import "context"

// Outcome classifies one probe.
type Outcome int

const (
	// Failed means the probe itself broke (timeout, network, malformed
	// token, panic). Callers treat it like Dead.
	Failed Outcome = iota
	Live
	Dead
)

func (o Outcome) String() string {
	switch o {
	case Live:
		return "live"
	case Dead:
		return "dead"
	default:
		return "failed"
	}
}

// Result is the tagged outcome of a probe. Err is set only for Failed.
type Result struct {
	Outcome Outcome
	Err     error
}

// Alive reports whether the session was confirmed authenticated.
func (r Result) Alive() bool { return r.Outcome == Live }

// Prober checks a session token. Implementations never return an error to
// the caller; any failure is folded into a Failed result.
type Prober interface {
	Probe(ctx context.Context, token string) Result
}

// Func adapts a plain function to Prober.
type Func func(ctx context.Context, token string) Result

func (f Func) Probe(ctx context.Context, token string) Result { return f(ctx, token) }
