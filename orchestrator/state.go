package orchestrator

import "reelmerge/models"

// State is a step of the per-request merge state machine.
//
//	Received → Probed → PlanSelected → AttemptingCopy → Succeeded
//	                                                  ↘ FallbackNeeded → AttemptingReencode → Succeeded | Failed
//	                    PlanSelected → AttemptingReencode (when copy is known to fail)
type State int

const (
	StateReceived State = iota
	StateProbed
	StatePlanSelected
	StateAttemptingCopy
	StateFallbackNeeded
	StateAttemptingReencode
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateProbed:
		return "probed"
	case StatePlanSelected:
		return "plan-selected"
	case StateAttemptingCopy:
		return "attempting-copy"
	case StateFallbackNeeded:
		return "fallback-needed"
	case StateAttemptingReencode:
		return "attempting-reencode"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Observer receives merge events. Every field is optional. Callbacks run on
// the merging goroutine and must not block for long.
type Observer struct {
	// OnState is called on every transition. batch is "request" for the
	// request-level states Received and Probed.
	OnState func(batch string, state State)

	// OnAttempt is called after each copy or re-encode invocation.
	OnAttempt func(attempt models.Attempt)

	// OnProgress is called once per ffmpeg progress block during re-encode.
	OnProgress models.ProgressCallback
}

func (o Observer) state(batch string, s State) {
	if o.OnState != nil {
		o.OnState(batch, s)
	}
}

func (o Observer) attempt(a models.Attempt) {
	if o.OnAttempt != nil {
		o.OnAttempt(a)
	}
}
