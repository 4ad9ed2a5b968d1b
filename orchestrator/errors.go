package orchestrator

import (
	"errors"
	"fmt"

	"reelmerge/classifier"
	"reelmerge/ffmpeg"
	"reelmerge/models"
	"reelmerge/runner"
)

// PreconditionError reports a request that could never succeed: an empty
// clip list, an invalid target profile or an unusable output path.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// IsPrecondition reports whether err is a caller error from this package or
// from the classifier.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) || classifier.IsPrecondition(err)
}

// BatchError is a fatal failure of one batch. It aborts the request.
type BatchError struct {
	Batch     string
	Strategy  models.Strategy
	Reason    string
	Diagnosis ffmpeg.Diagnosis
	Result    *runner.Result // nil when ffmpeg was never started
	Err       error
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("batch %s %s failed: %s", e.Batch, e.Strategy, e.Reason)
	if e.Diagnosis.Kind != "" && e.Diagnosis.Kind != ffmpeg.Unknown {
		msg += " (" + string(e.Diagnosis.Kind) + ")"
	}
	return msg
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
