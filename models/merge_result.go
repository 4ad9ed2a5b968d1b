package models

import (
	"fmt"
	"strings"
	"time"
)

// AttemptOutcome is the result of one copy or re-encode attempt.
type AttemptOutcome string

const (
	AttemptSucceeded      AttemptOutcome = "succeeded"
	AttemptFallbackNeeded AttemptOutcome = "fallback-needed"
	AttemptFailed         AttemptOutcome = "failed"
)

// Attempt records one external merge invocation.
type Attempt struct {
	Batch       string         `json:"batch"`
	Strategy    Strategy       `json:"strategy"`
	Inputs      int            `json:"inputs"`
	Outcome     AttemptOutcome `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	OutputBytes int64          `json:"output_bytes"`
	Duration    time.Duration  `json:"duration"`
}

// MergeResult represents the outcome of a merge request.
//
// It enforces logical consistency: a successful result must have an output
// path and no error, a failed result must have an error and no output path.
// Use NewMergeResultSuccess or NewMergeResultFailure to create validated instances.
type MergeResult struct {
	Success    bool     `json:"success"`
	OutputPath string   `json:"output_path"`
	Strategy   Strategy `json:"strategy_used"`
	Err        error    `json:"-"`

	Inputs      int       `json:"inputs"`
	Chunks      int       `json:"chunks"`                 // chunk-merge operations before the final pass
	Attempts    []Attempt `json:"attempts"`               // every external merge invocation, in order
	Skipped     []string  `json:"skipped,omitempty"`      // clips excluded after a probe failure
	SilentClips []string  `json:"silent_clips,omitempty"` // clips without audio, silent in the output

	Elapsed time.Duration `json:"elapsed"`
}

// NewMergeResultSuccess creates a successful MergeResult with validation.
func NewMergeResultSuccess(outputPath string, strategy Strategy) (*MergeResult, error) {
	mr := &MergeResult{
		Success:    true,
		OutputPath: outputPath,
		Strategy:   strategy,
	}
	if err := mr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge result: %w", err)
	}
	return mr, nil
}

// NewMergeResultFailure creates a failed MergeResult.
//
// The error parameter must not be nil.
func NewMergeResultFailure(strategy Strategy, mergeErr error) (*MergeResult, error) {
	if mergeErr == nil {
		return nil, fmt.Errorf("invalid merge result: error cannot be nil for failed result")
	}
	return &MergeResult{
		Success:  false,
		Strategy: strategy,
		Err:      mergeErr,
	}, nil
}

// Validate checks if the MergeResult has consistent state.
//
// Returns an error if:
//   - Success is true but Err is not nil
//   - Success is false but Err is nil
//   - Success is true but OutputPath is empty
//   - Success is false but OutputPath is set
func (mr *MergeResult) Validate() error {
	if mr.Success && mr.Err != nil {
		return fmt.Errorf("inconsistent state: Success is true but Err is not nil")
	}
	if !mr.Success && mr.Err == nil {
		return fmt.Errorf("failed result must have an error")
	}
	if mr.Success && strings.TrimSpace(mr.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}
	if !mr.Success && strings.TrimSpace(mr.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}
	return nil
}

// CountAttempts returns how many attempts used the given strategy.
func (mr *MergeResult) CountAttempts(strategy Strategy) int {
	n := 0
	for _, a := range mr.Attempts {
		if a.Strategy == strategy {
			n++
		}
	}
	return n
}
