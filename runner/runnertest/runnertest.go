// Package runnertest provides a scriptable runner.Runner for tests.
package runnertest

import (
	"context"
	"sync"

	"reelmerge/runner"
)

// HandlerFunc produces the result for one invocation.
type HandlerFunc func(ctx context.Context, spec runner.Spec) *runner.Result

// Fake records every Spec it receives and delegates to Handler.
type Fake struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []runner.Spec
}

// New returns a Fake using h.
func New(h HandlerFunc) *Fake {
	return &Fake{Handler: h}
}

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, spec runner.Spec) *runner.Result {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	f.mu.Unlock()

	if ctx.Err() != nil {
		return &runner.Result{Command: spec.Name, Args: spec.Args, ExitCode: -1, Outcome: runner.OutcomeCanceled, Err: ctx.Err()}
	}
	if f.Handler == nil {
		return OK(spec, "")
	}
	res := f.Handler(ctx, spec)
	if res.Command == "" {
		res.Command = spec.Name
		res.Args = spec.Args
	}
	return res
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []runner.Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]runner.Spec, len(f.calls))
	copy(out, f.calls)
	return out
}

// OK is a successful result with the given stdout. Stdout lines are also
// delivered to spec.OnStdoutLine.
func OK(spec runner.Spec, stdout string) *runner.Result {
	if spec.OnStdoutLine != nil {
		for _, line := range splitLines(stdout) {
			spec.OnStdoutLine(line)
		}
	}
	return &runner.Result{Command: spec.Name, Args: spec.Args, Stdout: stdout, Outcome: runner.OutcomeSuccess}
}

// Exit is a non-zero exit with the given stderr.
func Exit(spec runner.Spec, code int, stderr string) *runner.Result {
	return &runner.Result{Command: spec.Name, Args: spec.Args, ExitCode: code, Stderr: stderr, Outcome: runner.OutcomeExitError}
}

// TimedOut is a timeout result.
func TimedOut(spec runner.Spec) *runner.Result {
	return &runner.Result{Command: spec.Name, Args: spec.Args, ExitCode: -1, Outcome: runner.OutcomeTimedOut, Err: context.DeadlineExceeded}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
