// Package runner executes external tools (ffmpeg, ffprobe) as subprocesses.
//
// Every other package shells out through a Runner; nothing else calls
// os/exec directly. A Runner never retries and never interprets output:
// it reports what happened as a Result and leaves policy to the caller.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Outcome classifies how a subprocess invocation ended.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"     // exit code 0
	OutcomeExitError  Outcome = "exit-error"  // ran and exited non-zero
	OutcomeTimedOut   Outcome = "timed-out"   // killed after the timeout elapsed
	OutcomeStartError Outcome = "start-error" // binary missing or not executable
	OutcomeCanceled   Outcome = "canceled"    // parent context was canceled
)

// DefaultWaitDelay bounds how long Run waits for output pipes to drain after
// the process has been killed.
const DefaultWaitDelay = 2 * time.Second

// Spec describes one subprocess invocation.
type Spec struct {
	Name    string        // binary name or path
	Args    []string      // arguments, not including Name
	Timeout time.Duration // hard limit; zero means no limit beyond ctx

	// Optional line callbacks, called from the reader goroutines as output
	// arrives. The full output is captured in Result either way.
	OnStdoutLine func(line string)
	OnStderrLine func(line string)
}

// CommandLine renders the invocation for logs and dry runs.
func (s Spec) CommandLine() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, s.Name)
	for _, a := range s.Args {
		if a == "" || strings.ContainsAny(a, " \t'\";[]?*$&|<>()") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the structured outcome of one invocation.
type Result struct {
	Command  string
	Args     []string
	ExitCode int // -1 when the process did not exit normally
	Stdout   string
	Stderr   string
	Outcome  Outcome
	Duration time.Duration
	Err      error // underlying error for non-success outcomes
}

// OK reports whether the process exited with status 0.
func (r *Result) OK() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// Summary returns a short description suitable for error messages.
func (r *Result) Summary() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s succeeded in %s", r.Command, r.Duration.Round(time.Millisecond))
	case OutcomeExitError:
		return fmt.Sprintf("%s exited with code %d", r.Command, r.ExitCode)
	case OutcomeTimedOut:
		return fmt.Sprintf("%s timed out after %s", r.Command, r.Duration.Round(time.Millisecond))
	case OutcomeCanceled:
		return fmt.Sprintf("%s canceled", r.Command)
	default:
		return fmt.Sprintf("%s failed to start: %v", r.Command, r.Err)
	}
}

// StderrTail returns the last n non-empty lines of stderr.
func (r *Result) StderrTail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes one external process per call.
type Runner interface {
	Run(ctx context.Context, spec Spec) *Result
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	logger    zerolog.Logger
	waitDelay time.Duration
}

// NewExecRunner creates a runner that logs invocations at debug level.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		logger:    logger.With().Str("component", "runner").Logger(),
		waitDelay: DefaultWaitDelay,
	}
}

// Run executes spec and blocks until the process exits, the timeout elapses
// or ctx is canceled. On timeout or cancellation the process is killed and
// Run returns within WaitDelay.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) *Result {
	res := &Result{Command: spec.Name, Args: spec.Args, ExitCode: -1}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Name, spec.Args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGKILL) }
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr lockedBuffer
	var wg sync.WaitGroup
	cmd.Stdout = lineWriter(&stdout, spec.OnStdoutLine, &wg)
	cmd.Stderr = lineWriter(&stderr, spec.OnStderrLine, &wg)

	r.logger.Debug().Str("cmd", spec.CommandLine()).Dur("timeout", spec.Timeout).Msg("exec")

	start := time.Now()
	err := cmd.Run()
	closeLineWriters(cmd.Stdout, cmd.Stderr)
	wg.Wait()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
		res.Outcome = OutcomeSuccess
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Outcome = OutcomeTimedOut
		res.Err = fmt.Errorf("timeout after %s: %w", spec.Timeout, context.DeadlineExceeded)
	case ctx.Err() != nil:
		res.Outcome = OutcomeCanceled
		res.Err = ctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			res.Outcome = OutcomeExitError
		} else {
			res.Outcome = OutcomeStartError
		}
		res.Err = err
	}

	ev := r.logger.Debug()
	if !res.OK() {
		ev = r.logger.Warn().Str("stderr_tail", res.StderrTail(5))
	}
	ev.Str("cmd", spec.Name).
		Str("outcome", string(res.Outcome)).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("exec finished")

	return res
}

// lockedBuffer is a bytes.Buffer safe for one writer and a later reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// lineWriter returns w itself when no callback is set, otherwise a pipe whose
// reader goroutine both copies into w and delivers complete lines.
func lineWriter(w io.Writer, onLine func(string), wg *sync.WaitGroup) io.Writer {
	if onLine == nil {
		return w
	}
	pr, pw := io.Pipe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(io.TeeReader(pr, w))
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLine(scanner.Text())
		}
		// Keep capturing after an overlong line so the writer never blocks.
		_, _ = io.Copy(w, pr)
	}()
	return pw
}

func closeLineWriters(ws ...io.Writer) {
	for _, w := range ws {
		if pw, ok := w.(*io.PipeWriter); ok {
			_ = pw.Close()
		}
	}
}
