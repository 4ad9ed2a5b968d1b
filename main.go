package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reelmerge/config"
	"reelmerge/internal/logging"
	"reelmerge/orchestrator"
	"reelmerge/runner"
)

// Exit codes
const (
	exitOK           = 0
	exitFailure      = 1
	exitPrecondition = 2
	exitCanceled     = 130 // Standard exit code for SIGINT
)

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	runner runner.Runner
}

func main() {
	// Step 1: Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 2: Register signal handlers (Ctrl+C, SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n\n⚠️  Interrupt received, cleaning up...")
		cancel()
	}()

	// Step 3: Run the selected command
	err := newRootCmd().ExecuteContext(ctx)
	os.Exit(exitCode(ctx, err))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reelmerge",
		Short: "Merge short video clips into one file",
		Long: `reelmerge joins an ordered list of clips into a single video.

Clips that already share codecs and geometry are joined with a lossless
stream copy. Anything else, or a copy whose output looks wrong, is
re-encoded onto one canvas with letterboxing, a common frame rate and
synthesised silence for clips without audio.

Configuration priority: CLI flags > config file > defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newMergeCmd(), newProbeCmd(), newConfigCmd())
	return root
}

// loadApp builds configuration, logger and runner from the parsed flags.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, &exitError{code: exitPrecondition, err: fmt.Errorf("configuration error: %w", err)}
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, &exitError{code: exitPrecondition, err: err}
	}

	return &app{
		cfg:    cfg,
		log:    log,
		runner: runner.NewExecRunner(log),
	}, nil
}

// exitError carries an explicit process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit status and reports it.
func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return exitOK
	}

	// Check if it was a cancellation
	if ctx.Err() != nil || orchestrator.IsCanceled(err) {
		fmt.Fprintln(os.Stderr, "⚠️  Merge cancelled by user")
		return exitCanceled
	}

	fmt.Fprintf(os.Stderr, "❌ %v\n", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if orchestrator.IsPrecondition(err) {
		return exitPrecondition
	}
	return exitFailure
}
