// Package orchestrator drives a merge request from input paths to one
// output file. It is the only place that decides whether a failed attempt
// falls back to re-encode or aborts the request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelmerge/artifact"
	"reelmerge/chunker"
	"reelmerge/classifier"
	"reelmerge/command"
	"reelmerge/command/video"
	"reelmerge/concatenator"
	"reelmerge/ffmpeg"
	"reelmerge/ffprobe"
	"reelmerge/models"
	"reelmerge/planner"
	"reelmerge/runner"
)

const requestLabel = "request"

// Prober turns a path into a probed descriptor.
type Prober interface {
	Probe(ctx context.Context, path string) (*models.ClipDescriptor, error)
}

// Options tunes a Merger.
type Options struct {
	ChunkSize int

	// CopySizeRatio is the minimum copy output size as a fraction of the
	// summed input sizes. Smaller outputs trigger fallback.
	CopySizeRatio float64
	// ReencodeSizeRatio and MinOutputBytes form the re-encode sanity floor:
	// max(MinOutputBytes, ReencodeSizeRatio × inputs).
	ReencodeSizeRatio float64
	MinOutputBytes    int64

	// WorkDir is where per-request workspaces are created; empty means the
	// system temp dir.
	WorkDir string

	// SkipUnprobeable excludes clips that fail to probe instead of aborting.
	SkipUnprobeable bool

	Thresholds classifier.Thresholds

	FFmpeg  string
	Timeout time.Duration // per ffmpeg invocation
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		ChunkSize:         chunker.DefaultChunkSize,
		CopySizeRatio:     0.80,
		ReencodeSizeRatio: 0.01,
		MinOutputBytes:    1024,
		Thresholds:        classifier.DefaultThresholds(),
		FFmpeg:            "ffmpeg",
		Timeout:           10 * time.Minute,
	}
}

// Merger executes merge requests. A Merger holds no per-request state and
// may serve several requests, one at a time or concurrently.
type Merger struct {
	opts       Options
	prober     Prober
	classifier *classifier.Classifier
	planner    *planner.Planner
	chunker    *chunker.Chunker
	concat     *concatenator.Concatenator
	log        zerolog.Logger
	observer   Observer
}

// New creates a Merger. Zero-valued tuning fields take their defaults.
func New(opts Options, prober Prober, r runner.Runner, log zerolog.Logger) *Merger {
	def := DefaultOptions()
	if opts.ChunkSize == 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.CopySizeRatio == 0 {
		opts.CopySizeRatio = def.CopySizeRatio
	}
	if opts.ReencodeSizeRatio == 0 {
		opts.ReencodeSizeRatio = def.ReencodeSizeRatio
	}
	if opts.MinOutputBytes == 0 {
		opts.MinOutputBytes = def.MinOutputBytes
	}

	cls := classifier.New(opts.Thresholds)
	opts.Thresholds = cls.Thresholds()

	return &Merger{
		opts:       opts,
		prober:     prober,
		classifier: cls,
		planner:    planner.New(opts.Thresholds.FrameRateTolerance),
		chunker:    chunker.NewChunker().SetChunkSize(opts.ChunkSize),
		concat:     concatenator.NewConcatenator(r, log, concatenator.Options{FFmpeg: opts.FFmpeg, Timeout: opts.Timeout}),
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

// SetObserver installs event callbacks.
func (m *Merger) SetObserver(o Observer) *Merger {
	m.observer = o
	return m
}

// Options returns the effective tuning.
func (m *Merger) Options() Options {
	return m.opts
}

// request carries the state of one Merge call.
type request struct {
	ws     *artifact.Workspace
	target models.TargetProfile
	ext    string
	result *models.MergeResult
	log    zerolog.Logger
}

// Merge joins the clips at paths, in order, into output.
//
// A nil result with a PreconditionError means nothing was attempted. A
// failed result is returned together with the error for fatal failures;
// in that case no file is left at output. Copy failures that fall back
// successfully are not errors.
func (m *Merger) Merge(ctx context.Context, paths []string, output string, target models.TargetProfile) (*models.MergeResult, error) {
	started := time.Now()

	output, err := m.checkRequest(paths, output, target)
	if err != nil {
		return nil, err
	}

	log := m.log.With().Str("output", output).Logger()
	m.observer.state(requestLabel, StateReceived)

	res := &models.MergeResult{Inputs: len(paths)}
	finish := func(strategy models.Strategy, err error) (*models.MergeResult, error) {
		res.Elapsed = time.Since(started)
		if err != nil {
			res.Success = false
			res.OutputPath = ""
			res.Strategy = strategy
			res.Err = err
		} else {
			res.Success = true
			res.OutputPath = output
			res.Strategy = strategy
		}
		m.logOutcome(log, res)
		return res, err
	}

	// A previous output at this path must never survive a new request.
	if err := artifact.RemoveStale(output); err != nil {
		return finish("", err)
	}

	clips, skipped, err := m.probeAll(ctx, paths, log)
	res.Skipped = skipped
	if err != nil {
		return finish("", err)
	}
	if err := m.classifier.ClassifyAll(clips, target); err != nil {
		return finish("", err)
	}
	for _, c := range clips {
		if !c.HasAudio {
			res.SilentClips = append(res.SilentClips, c.Path)
		}
		log.Debug().
			Str("clip", c.Path).
			Str("resolution", c.Resolution()).
			Str("fps", c.FrameRate.String()).
			Str("defects", c.Defects.String()).
			Msg("Classified clip")
	}
	m.observer.state(requestLabel, StateProbed)

	ws, err := artifact.NewWorkspace(m.opts.WorkDir)
	if err != nil {
		return finish("", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn().Err(err).Str("workspace", ws.Dir()).Msg("Failed to remove workspace")
		}
	}()

	req := &request{
		ws:     ws,
		target: target,
		ext:    filepath.Ext(output),
		result: res,
		log:    log,
	}

	staging := artifact.StagingPath(output)
	if err := m.mergeLevel(ctx, req, clips, 0, staging, false); err != nil {
		artifact.Discard(staging)
		return finish(usedStrategy(res), err)
	}
	if err := artifact.Commit(staging, output); err != nil {
		artifact.Discard(staging)
		return finish(usedStrategy(res), err)
	}
	return finish(usedStrategy(res), nil)
}

// checkRequest validates the request and returns the absolute output path.
func (m *Merger) checkRequest(paths []string, output string, target models.TargetProfile) (string, error) {
	if len(paths) == 0 {
		return "", &PreconditionError{Reason: "clip list is empty"}
	}
	if strings.TrimSpace(output) == "" {
		return "", &PreconditionError{Reason: "output path is empty"}
	}
	if !command.SupportedOutput(output) {
		return "", &PreconditionError{Reason: fmt.Sprintf("output %s needs a container extension such as .mp4 or .mkv", output)}
	}
	if err := target.Validate(); err != nil {
		return "", &PreconditionError{Reason: err.Error()}
	}
	if m.opts.ChunkSize < chunker.MinChunkSize || m.opts.ChunkSize > chunker.MaxChunkSize {
		return "", &PreconditionError{Reason: fmt.Sprintf("chunk size must be between %d and %d, got %d",
			chunker.MinChunkSize, chunker.MaxChunkSize, m.opts.ChunkSize)}
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		return "", &PreconditionError{Reason: fmt.Sprintf("output path %s: %v", output, err)}
	}
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			return "", &PreconditionError{Reason: fmt.Sprintf("clip %d has an empty path", i)}
		}
		if in, err := filepath.Abs(p); err == nil && in == abs {
			return "", &PreconditionError{Reason: fmt.Sprintf("output path %s is also input %d", output, i)}
		}
	}
	return abs, nil
}

// probeAll probes every path in order. Probe failures abort the request
// unless SkipUnprobeable is set; a missing ffprobe always aborts.
func (m *Merger) probeAll(ctx context.Context, paths []string, log zerolog.Logger) ([]*models.ClipDescriptor, []string, error) {
	clips := make([]*models.ClipDescriptor, 0, len(paths))
	var skipped []string

	for _, p := range paths {
		clip, err := m.prober.Probe(ctx, p)
		if err == nil {
			clips = append(clips, clip)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, skipped, fmt.Errorf("merge canceled while probing: %w", ctxErr)
		}
		if !m.opts.SkipUnprobeable || ffprobe.IsKind(err, ffprobe.ToolUnavailable) {
			return nil, skipped, err
		}
		log.Warn().Err(err).Str("clip", p).Msg("Skipping clip that failed to probe")
		skipped = append(skipped, p)
	}

	if len(clips) == 0 {
		return nil, skipped, fmt.Errorf("none of the %d clips could be probed", len(paths))
	}
	return clips, skipped, nil
}

// mergeLevel merges clips into out, chunking when the list exceeds one
// batch. Chunk outputs are probed, classified and merged as the next level.
//
// Once any chunk of a level is re-encoded, every later level is re-encoded
// too: chunk outputs from different strategies carry different encoder
// parameters even when the probe cannot tell them apart.
func (m *Merger) mergeLevel(ctx context.Context, req *request, clips []*models.ClipDescriptor, level int, out string, forceReencode bool) error {
	if !m.chunker.NeedsChunking(len(clips)) {
		batch, err := models.NewBatch(1, level, clips)
		if err != nil {
			return err
		}
		_, err = m.mergeBatch(ctx, req, batch, out, forceReencode)
		return err
	}

	batches, err := m.chunker.CreateBatches(clips, level)
	if err != nil {
		return err
	}
	req.log.Info().
		Int("level", level).
		Int("clips", len(clips)).
		Int("batches", len(batches)).
		Msg("Merging in chunks")

	next := make([]*models.ClipDescriptor, 0, len(batches))
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("merge canceled before %s: %w", batch.Label(), err)
		}

		chunkOut := req.ws.ChunkPath(batch.Label(), req.ext)
		used, err := m.mergeBatch(ctx, req, batch, chunkOut, forceReencode)
		if err != nil {
			return err
		}
		req.result.Chunks++
		if used == models.StrategyReencode {
			forceReencode = true
		}

		desc, err := m.prober.Probe(ctx, chunkOut)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("merge canceled after %s: %w", batch.Label(), ctxErr)
			}
			return fmt.Errorf("probe chunk %s: %w", batch.Label(), err)
		}
		if desc.Defects, err = m.classifier.Classify(desc, req.target); err != nil {
			return err
		}
		next = append(next, desc)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("merge canceled before level %d: %w", level+1, err)
	}
	return m.mergeLevel(ctx, req, next, level+1, out, forceReencode)
}

// selectPlan picks copy mode only for defect-free, mutually compatible
// clips. Anything else goes straight to re-encode, as does a batch whose
// inputs include a re-encoded chunk (forceReencode).
func (m *Merger) selectPlan(batch *models.Batch, out string, target models.TargetProfile, forceReencode bool) *models.MergePlan {
	plan := &models.MergePlan{
		Clips:      batch.Clips,
		BatchSize:  len(batch.Clips),
		OutputPath: out,
		Target:     &target,
	}
	if d := plan.Defects(); !d.IsEmpty() {
		plan.Strategy = models.StrategyReencode
		plan.Reason = "defects: " + d.String()
		return plan
	}
	if forceReencode {
		plan.Strategy = models.StrategyReencode
		plan.Reason = "inputs include a re-encoded chunk"
		return plan
	}
	if ok, why := m.classifier.CopyCompatible(batch.Clips); !ok {
		plan.Strategy = models.StrategyReencode
		plan.Reason = "incompatible streams: " + why
		return plan
	}
	plan.Strategy = models.StrategyStreamCopy
	plan.Reason = "uniform and defect-free"
	return plan
}

// mergeBatch runs the state machine for one batch and returns the strategy
// that produced out.
func (m *Merger) mergeBatch(ctx context.Context, req *request, batch *models.Batch, out string, forceReencode bool) (models.Strategy, error) {
	label := batch.Label()
	log := req.log.With().Str("batch", label).Int("inputs", len(batch.Clips)).Logger()

	plan := m.selectPlan(batch, out, req.target, forceReencode)
	if err := plan.Validate(); err != nil {
		return "", err
	}
	m.observer.state(label, StatePlanSelected)
	log.Info().Str("strategy", string(plan.Strategy)).Str("reason", plan.Reason).Msg("Plan selected")

	inputBytes := inputSize(batch.Clips)

	if plan.Strategy == models.StrategyStreamCopy {
		m.observer.state(label, StateAttemptingCopy)
		attempt, err := m.attemptCopy(ctx, req, batch, out, inputBytes)
		if err != nil {
			m.observer.state(label, StateFailed)
			artifact.Discard(out)
			return "", err
		}
		if attempt.Outcome == models.AttemptSucceeded {
			m.observer.state(label, StateSucceeded)
			return models.StrategyStreamCopy, nil
		}
		m.observer.state(label, StateFallbackNeeded)
		log.Warn().Str("reason", attempt.Reason).Msg("Stream copy failed, falling back to re-encode")
		artifact.Discard(out)
	}

	m.observer.state(label, StateAttemptingReencode)
	if err := m.attemptReencode(ctx, req, batch, out, inputBytes); err != nil {
		m.observer.state(label, StateFailed)
		artifact.Discard(out)
		return "", err
	}
	m.observer.state(label, StateSucceeded)
	return models.StrategyReencode, nil
}

// attemptCopy runs one stream-copy invocation. An error is returned only
// for failures that are fatal to the request; a failed copy yields an
// attempt with AttemptFallbackNeeded.
func (m *Merger) attemptCopy(ctx context.Context, req *request, batch *models.Batch, out string, inputBytes int64) (models.Attempt, error) {
	started := time.Now()
	attempt := models.Attempt{
		Batch:    batch.Label(),
		Strategy: models.StrategyStreamCopy,
		Inputs:   len(batch.Clips),
	}
	record := func() {
		attempt.Duration = time.Since(started)
		req.result.Attempts = append(req.result.Attempts, attempt)
		m.observer.attempt(attempt)
	}

	res, err := m.concat.Copy(ctx, req.ws.Dir(), batch.Paths(), concatenator.StreamsOf(batch.Clips[0]), out)
	if err != nil {
		attempt.Outcome = models.AttemptFailed
		attempt.Reason = err.Error()
		record()
		return attempt, &BatchError{Batch: batch.Label(), Strategy: attempt.Strategy, Reason: err.Error(), Err: err}
	}
	if res.Outcome == runner.OutcomeCanceled {
		attempt.Outcome = models.AttemptFailed
		attempt.Reason = "canceled"
		record()
		return attempt, fmt.Errorf("merge canceled during %s: %w", batch.Label(), ctx.Err())
	}

	attempt.OutputBytes = artifact.FileSize(out)
	minBytes := int64(m.opts.CopySizeRatio * float64(inputBytes))

	switch {
	case !res.OK():
		attempt.Outcome = models.AttemptFallbackNeeded
		attempt.Reason = res.Summary()
		if res.Stderr != "" {
			attempt.Reason += "; " + ffmpeg.Diagnose(res.Stderr).String()
		}
	case attempt.OutputBytes == 0:
		attempt.Outcome = models.AttemptFallbackNeeded
		attempt.Reason = "output is missing or empty"
	case attempt.OutputBytes < minBytes:
		attempt.Outcome = models.AttemptFallbackNeeded
		attempt.Reason = fmt.Sprintf("output is %d bytes, below %.0f%% of the %d input bytes",
			attempt.OutputBytes, m.opts.CopySizeRatio*100, inputBytes)
	default:
		attempt.Outcome = models.AttemptSucceeded
	}
	record()
	return attempt, nil
}

// attemptReencode runs one normalize-and-reencode invocation. Any failure
// is fatal for the request.
func (m *Merger) attemptReencode(ctx context.Context, req *request, batch *models.Batch, out string, inputBytes int64) error {
	started := time.Now()
	label := batch.Label()
	attempt := models.Attempt{
		Batch:    label,
		Strategy: models.StrategyReencode,
		Inputs:   len(batch.Clips),
	}
	fail := func(reason string, diag ffmpeg.Diagnosis, res *runner.Result, cause error) error {
		attempt.Outcome = models.AttemptFailed
		attempt.Reason = reason
		attempt.Duration = time.Since(started)
		req.result.Attempts = append(req.result.Attempts, attempt)
		m.observer.attempt(attempt)
		return &BatchError{Batch: label, Strategy: attempt.Strategy, Reason: reason, Diagnosis: diag, Result: res, Err: cause}
	}

	chains, err := m.planner.PlanAll(batch.Clips, req.target)
	if err != nil {
		return fail(err.Error(), ffmpeg.Diagnosis{}, nil, err)
	}
	inputs := make([]video.Input, len(batch.Clips))
	var total float64
	for i, c := range batch.Clips {
		inputs[i] = video.InputFor(c, chains[i])
		total += c.Duration
	}

	progress := models.NewProgress(label, total)
	res, err := m.concat.Reencode(ctx, inputs, out, req.target, progress, m.observer.OnProgress)
	if err != nil {
		return fail(err.Error(), ffmpeg.Diagnosis{}, nil, err)
	}
	if res.Outcome == runner.OutcomeCanceled {
		attempt.Outcome = models.AttemptFailed
		attempt.Reason = "canceled"
		attempt.Duration = time.Since(started)
		req.result.Attempts = append(req.result.Attempts, attempt)
		m.observer.attempt(attempt)
		return fmt.Errorf("merge canceled during %s: %w", label, ctx.Err())
	}
	if !res.OK() {
		diag := ffmpeg.Diagnose(res.Stderr)
		return fail(res.Summary(), diag, res, res.Err)
	}

	attempt.OutputBytes = artifact.FileSize(out)
	floor := int64(m.opts.ReencodeSizeRatio * float64(inputBytes))
	if floor < m.opts.MinOutputBytes {
		floor = m.opts.MinOutputBytes
	}
	if attempt.OutputBytes == 0 {
		return fail("ffmpeg reported success but the output is missing or empty", ffmpeg.Diagnosis{}, res, nil)
	}
	if attempt.OutputBytes < floor {
		return fail(fmt.Sprintf("output is %d bytes, below the %d byte sanity floor", attempt.OutputBytes, floor),
			ffmpeg.Diagnosis{}, res, nil)
	}

	attempt.Outcome = models.AttemptSucceeded
	attempt.Duration = time.Since(started)
	req.result.Attempts = append(req.result.Attempts, attempt)
	m.observer.attempt(attempt)
	req.log.Info().
		Str("batch", label).
		Int64("bytes", attempt.OutputBytes).
		Dur("took", attempt.Duration).
		Msg("Re-encode finished")
	return nil
}

func (m *Merger) logOutcome(log zerolog.Logger, res *models.MergeResult) {
	ev := log.Info()
	if !res.Success {
		ev = log.Error().Err(res.Err)
	}
	ev.Bool("success", res.Success).
		Str("output", res.OutputPath).
		Int("inputs", res.Inputs).
		Str("strategy", string(res.Strategy)).
		Int("chunks", res.Chunks).
		Int("skipped", len(res.Skipped)).
		Dur("duration", res.Elapsed).
		Msg("Merge finished")
}

// usedStrategy reports re-encode when any batch needed it.
func usedStrategy(res *models.MergeResult) models.Strategy {
	if len(res.Attempts) == 0 {
		return ""
	}
	for _, a := range res.Attempts {
		if a.Strategy == models.StrategyReencode {
			return models.StrategyReencode
		}
	}
	return models.StrategyStreamCopy
}

// inputSize sums the probed sizes, falling back to the current file size.
func inputSize(clips []*models.ClipDescriptor) int64 {
	var total int64
	for _, c := range clips {
		if c.Size > 0 {
			total += c.Size
		} else {
			total += artifact.FileSize(c.Path)
		}
	}
	return total
}

// IsCanceled reports whether err stems from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
