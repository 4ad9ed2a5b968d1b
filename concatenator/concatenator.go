// Package concatenator executes a single merge attempt over one batch of
// clips. It runs exactly one ffmpeg invocation per call and reports what
// happened; deciding whether to fall back is the caller's job.
package concatenator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"reelmerge/artifact"
	"reelmerge/command/concat"
	"reelmerge/command/video"
	"reelmerge/ffmpeg"
	"reelmerge/models"
	"reelmerge/runner"
)

// Options configures the ffmpeg invocations.
type Options struct {
	FFmpeg  string        // executable, "ffmpeg" when empty
	Timeout time.Duration // per invocation, 0 for none
}

// Concatenator merges batches through a runner.Runner.
type Concatenator struct {
	runner runner.Runner
	log    zerolog.Logger
	opts   Options
	parser *ffmpeg.ProgressParser
}

// NewConcatenator creates a new concatenator
func NewConcatenator(r runner.Runner, log zerolog.Logger, opts Options) *Concatenator {
	return &Concatenator{
		runner: r,
		log:    log.With().Str("component", "concatenator").Logger(),
		opts:   opts,
		parser: ffmpeg.NewProgressParser(),
	}
}

// Streams selects which video and audio stream of every input is merged,
// by position among the input's streams of that type.
type Streams struct {
	Video int
	Audio int
}

// StreamsOf returns the stream selection of a probed clip.
func StreamsOf(clip *models.ClipDescriptor) Streams {
	return Streams{Video: clip.VideoStream, Audio: clip.AudioStream}
}

// CopyCommand builds the stream-copy command for paths without running it.
func (c *Concatenator) CopyCommand(manifest string, paths []string, streams Streams, output string) *concat.ConcatBuilder {
	return concat.NewConcatBuilder(manifest, output).
		SetBinary(c.opts.FFmpeg).
		SetInputs(paths).
		SetStreams(streams.Video, streams.Audio)
}

// ReencodeCommand builds the normalize-and-reencode command without running it.
func (c *Concatenator) ReencodeCommand(inputs []video.Input, output string, target models.TargetProfile) *video.VideoBuilder {
	b := video.FromTarget(output, target).SetBinary(c.opts.FFmpeg)
	for _, in := range inputs {
		b.AddSource(in)
	}
	return b
}

// Copy joins paths into output with the concat demuxer and stream copy,
// taking the selected streams from every input.
//
// The manifest lives in workDir only for the duration of the call. A
// returned error means ffmpeg was never started; otherwise the Result
// carries the outcome.
func (c *Concatenator) Copy(ctx context.Context, workDir string, paths []string, streams Streams, output string) (*runner.Result, error) {
	if err := checkInputs(paths); err != nil {
		return nil, err
	}

	var res *runner.Result
	err := artifact.WithManifest(workDir, paths, func(manifest string) error {
		cmd := c.CopyCommand(manifest, paths, streams, output)
		if err := cmd.Validate(); err != nil {
			return err
		}
		c.log.Debug().
			Int("inputs", len(paths)).
			Str("manifest", manifest).
			Str("output", output).
			Msg("Stream copy")

		res = c.runner.Run(ctx, runner.Spec{
			Name:    cmd.Binary(),
			Args:    cmd.BuildArgs(),
			Timeout: c.opts.Timeout,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream copy: %w", err)
	}
	return res, nil
}

// Reencode normalizes every input onto target and joins them into output.
//
// When progress is non-nil it is fed from ffmpeg's -progress output and cb
// is invoked once per progress block.
func (c *Concatenator) Reencode(ctx context.Context, inputs []video.Input, output string, target models.TargetProfile, progress *models.Progress, cb models.ProgressCallback) (*runner.Result, error) {
	paths := make([]string, len(inputs))
	for i, in := range inputs {
		paths[i] = in.Path
	}
	if err := checkInputs(paths); err != nil {
		return nil, err
	}

	cmd := c.ReencodeCommand(inputs, output, target).SetProgress(progress != nil)
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reencode: %w", err)
	}

	spec := runner.Spec{
		Name:    cmd.Binary(),
		Args:    cmd.BuildArgs(),
		Timeout: c.opts.Timeout,
	}
	if progress != nil {
		progress.StartTime = time.Now()
		spec.OnStdoutLine = c.parser.LineHandler(progress, cb)
	}

	c.log.Debug().
		Int("inputs", len(inputs)).
		Bool("audio", cmd.HasAudio()).
		Int("silent_clips", len(cmd.SilentInputs())).
		Str("output", output).
		Msg("Re-encode")

	return c.runner.Run(ctx, spec), nil
}

// checkInputs verifies that every input is a readable regular file.
func checkInputs(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no inputs provided")
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("input %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("input %s is not a regular file", p)
		}
	}
	return nil
}
