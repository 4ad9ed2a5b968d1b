// Package concat builds stream-copy merges through ffmpeg's concat demuxer.
package concat

import (
	"errors"
	"fmt"
	"path/filepath"

	"reelmerge/command"
)

// ConcatBuilder joins the files listed in a concat manifest without
// re-encoding. Inputs must share codec parameters; the caller decides that
// before choosing this command.
type ConcatBuilder struct {
	binary       string
	manifestPath string
	outputPath   string
	inputs       []string
	videoStream  int
	audioStream  int
	extraArgs    []string
}

// NewConcatBuilder creates a stream-copy command reading manifestPath
func NewConcatBuilder(manifestPath, outputPath string) *ConcatBuilder {
	return &ConcatBuilder{
		binary:       command.DefaultBinary,
		manifestPath: manifestPath,
		outputPath:   outputPath,
	}
}

// SetBinary sets the ffmpeg executable
func (c *ConcatBuilder) SetBinary(binary string) *ConcatBuilder {
	if binary != "" {
		c.binary = binary
	}
	return c
}

// SetInputs records the files the manifest lists, in order
func (c *ConcatBuilder) SetInputs(paths []string) *ConcatBuilder {
	c.inputs = append([]string(nil), paths...)
	return c
}

// SetStreams selects the video and audio streams by position ("v:N",
// "a:N"). The concat demuxer takes its stream layout from the first file,
// so every input must have the same layout.
func (c *ConcatBuilder) SetStreams(video, audio int) *ConcatBuilder {
	c.videoStream = video
	c.audioStream = audio
	return c
}

// AddExtraArgs adds output options placed before the output path
func (c *ConcatBuilder) AddExtraArgs(args ...string) *ConcatBuilder {
	c.extraArgs = append(c.extraArgs, args...)
	return c
}

// Validate checks that the command can be built
func (c *ConcatBuilder) Validate() error {
	if c.manifestPath == "" {
		return errors.New("concat manifest path is required")
	}
	if c.outputPath == "" {
		return errors.New("output path is required")
	}
	if c.videoStream < 0 || c.audioStream < 0 {
		return fmt.Errorf("invalid stream selection v:%d a:%d", c.videoStream, c.audioStream)
	}
	out := filepath.Clean(c.outputPath)
	for _, in := range c.inputs {
		if filepath.Clean(in) == out {
			return fmt.Errorf("output %s is also an input", c.outputPath)
		}
	}
	return nil
}

// BuildArgs constructs the ffmpeg arguments.
//
// Timestamps are regenerated on read and shifted to start at zero so that
// sources with a non-zero start do not leave a gap at the head.
func (c *ConcatBuilder) BuildArgs() []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat",
		"-safe", "0",
		"-fflags", "+genpts",
		"-i", c.manifestPath,
		"-map", fmt.Sprintf("0:v:%d", c.videoStream),
		"-map", fmt.Sprintf("0:a:%d?", c.audioStream),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
	}
	args = append(args, command.MuxerArgs(c.outputPath)...)
	args = append(args, c.extraArgs...)
	args = append(args, c.outputPath)
	return args
}

// DryRun returns the command that would be executed without running it
func (c *ConcatBuilder) DryRun() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	return command.CommandLine(c.binary, c.BuildArgs()), nil
}

func (c *ConcatBuilder) Binary() string { return c.binary }

// GetTaskType returns the task type for stream-copy merges
func (c *ConcatBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeConcat
}

func (c *ConcatBuilder) GetInputPaths() []string { return c.inputs }

func (c *ConcatBuilder) GetOutputPath() string { return c.outputPath }

// ManifestPath returns the concat list the command reads
func (c *ConcatBuilder) ManifestPath() string { return c.manifestPath }
