// Package command provides the core Command interface for building FFmpeg
// merge invocations.
//
// Builders only produce argument lists. Execution goes through a
// runner.Runner owned by the caller, so a command can be previewed with
// DryRun and executed without either side knowing about the other.
package command

import (
	"path/filepath"
	"strings"

	"reelmerge/runner"
)

// DefaultBinary is the ffmpeg executable used when none is configured.
const DefaultBinary = "ffmpeg"

// TaskType represents the type of merge task.
type TaskType string

const (
	TaskTypeConcat   TaskType = "concat"   // concat demuxer, stream copy
	TaskTypeReencode TaskType = "reencode" // concat filter with per-clip normalization
)

// Command represents an FFmpeg command that can be built or previewed.
//
// Example usage:
//
//	cmd := concat.NewConcatBuilder("/tmp/list.txt", "/out/reel.mp4").
//		SetInputs(paths)
//
//	// Preview the command
//	line, _ := cmd.DryRun()
//
//	// Execute the command
//	res := r.Run(ctx, runner.Spec{
//		Name:    cmd.Binary(),
//		Args:    cmd.BuildArgs(),
//		Timeout: timeout,
//	})
type Command interface {
	// BuildArgs constructs and returns the FFmpeg command arguments as a slice.
	// The returned slice does not include the binary name.
	//
	// Example return value:
	//   ["-f", "concat", "-safe", "0", "-i", "list.txt", "-c", "copy", "out.mp4"]
	BuildArgs() []string

	// Validate reports whether the command can be built.
	Validate() error

	// DryRun returns the command line as a shell-quoted string without
	// executing it. Returns an error if the command cannot be built.
	DryRun() (string, error)

	// Binary returns the ffmpeg executable the command is meant for.
	Binary() string

	// GetTaskType returns the type of task (concat or reencode).
	GetTaskType() TaskType

	// GetInputPaths returns the source files in merge order.
	GetInputPaths() []string

	// GetOutputPath returns the output file path for this command.
	GetOutputPath() string
}

// CommandLine renders binary and args the way DryRun reports them.
func CommandLine(binary string, args []string) string {
	return runner.Spec{Name: binary, Args: args}.CommandLine()
}

// outputContainers are the extensions ffmpeg maps to a muxer that accepts
// both stream copy of common phone footage and the default H.264/AAC
// re-encode.
var outputContainers = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true,
	".mkv": true,
	".ts": true, ".mts": true, ".m2ts": true,
	".flv": true,
	".avi": true,
}

// SupportedOutput reports whether ffmpeg can pick a muxer for output from
// its extension alone. Temporary paths derived from output keep its
// extension, so an output without one cannot be staged.
func SupportedOutput(output string) bool {
	return outputContainers[strings.ToLower(filepath.Ext(output))]
}

// MuxerArgs returns output options that depend on the container chosen by
// the output extension. MP4-family outputs get the index moved to the front.
func MuxerArgs(output string) []string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp4", ".m4v", ".mov":
		return []string{"-movflags", "+faststart"}
	}
	return nil
}
