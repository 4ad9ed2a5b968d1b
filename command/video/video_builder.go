// Package video builds normalize-and-reencode merges: every clip passes
// through its own scale/pad/fps chain and the results are joined with the
// concat filter in a single ffmpeg invocation.
package video

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"reelmerge/command"
	"reelmerge/command/audio"
	"reelmerge/models"
	"reelmerge/planner"
)

const (
	videoOutLabel = "[outv]"
	audioOutLabel = "[outa]"
)

// Input is one clip and the normalization planned for it. VideoStream and
// AudioStream select the clip's streams by position ("v:N", "a:N").
type Input struct {
	Path        string
	Chain       *planner.FilterChain
	VideoStream int
	AudioStream int
}

// InputFor builds the Input for a probed clip.
func InputFor(clip *models.ClipDescriptor, chain *planner.FilterChain) Input {
	return Input{
		Path:        clip.Path,
		Chain:       chain,
		VideoStream: clip.VideoStream,
		AudioStream: clip.AudioStream,
	}
}

// VideoBuilder implements re-encode merges with per-clip normalization
type VideoBuilder struct {
	binary     string
	inputs     []Input
	outputPath string

	// Encoding settings
	codec       string
	crf         int
	preset      string
	pixelFormat string

	audio *audio.AudioBuilder

	// Advanced options
	progress  bool
	extraArgs []string
}

// NewVideoBuilder creates a new re-encode command builder
func NewVideoBuilder(outputPath string) *VideoBuilder {
	return &VideoBuilder{
		binary:      command.DefaultBinary,
		outputPath:  outputPath,
		codec:       "libx264",
		crf:         23,
		preset:      "veryfast",
		pixelFormat: "yuv420p",
		audio:       audio.NewAudioBuilder(),
		progress:    true,
	}
}

// FromTarget creates a builder encoding to target's codec settings
func FromTarget(outputPath string, target models.TargetProfile) *VideoBuilder {
	return NewVideoBuilder(outputPath).
		SetCodec(target.VideoCodec).
		SetCRF(target.CRF).
		SetPreset(target.Preset).
		SetPixelFormat(target.PixelFormat).
		SetAudio(audio.FromTarget(target))
}

// SetBinary sets the ffmpeg executable
func (v *VideoBuilder) SetBinary(binary string) *VideoBuilder {
	if binary != "" {
		v.binary = binary
	}
	return v
}

// AddInput appends a clip read from its first video and audio streams.
// Clips are concatenated in the order added.
func (v *VideoBuilder) AddInput(path string, chain *planner.FilterChain) *VideoBuilder {
	return v.AddSource(Input{Path: path, Chain: chain})
}

// AddSource appends a clip with explicit stream positions
func (v *VideoBuilder) AddSource(in Input) *VideoBuilder {
	v.inputs = append(v.inputs, in)
	return v
}

// SetCodec sets the video encoder (e.g., "libx264", "libx265")
func (v *VideoBuilder) SetCodec(codec string) *VideoBuilder {
	v.codec = codec
	return v
}

// SetCRF sets the Constant Rate Factor (0-51, lower is better quality)
func (v *VideoBuilder) SetCRF(crf int) *VideoBuilder {
	v.crf = crf
	return v
}

// SetPreset sets the encoding preset (ultrafast, superfast, veryfast, faster, fast, medium, slow, slower, veryslow)
func (v *VideoBuilder) SetPreset(preset string) *VideoBuilder {
	v.preset = preset
	return v
}

// SetPixelFormat sets the output pixel format (e.g., "yuv420p")
func (v *VideoBuilder) SetPixelFormat(pixfmt string) *VideoBuilder {
	v.pixelFormat = pixfmt
	return v
}

// SetAudio replaces the audio settings
func (v *VideoBuilder) SetAudio(a *audio.AudioBuilder) *VideoBuilder {
	if a != nil {
		v.audio = a
	}
	return v
}

// SetProgress toggles machine-readable progress on stdout
func (v *VideoBuilder) SetProgress(enabled bool) *VideoBuilder {
	v.progress = enabled
	return v
}

// AddExtraArgs adds custom output options
func (v *VideoBuilder) AddExtraArgs(args ...string) *VideoBuilder {
	v.extraArgs = append(v.extraArgs, args...)
	return v
}

// HasAudio reports whether the output carries an audio stream. It does when
// at least one clip has its own track; clips without one get silence.
func (v *VideoBuilder) HasAudio() bool {
	for _, in := range v.inputs {
		if in.Chain != nil && in.Chain.Audio.Action == planner.AudioReencode {
			return true
		}
	}
	return false
}

// SilentInputs returns the clips that receive generated silence
func (v *VideoBuilder) SilentInputs() []string {
	if !v.HasAudio() {
		return nil
	}
	var paths []string
	for _, in := range v.inputs {
		if in.Chain.Audio.Action == planner.AudioSilence {
			paths = append(paths, in.Path)
		}
	}
	return paths
}

// Validate checks that the command can be built
func (v *VideoBuilder) Validate() error {
	if len(v.inputs) == 0 {
		return errors.New("at least one input is required")
	}
	if v.outputPath == "" {
		return errors.New("output path is required")
	}
	if v.codec == "" {
		return errors.New("video codec is required")
	}
	if v.crf < 0 || v.crf > 51 {
		return fmt.Errorf("CRF must be between 0 and 51, got %d", v.crf)
	}

	out := filepath.Clean(v.outputPath)
	first := v.inputs[0].Chain
	for i, in := range v.inputs {
		if in.Chain == nil {
			return fmt.Errorf("input %d (%s) has no filter chain", i, in.Path)
		}
		if filepath.Clean(in.Path) == out {
			return fmt.Errorf("output %s is also an input", v.outputPath)
		}
		if in.Chain.OutputWidth != first.OutputWidth || in.Chain.OutputHeight != first.OutputHeight {
			return fmt.Errorf("input %d canvas %dx%d differs from %dx%d",
				i, in.Chain.OutputWidth, in.Chain.OutputHeight, first.OutputWidth, first.OutputHeight)
		}
	}

	if v.HasAudio() {
		if err := v.audio.Validate(); err != nil {
			return err
		}
		for i, in := range v.inputs {
			if in.Chain.Audio.Action == planner.AudioSilence && in.Chain.Audio.Duration <= 0 {
				return fmt.Errorf("input %d (%s) needs silence but has no duration", i, in.Path)
			}
		}
	}
	return nil
}

// FilterGraph renders the -filter_complex graph.
//
// Silence sources are numbered after the clip inputs, in clip order.
func (v *VideoBuilder) FilterGraph() string {
	withAudio := v.HasAudio()
	chains := make([]string, 0, 2*len(v.inputs)+1)
	var concatIn strings.Builder

	silence := len(v.inputs)
	for i, in := range v.inputs {
		chains = append(chains, fmt.Sprintf("[%d:v:%d]%s[v%d]", i, in.VideoStream, in.Chain.VideoFilter(), i))
		fmt.Fprintf(&concatIn, "[v%d]", i)

		if !withAudio {
			continue
		}
		src := fmt.Sprintf("[%d:a:%d]", i, in.AudioStream)
		if in.Chain.Audio.Action == planner.AudioSilence {
			src = fmt.Sprintf("[%d:a]", silence)
			silence++
		}
		chains = append(chains, fmt.Sprintf("%s%s[a%d]", src, in.Chain.AudioFilter(), i))
		fmt.Fprintf(&concatIn, "[a%d]", i)
	}

	if withAudio {
		chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=1:a=1%s%s",
			concatIn.String(), len(v.inputs), videoOutLabel, audioOutLabel))
	} else {
		chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=1:a=0%s",
			concatIn.String(), len(v.inputs), videoOutLabel))
	}
	return strings.Join(chains, ";")
}

// BuildArgs constructs the ffmpeg arguments for the re-encode
func (v *VideoBuilder) BuildArgs() []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}

	for _, in := range v.inputs {
		args = append(args, "-i", in.Path)
	}

	withAudio := v.HasAudio()
	if withAudio {
		for _, in := range v.inputs {
			if in.Chain.Audio.Action == planner.AudioSilence {
				args = append(args, v.audio.SilenceInput(in.Chain.Audio.Duration)...)
			}
		}
	}

	args = append(args, "-filter_complex", v.FilterGraph(), "-map", videoOutLabel)
	if withAudio {
		args = append(args, "-map", audioOutLabel)
	}

	args = append(args, "-c:v", v.codec, "-crf", fmt.Sprintf("%d", v.crf))
	if v.preset != "" {
		args = append(args, "-preset", v.preset)
	}
	if v.pixelFormat != "" {
		args = append(args, "-pix_fmt", v.pixelFormat)
	}

	if withAudio {
		args = append(args, v.audio.OutputArgs()...)
	} else {
		args = append(args, audio.DisabledArgs()...)
	}

	args = append(args, command.MuxerArgs(v.outputPath)...)
	if v.progress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, v.extraArgs...)
	args = append(args, v.outputPath)
	return args
}

// DryRun returns the command that would be executed without running it
func (v *VideoBuilder) DryRun() (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	return command.CommandLine(v.binary, v.BuildArgs()), nil
}

func (v *VideoBuilder) Binary() string { return v.binary }

// GetTaskType returns the task type for re-encode merges
func (v *VideoBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeReencode
}

// GetInputPaths returns the clip paths in concat order
func (v *VideoBuilder) GetInputPaths() []string {
	paths := make([]string, len(v.inputs))
	for i, in := range v.inputs {
		paths[i] = in.Path
	}
	return paths
}

func (v *VideoBuilder) GetOutputPath() string { return v.outputPath }
