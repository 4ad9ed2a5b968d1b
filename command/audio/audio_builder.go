package audio

import (
	"fmt"
	"strings"

	"reelmerge/internal/timeutil"
	"reelmerge/models"
	"reelmerge/planner"
)

// AudioBuilder produces the audio half of a re-encode invocation: encoder
// options for the output and lavfi silence sources for clips that carry no
// audio track.
type AudioBuilder struct {
	codec       string
	bitrateKbps int
	sampleRate  int
	channels    int
}

// NewAudioBuilder creates a builder with AAC stereo defaults
func NewAudioBuilder() *AudioBuilder {
	return &AudioBuilder{
		codec:       "aac",
		bitrateKbps: 128,
		sampleRate:  44100,
		channels:    2,
	}
}

// FromTarget creates a builder matching the audio fields of target
func FromTarget(target models.TargetProfile) *AudioBuilder {
	return NewAudioBuilder().
		SetCodec(target.AudioCodec).
		SetBitrate(target.AudioBitrateKbps).
		SetSampleRate(target.AudioSampleRate).
		SetChannels(target.AudioChannels)
}

// SetCodec sets the audio encoder (e.g., "aac", "libopus")
func (a *AudioBuilder) SetCodec(codec string) *AudioBuilder {
	a.codec = codec
	return a
}

// SetBitrate sets the audio bitrate in kbit/s. 0 leaves the encoder default.
func (a *AudioBuilder) SetBitrate(kbps int) *AudioBuilder {
	a.bitrateKbps = kbps
	return a
}

// SetSampleRate sets the output sample rate (e.g., 44100, 48000)
func (a *AudioBuilder) SetSampleRate(rate int) *AudioBuilder {
	a.sampleRate = rate
	return a
}

// SetChannels sets the number of output channels (1=mono, 2=stereo)
func (a *AudioBuilder) SetChannels(channels int) *AudioBuilder {
	a.channels = channels
	return a
}

// Validate checks that the settings can be rendered
func (a *AudioBuilder) Validate() error {
	var errs []string
	if a.codec == "" {
		errs = append(errs, "audio codec is required")
	}
	if a.bitrateKbps < 0 {
		errs = append(errs, "audio bitrate must not be negative")
	}
	if a.sampleRate <= 0 {
		errs = append(errs, "audio sample rate must be positive")
	}
	if a.channels < 1 || a.channels > 8 {
		errs = append(errs, "audio channels must be between 1 and 8")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid audio settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OutputArgs returns the encoder options for the output file
//
// Example: ["-c:a", "aac", "-b:a", "128k", "-ar", "44100", "-ac", "2"]
func (a *AudioBuilder) OutputArgs() []string {
	args := []string{"-c:a", a.codec}
	if a.bitrateKbps > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", a.bitrateKbps))
	}
	args = append(args,
		"-ar", fmt.Sprintf("%d", a.sampleRate),
		"-ac", fmt.Sprintf("%d", a.channels),
	)
	return args
}

// SilenceSource returns the lavfi source expression for generated silence
func (a *AudioBuilder) SilenceSource() string {
	return fmt.Sprintf("anullsrc=r=%d:cl=%s", a.sampleRate, planner.ChannelLayout(a.channels))
}

// SilenceInput returns the input options for duration seconds of silence.
// The duration bound is required; anullsrc never ends on its own.
func (a *AudioBuilder) SilenceInput(duration float64) []string {
	return []string{
		"-f", "lavfi",
		"-t", timeutil.FormatDecimal(duration),
		"-i", a.SilenceSource(),
	}
}

// DisabledArgs drops audio from the output
func DisabledArgs() []string {
	return []string{"-an"}
}
