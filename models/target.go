package models

import (
	"fmt"
	"strings"
)

// TargetProfile is the normalization target. It is fixed for the lifetime of
// one merge request; every re-encoded output converges on these values.
type TargetProfile struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`

	AudioCodec       string `json:"audio_codec"`
	AudioBitrateKbps int    `json:"audio_bitrate_kbps"`
	AudioSampleRate  int    `json:"audio_sample_rate"`
	AudioChannels    int    `json:"audio_channels"`

	PadColor string `json:"pad_color"`

	// Video encoder settings used by re-encode attempts.
	VideoCodec  string `json:"video_codec"`
	CRF         int    `json:"crf"`
	Preset      string `json:"preset"`
	PixelFormat string `json:"pixel_format"`
}

// DefaultTargetProfile returns the vertical 720x1280 profile used for short-form uploads.
func DefaultTargetProfile() TargetProfile {
	return TargetProfile{
		Width:            720,
		Height:           1280,
		FrameRate:        30,
		AudioCodec:       "aac",
		AudioBitrateKbps: 128,
		AudioSampleRate:  44100,
		AudioChannels:    2,
		PadColor:         "black",
		VideoCodec:       "libx264",
		CRF:              23,
		Preset:           "veryfast",
		PixelFormat:      "yuv420p",
	}
}

// Validate checks the profile. Non-positive dimensions are a caller error.
func (t *TargetProfile) Validate() error {
	var errors []string

	if t.Width <= 0 || t.Height <= 0 {
		errors = append(errors, fmt.Sprintf("dimensions must be positive, got %dx%d", t.Width, t.Height))
	} else if t.Width%2 != 0 || t.Height%2 != 0 {
		errors = append(errors, fmt.Sprintf("dimensions must be even, got %dx%d", t.Width, t.Height))
	}
	if t.FrameRate <= 0 {
		errors = append(errors, "frame rate must be positive")
	}
	if strings.TrimSpace(t.AudioCodec) == "" {
		errors = append(errors, "audio codec is required")
	}
	if t.AudioBitrateKbps <= 0 {
		errors = append(errors, "audio bitrate must be positive")
	}
	if t.AudioSampleRate <= 0 {
		errors = append(errors, "audio sample rate must be positive")
	}
	if t.AudioChannels <= 0 || t.AudioChannels > 8 {
		errors = append(errors, "audio channels must be between 1 and 8")
	}
	if strings.TrimSpace(t.PadColor) == "" {
		errors = append(errors, "pad color is required")
	}
	if strings.TrimSpace(t.VideoCodec) == "" {
		errors = append(errors, "video codec is required")
	}
	if t.CRF < 0 || t.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid target profile: %s", strings.Join(errors, ", "))
	}
	return nil
}

// Resolution formats the target frame size as WIDTHxHEIGHT.
func (t *TargetProfile) Resolution() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}
