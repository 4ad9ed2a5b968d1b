// Package models provides core data structures for the merge pipeline.
package models

import (
	"fmt"
	"strings"
)

// TimestampInfo summarises the timestamps observed at the start of the
// primary video stream.
type TimestampInfo struct {
	StartTime     float64 `json:"start_time"`     // stream start_time in seconds
	NegativeStart bool    `json:"negative_start"` // a pts/dts or start_time below zero
	NonMonotonic  bool    `json:"non_monotonic"`  // dts went backwards within the scanned packets
	ScanFailed    bool    `json:"scan_failed"`    // packet scan could not be completed
}

// Anomalous reports whether the timestamps need remediation.
func (ti TimestampInfo) Anomalous() bool {
	return ti.NegativeStart || ti.NonMonotonic || ti.ScanFailed
}

// ClipDescriptor represents one source video file.
//
// The path is owned by the caller and only read by the pipeline. Width,
// Height and FrameRate are populated by a successful probe; a descriptor
// without them is unprobed and must not reach the classifier or planner.
// A probed descriptor is not mutated afterwards except for Defects, which
// the classifier sets exactly once.
type ClipDescriptor struct {
	Path string `json:"path"`
	Size int64  `json:"size"` // bytes on disk at probe time

	// Container/video. VideoStream is the primary video stream's position
	// among the file's video streams, the N of ffmpeg's "v:N".
	Container         string   `json:"container"` // ffprobe format_name, e.g. "mov,mp4,m4a,3gp,3g2,mj2"
	VideoStream       int      `json:"video_stream"`
	VideoCodec        string   `json:"video_codec"`
	VideoProfile      string   `json:"video_profile,omitempty"` // e.g. "High", "Constrained Baseline"
	VideoLevel        int      `json:"video_level,omitempty"`   // e.g. 40 for 4.0
	PixelFormat       string   `json:"pixel_format"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	SampleAspectRatio string   `json:"sample_aspect_ratio,omitempty"`
	FrameRate         Rational `json:"frame_rate"`
	TimeBase          string   `json:"time_base,omitempty"`
	Duration          float64  `json:"duration"` // seconds

	// Audio. AudioBitrate is nil when there is no audio stream or when the
	// container does not report a bitrate for it.
	HasAudio        bool   `json:"has_audio"`
	AudioStream     int    `json:"audio_stream"` // N of "a:N"
	AudioCodec      string `json:"audio_codec,omitempty"`
	AudioProfile    string `json:"audio_profile,omitempty"` // e.g. "LC", "HE-AAC"
	AudioSampleRate int    `json:"audio_sample_rate,omitempty"`
	AudioChannels   int    `json:"audio_channels,omitempty"`
	AudioBitrate    *int64 `json:"audio_bitrate,omitempty"` // bits per second

	Timestamps TimestampInfo `json:"timestamps"`
	Defects    DefectSet     `json:"defects"`
}

// IsProbed reports whether the probe-populated attributes are present.
func (c *ClipDescriptor) IsProbed() bool {
	return c != nil && c.Width > 0 && c.Height > 0 && !c.FrameRate.IsZero()
}

// AudioBitrateKbps returns the audio bitrate in kbit/s and whether it is known.
func (c *ClipDescriptor) AudioBitrateKbps() (float64, bool) {
	if !c.HasAudio || c.AudioBitrate == nil {
		return 0, false
	}
	return float64(*c.AudioBitrate) / 1000, true
}

// Resolution formats the frame size as WIDTHxHEIGHT.
func (c *ClipDescriptor) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Validate checks that a descriptor is usable by the planner.
//
// Returns an error if:
//   - Path is empty or whitespace-only
//   - the descriptor has not been probed
//   - Duration is negative
func (c *ClipDescriptor) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !c.IsProbed() {
		return fmt.Errorf("clip %s has not been probed", c.Path)
	}
	if c.Duration < 0 {
		return fmt.Errorf("clip %s has negative duration %.3f", c.Path, c.Duration)
	}
	return nil
}

// Int64Ptr is a small helper for optional bitrates.
func Int64Ptr(v int64) *int64 {
	return &v
}
