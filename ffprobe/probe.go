package ffprobe

// Package ffprobe provides utilities for extracting metadata from media files
// using the ffprobe command-line tool.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	CodecLongName string            `json:"codec_long_name"`
	Profile       string            `json:"profile,omitempty"`
	Level         int               `json:"level,omitempty"`
	PixFmt        string            `json:"pix_fmt,omitempty"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	SampleAspect  string            `json:"sample_aspect_ratio,omitempty"`
	RFrameRate    string            `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string            `json:"avg_frame_rate,omitempty"`
	TimeBase      string            `json:"time_base,omitempty"`
	SampleRate    string            `json:"sample_rate,omitempty"`
	Channels      int               `json:"channels,omitempty"`
	BitRate       string            `json:"bit_rate,omitempty"`
	StartTime     string            `json:"start_time,omitempty"`
	Duration      string            `json:"duration,omitempty"`
	Disposition   Disposition       `json:"disposition"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// Disposition holds the stream flags ffprobe reports. Only the ones the
// pipeline acts on are decoded.
type Disposition struct {
	Default     int `json:"default"`
	AttachedPic int `json:"attached_pic"`
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	StartTime      string `json:"start_time"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the metadata ffprobe reports for a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// ParseJSON decodes the output of
// `ffprobe -print_format json -show_format -show_streams`.
func ParseJSON(data []byte) (*ProbeResult, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("empty ffprobe output")
	}
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// GetDuration returns the duration of the media file in seconds.
//
// The container duration is preferred; when it is missing (raw streams,
// some fragmented files) the primary video stream's duration is used.
func (pr *ProbeResult) GetDuration() (float64, error) {
	raw := pr.Format.Duration
	if raw == "" || raw == "N/A" {
		if v := pr.PrimaryVideo(); v != nil {
			raw = v.Duration
		}
	}
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", raw, err)
	}

	return duration, nil
}

// GetVideoStreams returns all video streams from the media file.
//
// Attached pictures (cover art) are reported by ffprobe as video streams
// with codec mjpeg/png; they are excluded.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "video" && !isCoverArt(stream) {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// StreamOrdinal returns the position of s among the file's streams of the
// same codec type, counting attached pictures. This is the N in ffmpeg's
// "v:N" and "a:N" stream specifiers. It returns -1 when s is not in pr.
func (pr *ProbeResult) StreamOrdinal(s *Stream) int {
	if s == nil {
		return -1
	}
	n := 0
	for _, stream := range pr.Streams {
		if stream.CodecType != s.CodecType {
			continue
		}
		if stream.Index == s.Index {
			return n
		}
		n++
	}
	return -1
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	var audioStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "audio" {
			audioStreams = append(audioStreams, stream)
		}
	}
	return audioStreams
}

// PrimaryVideo returns the first video stream or nil.
func (pr *ProbeResult) PrimaryVideo() *Stream {
	v := pr.GetVideoStreams()
	if len(v) == 0 {
		return nil
	}
	return &v[0]
}

// PrimaryAudio returns the first audio stream or nil.
func (pr *ProbeResult) PrimaryAudio() *Stream {
	a := pr.GetAudioStreams()
	if len(a) == 0 {
		return nil
	}
	return &a[0]
}

// Bitrate returns the stream bitrate in bits per second.
//
// Matroska muxers usually leave bit_rate empty and record the value in a
// "BPS" (or "BPS-eng") tag instead. ok is false when neither is present.
func (s *Stream) Bitrate() (bps int64, ok bool) {
	candidates := []string{s.BitRate}
	for k, v := range s.Tags {
		if strings.EqualFold(k, "BPS") || strings.HasPrefix(strings.ToUpper(k), "BPS-") {
			candidates = append(candidates, v)
		}
	}
	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// StartSeconds parses start_time; ok is false when it is absent.
func (s *Stream) StartSeconds() (float64, bool) {
	if s.StartTime == "" || s.StartTime == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s.StartTime, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isCoverArt(s Stream) bool {
	if s.Disposition.AttachedPic == 1 {
		return true
	}
	// Older ffprobe builds omit the disposition block.
	return (s.CodecName == "mjpeg" || s.CodecName == "png") && (s.AvgFrameRate == "0/0" || s.AvgFrameRate == "")
}
