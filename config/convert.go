package config

import (
	"fmt"
	"strconv"
	"strings"

	"reelmerge/ffprobe"
	"reelmerge/models"
	"reelmerge/orchestrator"
)

// ParseBitrate converts a bitrate string to kbit/s.
//
// Accepted forms: "128k", "128K", "1.5M", "128000" (bits per second).
func ParseBitrate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("bitrate cannot be empty")
	}

	mult := 0.001 // bare numbers are bits per second
	switch s[len(s)-1] {
	case 'k', 'K':
		mult, s = 1, s[:len(s)-1]
	case 'm', 'M':
		mult, s = 1000, s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	kbps := int(v*mult + 0.5)
	if kbps <= 0 {
		return 0, fmt.Errorf("bitrate %q is below 1 kbit/s", s)
	}
	return kbps, nil
}

// ToTarget builds the TargetProfile. The config must have passed Validate.
func (c *Config) ToTarget() (models.TargetProfile, error) {
	kbps, err := ParseBitrate(c.Target.Audio.Bitrate)
	if err != nil {
		return models.TargetProfile{}, fmt.Errorf("audio bitrate: %w", err)
	}
	return models.TargetProfile{
		Width:            c.Target.Width,
		Height:           c.Target.Height,
		FrameRate:        c.Target.FrameRate,
		AudioCodec:       c.Target.Audio.Codec,
		AudioBitrateKbps: kbps,
		AudioSampleRate:  c.Target.Audio.SampleRate,
		AudioChannels:    c.Target.Audio.Channels,
		PadColor:         c.Target.PadColor,
		VideoCodec:       c.Target.Video.Codec,
		CRF:              c.Target.Video.CRF,
		Preset:           c.Target.Video.Preset,
		PixelFormat:      c.Target.Video.PixelFormat,
	}, nil
}

// MergeOptions returns the orchestrator tuning.
func (c *Config) MergeOptions() orchestrator.Options {
	return orchestrator.Options{
		ChunkSize:         c.Merge.ChunkSize,
		CopySizeRatio:     c.Merge.CopySizeRatio,
		ReencodeSizeRatio: c.Merge.ReencodeSizeRatio,
		MinOutputBytes:    c.Merge.MinOutputBytes,
		WorkDir:           c.Merge.WorkDir,
		SkipUnprobeable:   c.Merge.SkipUnprobeable,
		Thresholds:        c.Thresholds,
		FFmpeg:            c.Tools.FFmpeg,
		Timeout:           c.Merge.Timeout,
	}
}

// ProberOptions returns the ffprobe settings.
func (c *Config) ProberOptions() ffprobe.Options {
	return ffprobe.Options{
		Binary:     c.Tools.FFprobe,
		Timeout:    c.Tools.ProbeTimeout,
		PacketScan: c.Merge.TimestampScanPackets,
	}
}
