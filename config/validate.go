package config

import (
	"fmt"
	"strings"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	// Validate target
	if err := c.Target.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("target: %v", err))
	}

	// Validate thresholds
	if c.Thresholds.MinAudioBitrateKbps < 0 {
		errors = append(errors, "thresholds: min audio bitrate cannot be negative")
	}
	if c.Thresholds.FrameRateTolerance <= 0 {
		errors = append(errors, "thresholds: frame rate tolerance must be positive")
	}

	// Validate merge settings
	if err := c.Merge.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("merge: %v", err))
	}

	// Validate tools
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		errors = append(errors, "tools: ffmpeg binary is required")
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		errors = append(errors, "tools: ffprobe binary is required")
	}
	if c.Tools.ProbeTimeout < 0 {
		errors = append(errors, "tools: probe timeout cannot be negative")
	}

	// Validate logging
	if !isOneOf(c.Log.Level, LogLevelValues()) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			c.Log.Level, strings.Join(LogLevelValues(), ", ")))
	}
	if !isOneOf(c.Log.Format, LogFormatValues()) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be one of: %s",
			c.Log.Format, strings.Join(LogFormatValues(), ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks the output canvas and encoder settings
func (tc *TargetConfig) Validate() error {
	var errors []string

	if tc.Width <= 0 || tc.Height <= 0 {
		errors = append(errors, "width and height must be positive")
	} else if tc.Width%2 != 0 || tc.Height%2 != 0 {
		errors = append(errors, "width and height must be even")
	}

	if tc.FrameRate <= 0 {
		errors = append(errors, "frame rate must be positive")
	}

	if strings.TrimSpace(tc.PadColor) == "" {
		errors = append(errors, "pad color is required")
	}

	if err := tc.Audio.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("audio: %v", err))
	}
	if err := tc.Video.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("video: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

// Validate checks if audio configuration is valid
func (ac *AudioConfig) Validate() error {
	var errors []string

	if ac.Codec == "" {
		errors = append(errors, "codec is required")
	}

	if ac.Bitrate == "" {
		errors = append(errors, "bitrate is required")
	} else if _, err := ParseBitrate(ac.Bitrate); err != nil {
		errors = append(errors, err.Error())
	}

	if ac.SampleRate <= 0 {
		errors = append(errors, "sample rate must be positive")
	}

	if ac.Channels <= 0 {
		errors = append(errors, "channels must be positive")
	} else if ac.Channels > 8 {
		errors = append(errors, "channels cannot exceed 8")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if video configuration is valid
func (vc *VideoConfig) Validate() error {
	var errors []string

	if vc.Codec == "" {
		errors = append(errors, "codec is required")
	}

	if vc.CRF < 0 || vc.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}

	if vc.Preset == "" {
		errors = append(errors, "preset is required")
	}

	if vc.PixelFormat == "" {
		errors = append(errors, "pixel format is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks the orchestration settings
func (mc *MergeConfig) Validate() error {
	var errors []string

	if mc.ChunkSize < 2 || mc.ChunkSize > 256 {
		errors = append(errors, "chunk size must be between 2 and 256")
	}

	if mc.Timeout < 0 {
		errors = append(errors, "timeout cannot be negative (use 0 for none)")
	}

	if mc.CopySizeRatio <= 0 || mc.CopySizeRatio > 1 {
		errors = append(errors, "copy size ratio must be in (0, 1]")
	}
	if mc.ReencodeSizeRatio <= 0 || mc.ReencodeSizeRatio > 1 {
		errors = append(errors, "re-encode size ratio must be in (0, 1]")
	}
	if mc.MinOutputBytes <= 0 {
		errors = append(errors, "min output bytes must be positive")
	}

	if mc.TimestampScanPackets < 0 {
		errors = append(errors, "timestamp scan packets cannot be negative (use 0 to disable)")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}
