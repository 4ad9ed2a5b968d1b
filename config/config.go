package config

import (
	"time"

	"reelmerge/classifier"
)

// Config holds all reelmerge configuration options
type Config struct {
	// Normalization target for re-encoded output
	Target TargetConfig `yaml:"target"`

	// Defect classification limits
	Thresholds classifier.Thresholds `yaml:"thresholds"`

	// Orchestration settings
	Merge MergeConfig `yaml:"merge"`

	// External binaries
	Tools ToolsConfig `yaml:"tools"`

	// Logging
	Log LogConfig `yaml:"log"`
}

// TargetConfig holds the output canvas and encoder settings
type TargetConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float64 `yaml:"frame_rate"`
	PadColor  string  `yaml:"pad_color"` // ffmpeg colour name or 0xRRGGBB

	Audio AudioConfig `yaml:"audio"`
	Video VideoConfig `yaml:"video"`
}

// AudioConfig holds audio encoding settings
type AudioConfig struct {
	Codec      string `yaml:"codec"`       // e.g., "aac", "libopus"
	Bitrate    string `yaml:"bitrate"`     // e.g., "128k", "192k"
	SampleRate int    `yaml:"sample_rate"` // e.g., 44100, 48000
	Channels   int    `yaml:"channels"`    // 1 (mono), 2 (stereo), 6 (5.1)
}

// VideoConfig holds video encoding settings
type VideoConfig struct {
	Codec       string `yaml:"codec"`        // e.g., "libx264", "libx265"
	CRF         int    `yaml:"crf"`          // Constant Rate Factor (0-51, lower = better quality)
	Preset      string `yaml:"preset"`       // e.g., "ultrafast", "veryfast", "medium"
	PixelFormat string `yaml:"pixel_format"` // e.g., "yuv420p"
}

// MergeConfig holds orchestration settings
type MergeConfig struct {
	ChunkSize int           `yaml:"chunk_size"` // clips per merge pass
	Timeout   time.Duration `yaml:"timeout"`    // per ffmpeg invocation

	CopySizeRatio     float64 `yaml:"copy_size_ratio"`     // copy output must reach this fraction of the inputs
	ReencodeSizeRatio float64 `yaml:"reencode_size_ratio"` // re-encode sanity floor as a fraction of the inputs
	MinOutputBytes    int64   `yaml:"min_output_bytes"`    // absolute re-encode sanity floor

	WorkDir              string `yaml:"work_dir"`               // empty = system temp dir
	SkipUnprobeable      bool   `yaml:"skip_unprobeable"`       // exclude clips that fail to probe
	TimestampScanPackets int    `yaml:"timestamp_scan_packets"` // 0 disables the packet scan
}

// ToolsConfig names the external binaries
type ToolsConfig struct {
	FFmpeg       string        `yaml:"ffmpeg"`
	FFprobe      string        `yaml:"ffprobe"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		// Vertical short-form canvas
		Target: TargetConfig{
			Width:     720,
			Height:    1280,
			FrameRate: 30,
			PadColor:  "black",
			Audio: AudioConfig{
				Codec:      "aac",
				Bitrate:    "128k",
				SampleRate: 44100,
				Channels:   2,
			},
			Video: VideoConfig{
				Codec:       "libx264",
				CRF:         23,
				Preset:      "veryfast",
				PixelFormat: "yuv420p",
			},
		},

		Thresholds: classifier.DefaultThresholds(),

		Merge: MergeConfig{
			ChunkSize:            8,
			Timeout:              10 * time.Minute,
			CopySizeRatio:        0.80,
			ReencodeSizeRatio:    0.01,
			MinOutputBytes:       1024,
			WorkDir:              "",
			SkipUnprobeable:      false,
			TimestampScanPackets: 32,
		},

		Tools: ToolsConfig{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			ProbeTimeout: 30 * time.Second,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	return &copy
}

// LogLevelValues returns valid log levels
func LogLevelValues() []string {
	return []string{"trace", "debug", "info", "warn", "error"}
}

// LogFormatValues returns valid log formats
func LogFormatValues() []string {
	return []string{"console", "json"}
}

func isOneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}
