package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ConfigFlag names the flag holding an explicit config file path.
const ConfigFlag = "config"

// RegisterFlags adds every configuration override to fs. Help text shows the
// built-in defaults; only flags the user actually sets override the file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String(ConfigFlag, "", "Path to config file (default: search ./reelmerge.yaml, ~/.reelmerge/config.yaml, /etc/reelmerge/config.yaml)")

	// Target canvas
	fs.Int("width", d.Target.Width, "Output width in pixels (even)")
	fs.Int("height", d.Target.Height, "Output height in pixels (even)")
	fs.Float64("frame-rate", d.Target.FrameRate, "Output frame rate")
	fs.String("pad-color", d.Target.PadColor, "Letterbox colour, ffmpeg name or 0xRRGGBB")

	// Audio settings
	fs.String("audio-codec", d.Target.Audio.Codec, "Audio codec for re-encoded output")
	fs.String("audio-bitrate", d.Target.Audio.Bitrate, "Audio bitrate, e.g. 128k")
	fs.Int("audio-sample-rate", d.Target.Audio.SampleRate, "Audio sample rate in Hz")
	fs.Int("audio-channels", d.Target.Audio.Channels, "Number of audio channels (1-8)")

	// Video settings
	fs.String("video-codec", d.Target.Video.Codec, "Video codec for re-encoded output")
	fs.Int("crf", d.Target.Video.CRF, "Video CRF: 0-51, lower = better quality")
	fs.String("preset", d.Target.Video.Preset, "Encoder preset: ultrafast, veryfast, medium, slow")
	fs.String("pixel-format", d.Target.Video.PixelFormat, "Output pixel format")

	// Classification
	fs.Float64("min-audio-bitrate", d.Thresholds.MinAudioBitrateKbps, "Audio below this kbit/s is treated as silent")
	fs.Float64("fps-tolerance", d.Thresholds.FrameRateTolerance, "Frame rate difference treated as a mismatch")

	// Orchestration
	fs.Int("chunk-size", d.Merge.ChunkSize, "Clips merged per ffmpeg pass (2-256)")
	fs.Duration("timeout", d.Merge.Timeout, "Per-invocation ffmpeg timeout (0 = none)")
	fs.String("work-dir", d.Merge.WorkDir, "Directory for intermediate files (default: system temp)")
	fs.Bool("skip-unprobeable", d.Merge.SkipUnprobeable, "Skip clips ffprobe cannot read instead of aborting")
	fs.Int("scan-packets", d.Merge.TimestampScanPackets, "Packets read per clip to detect broken timestamps (0 = off)")

	// Tools
	fs.String("ffmpeg", d.Tools.FFmpeg, "ffmpeg binary")
	fs.String("ffprobe", d.Tools.FFprobe, "ffprobe binary")

	// Logging
	fs.String("log-level", d.Log.Level, "Log level: "+strings.Join(LogLevelValues(), ", "))
	fs.String("log-format", d.Log.Format, "Log format: "+strings.Join(LogFormatValues(), ", "))
}

// MergeFromFlags overrides config values with the flags explicitly set on fs.
// fs must already be parsed.
func (c *Config) MergeFromFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !fs.Changed(name) {
			return
		}
		if e := apply(); e != nil {
			err = fmt.Errorf("flag --%s: %w", name, e)
		}
	}

	set("width", func() (e error) { c.Target.Width, e = fs.GetInt("width"); return })
	set("height", func() (e error) { c.Target.Height, e = fs.GetInt("height"); return })
	set("frame-rate", func() (e error) { c.Target.FrameRate, e = fs.GetFloat64("frame-rate"); return })
	set("pad-color", func() (e error) { c.Target.PadColor, e = fs.GetString("pad-color"); return })

	set("audio-codec", func() (e error) { c.Target.Audio.Codec, e = fs.GetString("audio-codec"); return })
	set("audio-bitrate", func() (e error) { c.Target.Audio.Bitrate, e = fs.GetString("audio-bitrate"); return })
	set("audio-sample-rate", func() (e error) { c.Target.Audio.SampleRate, e = fs.GetInt("audio-sample-rate"); return })
	set("audio-channels", func() (e error) { c.Target.Audio.Channels, e = fs.GetInt("audio-channels"); return })

	set("video-codec", func() (e error) { c.Target.Video.Codec, e = fs.GetString("video-codec"); return })
	set("crf", func() (e error) { c.Target.Video.CRF, e = fs.GetInt("crf"); return })
	set("preset", func() (e error) { c.Target.Video.Preset, e = fs.GetString("preset"); return })
	set("pixel-format", func() (e error) { c.Target.Video.PixelFormat, e = fs.GetString("pixel-format"); return })

	set("min-audio-bitrate", func() (e error) {
		c.Thresholds.MinAudioBitrateKbps, e = fs.GetFloat64("min-audio-bitrate")
		return
	})
	set("fps-tolerance", func() (e error) { c.Thresholds.FrameRateTolerance, e = fs.GetFloat64("fps-tolerance"); return })

	set("chunk-size", func() (e error) { c.Merge.ChunkSize, e = fs.GetInt("chunk-size"); return })
	set("timeout", func() (e error) { c.Merge.Timeout, e = fs.GetDuration("timeout"); return })
	set("work-dir", func() (e error) { c.Merge.WorkDir, e = fs.GetString("work-dir"); return })
	set("skip-unprobeable", func() (e error) { c.Merge.SkipUnprobeable, e = fs.GetBool("skip-unprobeable"); return })
	set("scan-packets", func() (e error) { c.Merge.TimestampScanPackets, e = fs.GetInt("scan-packets"); return })

	set("ffmpeg", func() (e error) { c.Tools.FFmpeg, e = fs.GetString("ffmpeg"); return })
	set("ffprobe", func() (e error) { c.Tools.FFprobe, e = fs.GetString("ffprobe"); return })

	set("log-level", func() (e error) { c.Log.Level, e = fs.GetString("log-level"); return })
	set("log-format", func() (e error) { c.Log.Format, e = fs.GetString("log-format"); return })

	return err
}

// PrintConfig writes the effective configuration
func (c *Config) PrintConfig(w io.Writer) {
	workDir := c.Merge.WorkDir
	if workDir == "" {
		workDir = "(system temp)"
	}
	timeout := c.Merge.Timeout.String()
	if c.Merge.Timeout == 0 {
		timeout = "none"
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                 Effective Configuration                  ")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Canvas:         %dx%d @ %g fps\n", c.Target.Width, c.Target.Height, c.Target.FrameRate)
	fmt.Fprintf(w, "Pad Color:      %s\n", c.Target.PadColor)

	fmt.Fprintln(w, "\nAudio Settings:")
	fmt.Fprintf(w, "  Codec:        %s\n", c.Target.Audio.Codec)
	fmt.Fprintf(w, "  Bitrate:      %s\n", c.Target.Audio.Bitrate)
	fmt.Fprintf(w, "  Sample Rate:  %d Hz\n", c.Target.Audio.SampleRate)
	fmt.Fprintf(w, "  Channels:     %d\n", c.Target.Audio.Channels)

	fmt.Fprintln(w, "\nVideo Settings:")
	fmt.Fprintf(w, "  Codec:        %s\n", c.Target.Video.Codec)
	fmt.Fprintf(w, "  CRF:          %d\n", c.Target.Video.CRF)
	fmt.Fprintf(w, "  Preset:       %s\n", c.Target.Video.Preset)
	fmt.Fprintf(w, "  Pixel Format: %s\n", c.Target.Video.PixelFormat)

	fmt.Fprintln(w, "\nMerge Settings:")
	fmt.Fprintf(w, "  Chunk Size:   %d\n", c.Merge.ChunkSize)
	fmt.Fprintf(w, "  Timeout:      %s\n", timeout)
	fmt.Fprintf(w, "  Work Dir:     %s\n", workDir)
	fmt.Fprintf(w, "  Skip Bad:     %v\n", c.Merge.SkipUnprobeable)
	fmt.Fprintf(w, "  Min Audio:    %g kbit/s\n", c.Thresholds.MinAudioBitrateKbps)

	fmt.Fprintln(w, "\nTools:")
	fmt.Fprintf(w, "  ffmpeg:       %s\n", c.Tools.FFmpeg)
	fmt.Fprintf(w, "  ffprobe:      %s\n", c.Tools.FFprobe)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}
