package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("reelmerge", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Failed to parse flags %v: %v", args, err)
	}
	return fs
}

func TestMergeFromFlags_NoFlagsKeepsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge.ChunkSize = 5 // as if loaded from a file

	if err := cfg.MergeFromFlags(parseFlags(t)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Merge.ChunkSize != 5 {
		t.Errorf("Unset flag overwrote file value: chunk size %d", cfg.Merge.ChunkSize)
	}
}

func TestMergeFromFlags_AllFlags(t *testing.T) {
	fs := parseFlags(t,
		"--width", "1080",
		"--height", "1920",
		"--frame-rate", "24",
		"--pad-color", "white",
		"--audio-codec", "libopus",
		"--audio-bitrate", "96k",
		"--audio-sample-rate", "48000",
		"--audio-channels", "1",
		"--video-codec", "libx265",
		"--crf", "30",
		"--preset", "slow",
		"--pixel-format", "yuv420p10le",
		"--min-audio-bitrate", "2.5",
		"--fps-tolerance", "0.5",
		"--chunk-size", "16",
		"--timeout", "5m",
		"--work-dir", "/scratch",
		"--skip-unprobeable",
		"--scan-packets", "0",
		"--ffmpeg", "/opt/bin/ffmpeg",
		"--ffprobe", "/opt/bin/ffprobe",
		"--log-level", "debug",
		"--log-format", "json",
	)

	cfg := DefaultConfig()
	if err := cfg.MergeFromFlags(fs); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Verify all values
	if cfg.Target.Width != 1080 || cfg.Target.Height != 1920 {
		t.Errorf("Expected 1080x1920, got %dx%d", cfg.Target.Width, cfg.Target.Height)
	}
	if cfg.Target.FrameRate != 24 {
		t.Errorf("Expected frame rate 24, got %g", cfg.Target.FrameRate)
	}
	if cfg.Target.PadColor != "white" {
		t.Errorf("Expected pad color white, got %s", cfg.Target.PadColor)
	}
	if cfg.Target.Audio != (AudioConfig{Codec: "libopus", Bitrate: "96k", SampleRate: 48000, Channels: 1}) {
		t.Errorf("Unexpected audio config: %+v", cfg.Target.Audio)
	}
	if cfg.Target.Video != (VideoConfig{Codec: "libx265", CRF: 30, Preset: "slow", PixelFormat: "yuv420p10le"}) {
		t.Errorf("Unexpected video config: %+v", cfg.Target.Video)
	}
	if cfg.Thresholds.MinAudioBitrateKbps != 2.5 || cfg.Thresholds.FrameRateTolerance != 0.5 {
		t.Errorf("Unexpected thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Merge.ChunkSize != 16 {
		t.Errorf("Expected chunk size 16, got %d", cfg.Merge.ChunkSize)
	}
	if cfg.Merge.Timeout != 5*time.Minute {
		t.Errorf("Expected timeout 5m, got %s", cfg.Merge.Timeout)
	}
	if cfg.Merge.WorkDir != "/scratch" {
		t.Errorf("Expected work dir /scratch, got %s", cfg.Merge.WorkDir)
	}
	if !cfg.Merge.SkipUnprobeable {
		t.Error("Expected skip unprobeable to be true")
	}
	if cfg.Merge.TimestampScanPackets != 0 {
		t.Errorf("Expected packet scan disabled, got %d", cfg.Merge.TimestampScanPackets)
	}
	if cfg.Tools.FFmpeg != "/opt/bin/ffmpeg" || cfg.Tools.FFprobe != "/opt/bin/ffprobe" {
		t.Errorf("Unexpected tools: %+v", cfg.Tools)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
}

func TestMergeFromFlags_ExplicitDefaultStillApplies(t *testing.T) {
	// A flag set to its default value must still override the file.
	cfg := DefaultConfig()
	cfg.Target.Video.CRF = 35

	if err := cfg.MergeFromFlags(parseFlags(t, "--crf", "23")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Target.Video.CRF != 23 {
		t.Errorf("Expected CRF 23, got %d", cfg.Target.Video.CRF)
	}
}

func TestMergeFromFlags_InvalidValueFailsValidation(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.MergeFromFlags(parseFlags(t, "--chunk-size", "1")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected validation error for chunk size 1, got nil")
	}
}

func TestRegisterFlags_RejectsMalformedValues(t *testing.T) {
	fs := pflag.NewFlagSet("reelmerge", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	RegisterFlags(fs)

	if err := fs.Parse([]string{"--width", "wide"}); err == nil {
		t.Error("Expected parse error for non-numeric width")
	}
}

func TestPrintConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge.Timeout = 0

	var buf bytes.Buffer
	cfg.PrintConfig(&buf)
	out := buf.String()

	for _, want := range []string{
		"Effective Configuration",
		"720x1280 @ 30 fps",
		"Bitrate:      128k",
		"Chunk Size:   8",
		"Timeout:      none",
		"Work Dir:     (system temp)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}
