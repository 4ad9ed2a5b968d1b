package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "reelmerge.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config: %v", err)
	}
	return configPath
}

func TestLoadConfig_AllLayersPriority(t *testing.T) {
	configPath := writeConfig(t, `target:
  width: 1080
  height: 1920
  audio:
    bitrate: 192k
merge:
  chunk_size: 4
  timeout: 2m
`)

	// Flags override width and chunk size; the file supplies the rest.
	fs := parseFlags(t,
		"--config", configPath,
		"--width", "540",
		"--chunk-size", "12",
	)

	cfg, err := LoadConfig(fs)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// CLI flags win
	if cfg.Target.Width != 540 {
		t.Errorf("Expected width 540 from flag, got %d", cfg.Target.Width)
	}
	if cfg.Merge.ChunkSize != 12 {
		t.Errorf("Expected chunk size 12 from flag, got %d", cfg.Merge.ChunkSize)
	}

	// Config file beats defaults
	if cfg.Target.Height != 1920 {
		t.Errorf("Expected height 1920 from file, got %d", cfg.Target.Height)
	}
	if cfg.Target.Audio.Bitrate != "192k" {
		t.Errorf("Expected bitrate 192k from file, got %s", cfg.Target.Audio.Bitrate)
	}
	if cfg.Merge.Timeout != 2*time.Minute {
		t.Errorf("Expected timeout 2m from file, got %s", cfg.Merge.Timeout)
	}

	// Defaults fill the gaps
	if cfg.Target.Video.Codec != "libx264" {
		t.Errorf("Expected default video codec, got %s", cfg.Target.Video.Codec)
	}
	if cfg.Tools.FFprobe != "ffprobe" {
		t.Errorf("Expected default ffprobe, got %s", cfg.Tools.FFprobe)
	}
}

func TestLoadConfig_InvalidFileValues(t *testing.T) {
	configPath := writeConfig(t, "target:\n  width: 721\n")

	_, err := LoadConfig(parseFlags(t, "--config", configPath))
	if err == nil {
		t.Fatal("Expected validation error for odd width")
	}
	if !strings.Contains(err.Error(), "must be even") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfig_FlagFixesInvalidFile(t *testing.T) {
	configPath := writeConfig(t, "target:\n  width: 721\n")

	cfg, err := LoadConfig(parseFlags(t, "--config", configPath, "--width", "720"))
	if err != nil {
		t.Fatalf("Expected flag to correct the file value, got: %v", err)
	}
	if cfg.Target.Width != 720 {
		t.Errorf("Expected width 720, got %d", cfg.Target.Width)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(parseFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "failed to load config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfig_SavedFileLoadsBack(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "saved.yaml")
	want := DefaultConfig()
	want.Target.Width = 1080
	want.Target.Height = 1920
	want.Merge.SkipUnprobeable = true
	if err := SaveConfigFile(want, configPath); err != nil {
		t.Fatalf("SaveConfigFile failed: %v", err)
	}

	got, err := LoadConfig(parseFlags(t, "--config", configPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *got != *want {
		t.Errorf("Loaded config differs:\n got  %+v\n want %+v", got, want)
	}
}
