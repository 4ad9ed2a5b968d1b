package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"reelmerge/models"
	"reelmerge/orchestrator"
)

func init() {
	color.NoColor = true
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2*1024*1024))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "01:05", FormatDuration(65.9))
}

func TestProbeReport(t *testing.T) {
	clip := &models.ClipDescriptor{
		Path:            "/clips/a.mp4",
		Size:            2048,
		VideoCodec:      "h264",
		PixelFormat:     "yuv420p",
		Width:           1920,
		Height:          1080,
		FrameRate:       models.Rational{Num: 30, Den: 1},
		Duration:        12,
		HasAudio:        true,
		AudioCodec:      "aac",
		AudioSampleRate: 44100,
		AudioChannels:   2,
		AudioBitrate:    models.Int64Ptr(128000),
		Defects:         models.NewDefectSet(models.DefectResolutionMismatch),
	}

	out := ProbeReport([]*models.ClipDescriptor{clip}, map[string]error{
		"/clips/b.mp4": errors.New("no video stream"),
	})

	assert.Contains(t, out, "a.mp4")
	assert.Contains(t, out, "1920x1080")
	assert.Contains(t, out, "aac 44100 Hz 2ch 128 kbps")
	assert.Contains(t, out, "00:12")
	assert.Contains(t, out, models.DefectResolutionMismatch.String())
	assert.Contains(t, out, "b.mp4")
	assert.Contains(t, out, "no video stream")
}

func TestPreviewReport(t *testing.T) {
	p := &orchestrator.Preview{
		Merges:  1,
		Skipped: []string{"/clips/bad.mp4"},
		Batches: []orchestrator.BatchPreview{{
			Batch:    "0",
			Inputs:   []string{"/clips/a.mp4", "/clips/b.mp4"},
			Strategy: models.StrategyStreamCopy,
			Reason:   "all clips compatible",
			Output:   "/out/final.mp4",
			Command:  "ffmpeg -f concat -i list.txt",
			Fallback: "ffmpeg -filter_complex graph",
		}},
	}

	out := PreviewReport(p)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Batch 0")
	assert.Contains(t, out, string(models.StrategyStreamCopy))
	assert.Contains(t, out, "bad.mp4")
	assert.Contains(t, out, "ffmpeg -f concat -i list.txt")
	assert.Contains(t, out, "On copy failure:")
}

func TestResultReport(t *testing.T) {
	ok := &models.MergeResult{
		Success:     true,
		OutputPath:  "/out/final.mp4",
		Strategy:    models.StrategyReencode,
		Inputs:      3,
		SilentClips: []string{"/clips/quiet.mp4"},
		Elapsed:     1500 * time.Millisecond,
	}
	out := ResultReport(ok)
	assert.Contains(t, out, "Merge succeeded")
	assert.Contains(t, out, "/out/final.mp4")
	assert.Contains(t, out, "quiet.mp4")
	assert.Contains(t, out, "1.5s")

	failed := &models.MergeResult{Inputs: 2, Err: errors.New("encoder exploded")}
	out = ResultReport(failed)
	assert.Contains(t, out, "Merge failed")
	assert.Contains(t, out, "Strategy: none")
	assert.Contains(t, out, "encoder exploded")
}

func TestStatusPrintsEvents(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatus(&buf, false)
	obs := s.Observer()

	obs.OnState("request", orchestrator.StateProbed)
	obs.OnState("0", orchestrator.StateAttemptingCopy)
	obs.OnAttempt(models.Attempt{
		Batch:    "0",
		Strategy: models.StrategyStreamCopy,
		Outcome:  models.AttemptFallbackNeeded,
		Reason:   "output below 80% of input size",
	})
	obs.OnState("0", orchestrator.StateAttemptingReencode)
	obs.OnProgress(&models.Progress{Batch: "0", Percent: 50})
	obs.OnAttempt(models.Attempt{
		Batch:    "0",
		Strategy: models.StrategyReencode,
		Inputs:   2,
		Outcome:  models.AttemptSucceeded,
		Duration: 2 * time.Second,
	})
	s.Success("wrote %s", "out.mp4")

	out := buf.String()
	assert.Contains(t, out, "Clips probed")
	assert.Contains(t, out, "Batch 0: stream copy")
	assert.Contains(t, out, "copy rejected: output below 80%")
	assert.Contains(t, out, "Batch 0: re-encoding")
	assert.Contains(t, out, "of 2 clips in 2s")
	assert.Contains(t, out, "wrote out.mp4")
	assert.NotContains(t, out, "▐", "bars are disabled")
}

func TestStatusDrawsBar(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatus(&buf, true)
	obs := s.Observer()

	obs.OnProgress(&models.Progress{Batch: "1", Percent: 25})
	assert.Contains(t, buf.String(), "Re-encoding batch 1")

	obs.OnAttempt(models.Attempt{Batch: "1", Strategy: models.StrategyReencode, Outcome: models.AttemptSucceeded})
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Nil(t, s.bar)
}
