package models

import (
	"fmt"
	"time"
)

// Progress represents real-time re-encode metrics read from ffmpeg's
// -progress output.
type Progress struct {
	Batch string // batch label the encode belongs to

	Frame   int64   // current frame number
	FPS     float64 // frames processed per second
	OutTime float64 // seconds of output written so far
	Speed   float64 // encoding speed multiplier (2.34 means 2.34x realtime)

	TotalDuration float64 // expected output duration in seconds
	Percent       float64 // 0-100

	State     ProgressState
	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressState represents the current state of an encode.
type ProgressState string

const (
	ProgressStateStarting  ProgressState = "starting"
	ProgressStateEncoding  ProgressState = "encoding"
	ProgressStateCompleted ProgressState = "completed"
)

// ProgressCallback receives progress updates during re-encode attempts.
type ProgressCallback func(progress *Progress)

// NewProgress creates a tracker for an encode of the given total duration.
func NewProgress(batch string, totalDuration float64) *Progress {
	now := time.Now()
	return &Progress{
		Batch:         batch,
		TotalDuration: totalDuration,
		State:         ProgressStateStarting,
		StartTime:     now,
		UpdatedAt:     now,
	}
}

// Update records the current output position and recomputes Percent.
func (p *Progress) Update(outTime float64) {
	p.OutTime = outTime
	if p.TotalDuration > 0 {
		p.Percent = (outTime / p.TotalDuration) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	p.UpdatedAt = time.Now()
}

// EstimatedTimeRemaining calculates ETA from elapsed time and Percent.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	if p.Percent <= 0 {
		return 0
	}
	elapsed := p.UpdatedAt.Sub(p.StartTime)
	total := time.Duration(float64(elapsed) / (p.Percent / 100))
	if remaining := total - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// FormatSummary returns a one-line human-readable summary.
func (p *Progress) FormatSummary() string {
	return fmt.Sprintf("%s %.1f%% | frame=%d fps=%.1f speed=%.2fx | ETA: %s",
		p.Batch, p.Percent, p.Frame, p.FPS, p.Speed, formatDuration(p.EstimatedTimeRemaining()))
}

// formatDuration converts a duration to a compact human-readable string.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds = seconds % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
