package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"reelmerge/models"
	"reelmerge/orchestrator"
)

// progressScale is the bar resolution; re-encode progress is reported in
// tenths of a percent.
const progressScale = 1000

// Status prints merge events as coloured lines and draws a progress bar for
// each re-encode.
type Status struct {
	w        io.Writer
	showBars bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar

	colors map[string]*color.Color
}

// NewStatus writes to w. Bars are drawn only when showBars is set, which
// callers tie to w being a terminal.
func NewStatus(w io.Writer, showBars bool) *Status {
	return &Status{
		w:        w,
		showBars: showBars,
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
		},
	}
}

// Observer returns the callbacks to register with the merger.
func (s *Status) Observer() orchestrator.Observer {
	return orchestrator.Observer{
		OnState:    s.onState,
		OnAttempt:  s.onAttempt,
		OnProgress: s.onProgress,
	}
}

func (s *Status) onState(batch string, state orchestrator.State) {
	switch state {
	case orchestrator.StateProbed:
		s.printf("cyan", "• Clips probed and classified\n")
	case orchestrator.StateAttemptingCopy:
		s.printf("cyan", "• Batch %s: stream copy\n", batch)
	case orchestrator.StateAttemptingReencode:
		s.printf("cyan", "• Batch %s: re-encoding\n", batch)
	}
}

func (s *Status) onAttempt(a models.Attempt) {
	s.finishBar()
	switch a.Outcome {
	case models.AttemptSucceeded:
		s.printf("green", "  ✓ %s of %d clips in %s\n", a.Strategy, a.Inputs, a.Duration.Round(time.Millisecond))
	case models.AttemptFallbackNeeded:
		s.printf("yellow", "  ↻ copy rejected: %s\n", a.Reason)
	case models.AttemptFailed:
		s.printf("red", "  ✗ %s failed: %s\n", a.Strategy, a.Reason)
	}
}

func (s *Status) onProgress(p *models.Progress) {
	if !s.showBars {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar == nil {
		s.bar = progressbar.NewOptions(progressScale,
			progressbar.OptionSetWriter(s.w),
			progressbar.OptionSetDescription("Re-encoding batch "+p.Batch),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = s.bar.Set(int(p.Percent * progressScale / 100))
}

func (s *Status) finishBar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
}

// Success prints a green confirmation line.
func (s *Status) Success(format string, args ...any) {
	s.printf("green", "✅ "+format+"\n", args...)
}

// Warn prints a yellow warning line.
func (s *Status) Warn(format string, args ...any) {
	s.printf("yellow", "⚠️  "+format+"\n", args...)
}

// Fail prints a red error line.
func (s *Status) Fail(format string, args ...any) {
	s.printf("red", "❌ "+format+"\n", args...)
}

func (s *Status) printf(c, format string, args ...any) {
	if col, ok := s.colors[c]; ok {
		col.Fprintf(s.w, format, args...)
		return
	}
	fmt.Fprintf(s.w, format, args...)
}
