// Package ui renders probe reports, merge previews and merge results for the
// terminal.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"reelmerge/models"
	"reelmerge/orchestrator"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	failBoxStyle = boxStyle.Copy().
			BorderForeground(lipgloss.Color("#DC2626"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Bold(true)

	defectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D97706"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))
)

// ProbeReport renders one box per probed clip and lists the clips that
// failed to probe.
func ProbeReport(clips []*models.ClipDescriptor, failures map[string]error) string {
	var b strings.Builder
	for _, c := range clips {
		b.WriteString(clipBox(c))
		b.WriteString("\n")
	}
	for path, err := range failures {
		b.WriteString(failBoxStyle.Render(fmt.Sprintf("%s %s\n%s %v",
			labelStyle.Render("📁 File:"), filepath.Base(path),
			labelStyle.Render("❌ Error:"), err)))
		b.WriteString("\n")
	}
	return b.String()
}

func clipBox(c *models.ClipDescriptor) string {
	audio := "none"
	if c.HasAudio {
		audio = fmt.Sprintf("%s %d Hz %dch", c.AudioCodec, c.AudioSampleRate, c.AudioChannels)
		if kbps, ok := c.AudioBitrateKbps(); ok {
			audio += fmt.Sprintf(" %.0f kbps", kbps)
		}
	}
	defects := c.Defects.String()
	if c.Defects.IsEmpty() {
		defects = "none"
	} else {
		defects = defectStyle.Render(defects)
	}

	lines := []string{
		row("📁 File:", filepath.Base(c.Path)),
		row("📊 Size:", FormatFileSize(c.Size)),
		row("📐 Dimensions:", c.Resolution()),
		row("🎬 Video:", fmt.Sprintf("%s %s @ %s fps", c.VideoCodec, c.PixelFormat, c.FrameRate)),
		row("🔊 Audio:", audio),
		row("⏱️  Duration:", FormatDuration(c.Duration)),
		row("⚠️  Defects:", defects),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// PreviewReport renders the plan produced by a dry run.
func PreviewReport(p *orchestrator.Preview) string {
	var b strings.Builder

	summary := []string{
		row("Clips:", fmt.Sprintf("%d", len(p.Clips))),
		row("Batches:", fmt.Sprintf("%d", len(p.Batches))),
		row("Merges:", fmt.Sprintf("%d", p.Merges)),
	}
	if len(p.Skipped) > 0 {
		summary = append(summary, row("Skipped:", strings.Join(baseNames(p.Skipped), ", ")))
	}
	b.WriteString(boxStyle.Render(titleStyle.Render("Dry run") + "\n" + strings.Join(summary, "\n")))
	b.WriteString("\n")

	for _, bp := range p.Batches {
		lines := []string{
			titleStyle.Render("Batch " + bp.Batch),
			row("Inputs:", fmt.Sprintf("%d", len(bp.Inputs))),
			row("Strategy:", string(bp.Strategy)),
			row("Reason:", bp.Reason),
		}
		if !bp.Defects.IsEmpty() {
			lines = append(lines, row("Defects:", defectStyle.Render(bp.Defects.String())))
		}
		lines = append(lines, row("Output:", bp.Output), "", commandStyle.Render(bp.Command))
		if bp.Fallback != "" {
			lines = append(lines, "", labelStyle.Render("On copy failure:"), commandStyle.Render(bp.Fallback))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

// ResultReport renders a finished merge.
func ResultReport(res *models.MergeResult) string {
	style := boxStyle
	title := "✅ Merge succeeded"
	if !res.Success {
		style = failBoxStyle
		title = "❌ Merge failed"
	}

	strategy := string(res.Strategy)
	if strategy == "" {
		strategy = "none"
	}
	lines := []string{
		titleStyle.Render(title),
		row("Strategy:", strategy),
		row("Inputs:", fmt.Sprintf("%d", res.Inputs)),
		row("Chunks:", fmt.Sprintf("%d", res.Chunks)),
		row("Attempts:", fmt.Sprintf("%d", len(res.Attempts))),
		row("Elapsed:", res.Elapsed.Round(time.Millisecond).String()),
	}
	if res.Success {
		lines = append(lines, row("Output:", res.OutputPath))
	}
	if len(res.Skipped) > 0 {
		lines = append(lines, row("Skipped:", strings.Join(baseNames(res.Skipped), ", ")))
	}
	if len(res.SilentClips) > 0 {
		lines = append(lines, row("Silent:", strings.Join(baseNames(res.SilentClips), ", ")))
	}
	if res.Err != nil {
		lines = append(lines, row("Error:", res.Err.Error()))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// FormatFileSize converts bytes to human-readable format
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration converts seconds to MM:SS format
func FormatDuration(seconds float64) string {
	totalSeconds := int(seconds)
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
