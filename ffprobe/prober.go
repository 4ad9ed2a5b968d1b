package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reelmerge/models"
	"reelmerge/runner"
)

// Options configures a Prober.
type Options struct {
	Binary  string        // ffprobe executable, default "ffprobe"
	Timeout time.Duration // per-invocation timeout
	// PacketScan is the number of leading video packets inspected for
	// negative or non-monotonic timestamps. Zero disables the scan.
	PacketScan int
}

// Prober extracts ClipDescriptors through ffprobe.
type Prober struct {
	runner runner.Runner
	opts   Options
}

// NewProber creates a Prober that shells out through r.
func NewProber(r runner.Runner, opts Options) *Prober {
	if opts.Binary == "" {
		opts.Binary = "ffprobe"
	}
	return &Prober{runner: r, opts: opts}
}

// Probe analyzes a media file and returns a fully populated descriptor.
//
// The file is stat'ed first so unreadable paths fail without spawning
// ffprobe. The returned descriptor has no defect tags; classification is
// a separate step.
func (p *Prober) Probe(ctx context.Context, path string) (*models.ClipDescriptor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newProbeError(FileUnreadable, path, "source path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ProbeError{Kind: FileUnreadable, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, newProbeError(FileUnreadable, path, "not a regular file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ProbeError{Kind: FileUnreadable, Path: path, Err: err}
	}
	_ = f.Close()

	// Build ffprobe command
	// -v error: only real errors on stderr, used to classify failures
	// -print_format json: output in JSON format
	// -show_streams / -show_format: stream and container information
	res := p.runner.Run(ctx, runner.Spec{
		Name:    p.opts.Binary,
		Args:    []string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path},
		Timeout: p.opts.Timeout,
	})
	if err := p.checkResult(ctx, path, res); err != nil {
		return nil, err
	}

	result, err := ParseJSON([]byte(res.Stdout))
	if err != nil {
		return nil, &ProbeError{Kind: MalformedOutput, Path: path, Err: err}
	}

	clip, err := ToDescriptor(path, info.Size(), result)
	if err != nil {
		return nil, err
	}

	if p.opts.PacketScan > 0 {
		clip.Timestamps = p.scanTimestamps(ctx, clip.Timestamps, path)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("probe %s canceled: %w", path, ctx.Err())
		}
	}

	return clip, nil
}

func (p *Prober) checkResult(ctx context.Context, path string, res *runner.Result) error {
	switch res.Outcome {
	case runner.OutcomeSuccess:
		return nil
	case runner.OutcomeCanceled:
		return fmt.Errorf("probe %s canceled: %w", path, ctx.Err())
	case runner.OutcomeTimedOut:
		return &ProbeError{Kind: ToolTimeout, Path: path, Err: res.Err}
	case runner.OutcomeStartError:
		return &ProbeError{Kind: ToolUnavailable, Path: path, Err: res.Err}
	}

	stderr := strings.TrimSpace(res.StderrTail(3))
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "no such file") {
		return newProbeError(FileUnreadable, path, "ffprobe: %s", stderr)
	}
	return newProbeError(UnsupportedFormat, path, "ffprobe exited with code %d: %s", res.ExitCode, stderr)
}

// ToDescriptor converts a parsed probe result into a ClipDescriptor.
//
// Frame rate comes from r_frame_rate, falling back to avg_frame_rate.
// A file without a video stream is UnsupportedFormat; a video stream
// without usable geometry or frame rate is MalformedOutput.
func ToDescriptor(path string, size int64, pr *ProbeResult) (*models.ClipDescriptor, error) {
	video := pr.PrimaryVideo()
	if video == nil {
		return nil, newProbeError(UnsupportedFormat, path, "no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, newProbeError(MalformedOutput, path, "video stream has no dimensions (%dx%d)", video.Width, video.Height)
	}

	rate, err := models.ParseRational(video.RFrameRate)
	if err != nil {
		rate, err = models.ParseRational(video.AvgFrameRate)
	}
	if err != nil {
		return nil, newProbeError(MalformedOutput, path, "no usable frame rate (r=%q avg=%q)", video.RFrameRate, video.AvgFrameRate)
	}

	duration, err := pr.GetDuration()
	if err != nil {
		return nil, &ProbeError{Kind: MalformedOutput, Path: path, Err: err}
	}

	clip := &models.ClipDescriptor{
		Path:              path,
		Size:              size,
		Container:         pr.Format.FormatName,
		VideoStream:       pr.StreamOrdinal(video),
		VideoCodec:        video.CodecName,
		VideoProfile:      video.Profile,
		VideoLevel:        video.Level,
		PixelFormat:       video.PixFmt,
		Width:             video.Width,
		Height:            video.Height,
		SampleAspectRatio: video.SampleAspect,
		FrameRate:         rate,
		TimeBase:          video.TimeBase,
		Duration:          duration,
	}

	if start, ok := video.StartSeconds(); ok {
		clip.Timestamps.StartTime = start
		clip.Timestamps.NegativeStart = start < 0
	}

	if audio := pr.PrimaryAudio(); audio != nil {
		clip.HasAudio = true
		clip.AudioStream = pr.StreamOrdinal(audio)
		clip.AudioCodec = audio.CodecName
		clip.AudioProfile = audio.Profile
		clip.AudioChannels = audio.Channels
		if sr, err := strconv.Atoi(audio.SampleRate); err == nil {
			clip.AudioSampleRate = sr
		}
		if bps, ok := audio.Bitrate(); ok {
			clip.AudioBitrate = models.Int64Ptr(bps)
		}
	}

	return clip, nil
}

type packetOutput struct {
	Packets []struct {
		PTSTime string `json:"pts_time"`
		DTSTime string `json:"dts_time"`
	} `json:"packets"`
}

// scanTimestamps reads the first PacketScan video packets and flags negative
// or decreasing timestamps. A scan that cannot complete is recorded as
// ScanFailed, which counts as an anomaly.
func (p *Prober) scanTimestamps(ctx context.Context, ts models.TimestampInfo, path string) models.TimestampInfo {
	res := p.runner.Run(ctx, runner.Spec{
		Name: p.opts.Binary,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "packet=pts_time,dts_time",
			"-read_intervals", "%+#" + strconv.Itoa(p.opts.PacketScan),
			"-print_format", "json",
			path,
		},
		Timeout: p.opts.Timeout,
	})
	if !res.OK() {
		ts.ScanFailed = true
		return ts
	}

	neg, nonMono, err := AnalyzePackets([]byte(res.Stdout))
	if err != nil {
		ts.ScanFailed = true
		return ts
	}
	ts.NegativeStart = ts.NegativeStart || neg
	ts.NonMonotonic = nonMono
	return ts
}

// AnalyzePackets inspects ffprobe packet JSON for negative timestamps and
// decode timestamps that go backwards.
func AnalyzePackets(data []byte) (negative, nonMonotonic bool, err error) {
	var out packetOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return false, false, fmt.Errorf("failed to parse packet JSON: %w", err)
	}

	prevDTS, havePrev := 0.0, false
	for _, pkt := range out.Packets {
		if pts, ok := parseTime(pkt.PTSTime); ok && pts < 0 {
			negative = true
		}
		dts, ok := parseTime(pkt.DTSTime)
		if !ok {
			continue
		}
		if dts < 0 {
			negative = true
		}
		if havePrev && dts < prevDTS {
			nonMonotonic = true
		}
		prevDTS, havePrev = dts, true
	}
	return negative, nonMonotonic, nil
}

func parseTime(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
