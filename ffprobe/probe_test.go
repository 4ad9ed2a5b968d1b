package ffprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelmerge/models"
	"reelmerge/runner"
	"reelmerge/runner/runnertest"
)

const sampleJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "profile": "High",
      "level": 40,
      "pix_fmt": "yuv420p",
      "width": 720,
      "height": 1280,
      "sample_aspect_ratio": "1:1",
      "r_frame_rate": "30/1",
      "avg_frame_rate": "30/1",
      "time_base": "1/15360",
      "start_time": "0.000000",
      "duration": "5.000000"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "profile": "LC",
      "sample_rate": "44100",
      "channels": 2,
      "bit_rate": "38000",
      "start_time": "0.000000"
    }
  ],
  "format": {
    "filename": "a.mp4",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "5.016000",
    "size": "123456",
    "bit_rate": "196000"
  }
}`

func writeClip(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("Failed to write clip: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	result, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if len(result.GetVideoStreams()) != 1 || len(result.GetAudioStreams()) != 1 {
		t.Errorf("Expected one video and one audio stream, got %d/%d",
			len(result.GetVideoStreams()), len(result.GetAudioStreams()))
	}

	if _, err := ParseJSON([]byte("")); err == nil {
		t.Error("Expected error for empty output")
	}
	if _, err := ParseJSON([]byte("{not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestProbeResult_GetDuration(t *testing.T) {
	tests := []struct {
		name        string
		result      ProbeResult
		expected    float64
		expectError bool
	}{
		{
			name:     "Valid duration",
			result:   ProbeResult{Format: Format{Duration: "30.5"}},
			expected: 30.5,
		},
		{
			name: "Falls back to video stream",
			result: ProbeResult{
				Format:  Format{Duration: "N/A"},
				Streams: []Stream{{CodecType: "video", CodecName: "h264", Duration: "12.25", AvgFrameRate: "30/1"}},
			},
			expected: 12.25,
		},
		{
			name:        "Empty duration",
			result:      ProbeResult{Format: Format{Duration: ""}},
			expectError: true,
		},
		{
			name:        "Invalid duration",
			result:      ProbeResult{Format: Format{Duration: "invalid"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			duration, err := tt.result.GetDuration()
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if duration != tt.expected {
				t.Errorf("Expected duration %f, got %f", tt.expected, duration)
			}
		})
	}
}

func TestStream_Bitrate(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   int64
		wantOK bool
	}{
		{"bit_rate field", Stream{BitRate: "128000"}, 128000, true},
		{"matroska BPS tag", Stream{Tags: map[string]string{"BPS": "96000"}}, 96000, true},
		{"matroska BPS-eng tag", Stream{Tags: map[string]string{"BPS-eng": "64000"}}, 64000, true},
		{"N/A", Stream{BitRate: "N/A"}, 0, false},
		{"absent", Stream{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stream.Bitrate()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Bitrate() = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGetVideoStreams_SkipsCoverArt(t *testing.T) {
	pr := ProbeResult{Streams: []Stream{
		{CodecType: "video", CodecName: "mjpeg", AvgFrameRate: "0/0"},
		{CodecType: "video", CodecName: "h264", AvgFrameRate: "30/1"},
	}}
	v := pr.PrimaryVideo()
	if v == nil || v.CodecName != "h264" {
		t.Errorf("Expected h264 primary video, got %+v", v)
	}
}

func TestGetVideoStreams_SkipsAttachedPicture(t *testing.T) {
	pr := ProbeResult{Streams: []Stream{
		{Index: 0, CodecType: "video", CodecName: "h264", AvgFrameRate: "25/1", Disposition: Disposition{AttachedPic: 1}},
		{Index: 1, CodecType: "audio", CodecName: "aac"},
		{Index: 2, CodecType: "video", CodecName: "h264", AvgFrameRate: "30/1"},
	}}
	v := pr.PrimaryVideo()
	if v == nil || v.Index != 2 {
		t.Fatalf("Expected stream 2 as primary video, got %+v", v)
	}
	if got := pr.StreamOrdinal(v); got != 1 {
		t.Errorf("StreamOrdinal(video) = %d; want 1", got)
	}
	if got := pr.StreamOrdinal(pr.PrimaryAudio()); got != 0 {
		t.Errorf("StreamOrdinal(audio) = %d; want 0", got)
	}
	if got := pr.StreamOrdinal(nil); got != -1 {
		t.Errorf("StreamOrdinal(nil) = %d; want -1", got)
	}
}

func TestToDescriptor_CoverArtFirst(t *testing.T) {
	pr := &ProbeResult{
		Streams: []Stream{
			{Index: 0, CodecType: "video", CodecName: "mjpeg", Width: 600, Height: 600, AvgFrameRate: "0/0", Disposition: Disposition{AttachedPic: 1}},
			{Index: 1, CodecType: "video", CodecName: "h264", Width: 720, Height: 1280, RFrameRate: "30/1"},
			{Index: 2, CodecType: "audio", CodecName: "aac", SampleRate: "48000", Channels: 2},
		},
		Format: Format{FormatName: "mov,mp4,m4a,3gp,3g2,mj2", Duration: "4.0"},
	}
	clip, err := ToDescriptor("/clips/cover.mp4", 10, pr)
	if err != nil {
		t.Fatalf("ToDescriptor failed: %v", err)
	}
	if clip.VideoCodec != "h264" || clip.Width != 720 {
		t.Errorf("Expected the h264 stream, got %s %s", clip.VideoCodec, clip.Resolution())
	}
	if clip.VideoStream != 1 || clip.AudioStream != 0 {
		t.Errorf("Expected streams v:1 a:0, got v:%d a:%d", clip.VideoStream, clip.AudioStream)
	}
}

func TestToDescriptor(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}

	clip, err := ToDescriptor("/clips/a.mp4", 123456, pr)
	if err != nil {
		t.Fatalf("ToDescriptor failed: %v", err)
	}

	if clip.Width != 720 || clip.Height != 1280 {
		t.Errorf("Expected 720x1280, got %s", clip.Resolution())
	}
	if clip.FrameRate != (models.Rational{Num: 30, Den: 1}) {
		t.Errorf("Expected 30/1, got %s", clip.FrameRate)
	}
	if clip.Duration != 5.016 {
		t.Errorf("Expected container duration 5.016, got %f", clip.Duration)
	}
	if !clip.HasAudio || clip.AudioCodec != "aac" || clip.AudioSampleRate != 44100 || clip.AudioChannels != 2 {
		t.Errorf("Unexpected audio attributes: %+v", clip)
	}
	if clip.VideoProfile != "High" || clip.VideoLevel != 40 || clip.TimeBase != "1/15360" || clip.SampleAspectRatio != "1:1" {
		t.Errorf("Unexpected codec parameters: profile=%q level=%d tb=%q sar=%q",
			clip.VideoProfile, clip.VideoLevel, clip.TimeBase, clip.SampleAspectRatio)
	}
	if clip.AudioProfile != "LC" {
		t.Errorf("Expected audio profile LC, got %q", clip.AudioProfile)
	}
	if clip.VideoStream != 0 || clip.AudioStream != 0 {
		t.Errorf("Expected streams v:0 a:0, got v:%d a:%d", clip.VideoStream, clip.AudioStream)
	}
	if kbps, ok := clip.AudioBitrateKbps(); !ok || kbps != 38 {
		t.Errorf("Expected 38 kbps, got %v (%v)", kbps, ok)
	}
	if !clip.IsProbed() {
		t.Error("Descriptor should be probed")
	}
}

func TestToDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name string
		pr   ProbeResult
		kind ErrorKind
	}{
		{
			name: "audio only",
			pr:   ProbeResult{Streams: []Stream{{CodecType: "audio", CodecName: "aac"}}, Format: Format{Duration: "3"}},
			kind: UnsupportedFormat,
		},
		{
			name: "no dimensions",
			pr:   ProbeResult{Streams: []Stream{{CodecType: "video", CodecName: "h264", RFrameRate: "30/1"}}, Format: Format{Duration: "3"}},
			kind: MalformedOutput,
		},
		{
			name: "no frame rate",
			pr: ProbeResult{Streams: []Stream{{CodecType: "video", CodecName: "h264", Width: 720, Height: 1280,
				RFrameRate: "0/0", AvgFrameRate: "0/0"}}, Format: Format{Duration: "3"}},
			kind: MalformedOutput,
		},
		{
			name: "no duration",
			pr: ProbeResult{Streams: []Stream{{CodecType: "video", CodecName: "h264", Width: 720, Height: 1280,
				RFrameRate: "30/1"}}},
			kind: MalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToDescriptor("x.mp4", 1, &tt.pr)
			if !IsKind(err, tt.kind) {
				t.Errorf("Expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestToDescriptor_AvgFrameRateFallback(t *testing.T) {
	pr := ProbeResult{
		Streams: []Stream{{CodecType: "video", CodecName: "h264", Width: 576, Height: 1024,
			RFrameRate: "0/0", AvgFrameRate: "30000/1001"}},
		Format: Format{Duration: "2.0"},
	}
	clip, err := ToDescriptor("x.mp4", 1, &pr)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !models.FrameRatesMatch(clip.FrameRate.Float(), 29.97) {
		t.Errorf("Expected 29.97 fps, got %f", clip.FrameRate.Float())
	}
	if clip.HasAudio || clip.AudioBitrate != nil {
		t.Error("Clip without audio stream must report no audio and a nil bitrate")
	}
}

func TestAnalyzePackets(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		negative    bool
		nonMonotone bool
		expectError bool
	}{
		{
			name: "clean",
			json: `{"packets":[{"pts_time":"0.000000","dts_time":"0.000000"},{"pts_time":"0.033333","dts_time":"0.033333"}]}`,
		},
		{
			name:     "negative dts at start",
			json:     `{"packets":[{"pts_time":"0.000000","dts_time":"-0.066667"},{"pts_time":"0.066667","dts_time":"-0.033333"}]}`,
			negative: true,
		},
		{
			name:        "dts goes backwards",
			json:        `{"packets":[{"dts_time":"0.100000"},{"dts_time":"0.133333"},{"dts_time":"0.066667"}]}`,
			nonMonotone: true,
		},
		{
			name: "missing values ignored",
			json: `{"packets":[{"pts_time":"N/A"},{"dts_time":"0.0"}]}`,
		},
		{
			name:        "garbage",
			json:        `packets`,
			expectError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neg, nonMono, err := AnalyzePackets([]byte(tt.json))
			if tt.expectError {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if neg != tt.negative || nonMono != tt.nonMonotone {
				t.Errorf("Got negative=%v nonMonotonic=%v, want %v %v", neg, nonMono, tt.negative, tt.nonMonotone)
			}
		})
	}
}

func TestProber_Probe(t *testing.T) {
	path := writeClip(t, "a.mp4")
	fake := runnertest.New(func(ctx context.Context, spec runner.Spec) *runner.Result {
		if strings.Contains(strings.Join(spec.Args, " "), "-show_entries") {
			return runnertest.OK(spec, `{"packets":[{"pts_time":"0.0","dts_time":"-0.033"}]}`)
		}
		return runnertest.OK(spec, sampleJSON)
	})

	p := NewProber(fake, Options{Timeout: time.Second, PacketScan: 16})
	clip, err := p.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if clip.Path != path {
		t.Errorf("Expected path %s, got %s", path, clip.Path)
	}
	if clip.Size != int64(len("not really a video")) {
		t.Errorf("Size should come from the filesystem, got %d", clip.Size)
	}
	if !clip.Timestamps.NegativeStart || !clip.Timestamps.Anomalous() {
		t.Errorf("Expected negative start from packet scan, got %+v", clip.Timestamps)
	}

	calls := fake.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected probe and packet scan, got %d calls", len(calls))
	}
	if calls[0].Name != "ffprobe" || calls[0].Timeout != time.Second {
		t.Errorf("Unexpected first call: %+v", calls[0])
	}
	if !strings.Contains(strings.Join(calls[1].Args, " "), "%+#16") {
		t.Errorf("Expected packet limit in scan args: %v", calls[1].Args)
	}
}

func TestProber_ScanFailureIsAnomaly(t *testing.T) {
	path := writeClip(t, "a.mp4")
	fake := runnertest.New(func(ctx context.Context, spec runner.Spec) *runner.Result {
		if strings.Contains(strings.Join(spec.Args, " "), "-show_entries") {
			return runnertest.Exit(spec, 1, "error reading packets")
		}
		return runnertest.OK(spec, sampleJSON)
	})

	clip, err := NewProber(fake, Options{PacketScan: 8}).Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if !clip.Timestamps.ScanFailed || !clip.Timestamps.Anomalous() {
		t.Errorf("Expected scan failure to be anomalous, got %+v", clip.Timestamps)
	}
}

func TestProber_ErrorKinds(t *testing.T) {
	existing := writeClip(t, "a.mp4")

	tests := []struct {
		name    string
		path    string
		handler runnertest.HandlerFunc
		kind    ErrorKind
	}{
		{
			name: "empty path",
			path: "",
			kind: FileUnreadable,
		},
		{
			name: "nonexistent file",
			path: "/nonexistent/file.mp4",
			kind: FileUnreadable,
		},
		{
			name: "directory",
			path: t.TempDir(),
			kind: FileUnreadable,
		},
		{
			name: "ffprobe rejects file",
			path: existing,
			handler: func(ctx context.Context, spec runner.Spec) *runner.Result {
				return runnertest.Exit(spec, 1, existing+": Invalid data found when processing input")
			},
			kind: UnsupportedFormat,
		},
		{
			name: "timeout",
			path: existing,
			handler: func(ctx context.Context, spec runner.Spec) *runner.Result {
				return runnertest.TimedOut(spec)
			},
			kind: ToolTimeout,
		},
		{
			name: "garbage output",
			path: existing,
			handler: func(ctx context.Context, spec runner.Spec) *runner.Result {
				return runnertest.OK(spec, "{\"streams\": [")
			},
			kind: MalformedOutput,
		},
		{
			name: "binary missing",
			path: existing,
			handler: func(ctx context.Context, spec runner.Spec) *runner.Result {
				return &runner.Result{Outcome: runner.OutcomeStartError, ExitCode: -1, Err: os.ErrNotExist}
			},
			kind: ToolUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProber(runnertest.New(tt.handler), Options{})
			_, err := p.Probe(context.Background(), tt.path)
			if !IsKind(err, tt.kind) {
				t.Errorf("Expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestProber_Canceled(t *testing.T) {
	path := writeClip(t, "a.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProber(runnertest.New(nil), Options{}).Probe(ctx, path)
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	var pe *ProbeError
	if errors.As(err, &pe) {
		t.Errorf("Cancellation must not be reported as a ProbeError: %v", err)
	}
}
