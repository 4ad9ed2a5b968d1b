package concat

import (
	"reflect"
	"strings"
	"testing"

	"reelmerge/command"
)

var _ command.Command = (*ConcatBuilder)(nil)

func TestNewConcatBuilder(t *testing.T) {
	builder := NewConcatBuilder("/tmp/concat-1.txt", "/out/reel.mp4")

	if builder.Binary() != "ffmpeg" {
		t.Errorf("Expected default binary 'ffmpeg', got '%s'", builder.Binary())
	}
	if builder.ManifestPath() != "/tmp/concat-1.txt" {
		t.Errorf("Unexpected manifest path %s", builder.ManifestPath())
	}
	if builder.GetTaskType() != command.TaskTypeConcat {
		t.Errorf("Expected task type concat, got %s", builder.GetTaskType())
	}
}

func TestConcatBuilder_BuildArgs(t *testing.T) {
	args := NewConcatBuilder("/tmp/list.txt", "/out/reel.mp4").BuildArgs()
	expected := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0", "-fflags", "+genpts",
		"-i", "/tmp/list.txt",
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c", "copy", "-avoid_negative_ts", "make_zero",
		"-movflags", "+faststart",
		"/out/reel.mp4",
	}
	if !reflect.DeepEqual(args, expected) {
		t.Errorf("BuildArgs() = %v\nwant %v", args, expected)
	}
}

func TestConcatBuilder_SetStreams(t *testing.T) {
	args := strings.Join(NewConcatBuilder("/tmp/list.txt", "/out/reel.mp4").SetStreams(1, 2).BuildArgs(), " ")
	if !strings.Contains(args, "-map 0:v:1 -map 0:a:2?") {
		t.Errorf("Expected v:1 and a:2 mapped, got: %s", args)
	}
	if err := NewConcatBuilder("/tmp/list.txt", "/out/reel.mp4").SetStreams(-1, 0).Validate(); err == nil {
		t.Error("Expected error for a negative stream position")
	}
}

func TestConcatBuilder_MatroskaSkipsFaststart(t *testing.T) {
	args := strings.Join(NewConcatBuilder("/tmp/list.txt", "/out/reel.mkv").BuildArgs(), " ")
	if strings.Contains(args, "faststart") {
		t.Errorf("faststart is an mp4 option, got: %s", args)
	}
	if !strings.HasSuffix(args, "/out/reel.mkv") {
		t.Errorf("Output path should be last: %s", args)
	}
}

func TestConcatBuilder_ExtraArgsBeforeOutput(t *testing.T) {
	args := NewConcatBuilder("/tmp/list.txt", "/out/reel.mp4").
		AddExtraArgs("-metadata", "title=reel").
		BuildArgs()
	n := len(args)
	if args[n-3] != "-metadata" || args[n-2] != "title=reel" || args[n-1] != "/out/reel.mp4" {
		t.Errorf("Unexpected tail: %v", args[n-3:])
	}
}

func TestConcatBuilder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		builder *ConcatBuilder
		wantErr bool
	}{
		{"valid", NewConcatBuilder("/tmp/l.txt", "/out/r.mp4").SetInputs([]string{"/a.mp4"}), false},
		{"no manifest", NewConcatBuilder("", "/out/r.mp4"), true},
		{"no output", NewConcatBuilder("/tmp/l.txt", ""), true},
		{"output is input", NewConcatBuilder("/tmp/l.txt", "/clips/./a.mp4").SetInputs([]string{"/clips/a.mp4"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConcatBuilder_DryRun(t *testing.T) {
	line, err := NewConcatBuilder("/tmp/list.txt", "/out/my reel.mkv").
		SetBinary("/opt/ffmpeg/bin/ffmpeg").
		DryRun()
	if err != nil {
		t.Fatalf("DryRun returned error: %v", err)
	}
	if !strings.HasPrefix(line, "/opt/ffmpeg/bin/ffmpeg -hide_banner") {
		t.Errorf("Unexpected prefix: %s", line)
	}
	if !strings.HasSuffix(line, "'/out/my reel.mkv'") {
		t.Errorf("Output with spaces should be quoted: %s", line)
	}

	if _, err := NewConcatBuilder("", "/out/r.mp4").DryRun(); err == nil {
		t.Error("Expected DryRun to fail validation")
	}
}

func TestConcatBuilder_SetInputsCopies(t *testing.T) {
	paths := []string{"/a.mp4", "/b.mp4"}
	builder := NewConcatBuilder("/tmp/l.txt", "/out/r.mp4").SetInputs(paths)
	paths[0] = "/changed.mp4"
	if builder.GetInputPaths()[0] != "/a.mp4" {
		t.Error("SetInputs should copy the slice")
	}
}
