package planner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelmerge/classifier"
	"reelmerge/models"
)

func clip(w, h int, fps models.Rational, audio bool) *models.ClipDescriptor {
	return &models.ClipDescriptor{
		Path:      fmt.Sprintf("%dx%d.mp4", w, h),
		Width:     w,
		Height:    h,
		FrameRate: fps,
		Duration:  4.5,
		HasAudio:  audio,
	}
}

var fps30 = models.Rational{Num: 30, Den: 1}

func TestPlan_Geometry(t *testing.T) {
	target := models.DefaultTargetProfile() // 720x1280

	tests := []struct {
		name          string
		w, h          int
		scaledW       int
		scaledH       int
		padX, padY    int
		expectScale   bool
		expectPadding bool
	}{
		{"already conforming", 720, 1280, 720, 1280, 0, 0, false, false},
		{"same aspect smaller", 576, 1024, 720, 1280, 0, 0, true, false},
		{"same aspect larger", 1080, 1920, 720, 1280, 0, 0, true, false},
		{"landscape letterboxed", 1920, 1080, 720, 404, 0, 438, true, true},
		{"square", 1080, 1080, 720, 720, 0, 280, true, true},
		{"narrower than target", 540, 1280, 540, 1280, 90, 0, false, true},
		{"odd source dims", 721, 1281, 720, 1278, 0, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Plan(clip(tt.w, tt.h, fps30, true), target)
			require.NoError(t, err)

			assert.Equal(t, tt.scaledW, fc.ScaledWidth, "scaled width")
			assert.Equal(t, tt.scaledH, fc.ScaledHeight, "scaled height")
			assert.Equal(t, tt.padX, fc.PadX, "pad x")
			assert.Equal(t, tt.padY, fc.PadY, "pad y")
			assert.Equal(t, tt.expectScale, fc.NeedsScale())
			assert.Equal(t, tt.expectPadding, fc.NeedsPad())
			assert.Equal(t, target.Width, fc.OutputWidth)
			assert.Equal(t, target.Height, fc.OutputHeight)
		})
	}
}

// For every source geometry the padded frame is exactly the target and the
// fitted frame lies inside it.
func TestPlan_OutputGeometryInvariant(t *testing.T) {
	targets := []models.TargetProfile{models.DefaultTargetProfile()}
	landscape := models.DefaultTargetProfile()
	landscape.Width, landscape.Height = 1920, 1080
	targets = append(targets, landscape)

	sizes := []int{2, 3, 97, 240, 360, 479, 576, 640, 720, 1024, 1080, 1280, 1920, 2160, 3840}
	for _, target := range targets {
		for _, w := range sizes {
			for _, h := range sizes {
				fc, err := Plan(clip(w, h, fps30, true), target)
				require.NoError(t, err)

				assert.Equal(t, target.Width, fc.OutputWidth)
				assert.Equal(t, target.Height, fc.OutputHeight)
				assert.LessOrEqual(t, fc.ScaledWidth+fc.PadX, target.Width, "%dx%d -> %s", w, h, target.Resolution())
				assert.LessOrEqual(t, fc.ScaledHeight+fc.PadY, target.Height, "%dx%d -> %s", w, h, target.Resolution())
				assert.Zero(t, fc.ScaledWidth%2)
				assert.Zero(t, fc.ScaledHeight%2)
				// One side always touches the canvas (fit, not shrink).
				touches := target.Width-fc.ScaledWidth < 2 || target.Height-fc.ScaledHeight < 2
				assert.True(t, touches, "%dx%d -> %s scaled to %dx%d", w, h, target.Resolution(), fc.ScaledWidth, fc.ScaledHeight)
			}
		}
	}
}

func TestPlan_FrameRate(t *testing.T) {
	target := models.DefaultTargetProfile()

	tests := []struct {
		name string
		fps  models.Rational
		want float64
	}{
		{"exact", fps30, 0},
		{"ntsc within tolerance", models.Rational{Num: 30000, Den: 1001}, 0},
		{"25 fps converted", models.Rational{Num: 25, Den: 1}, 30},
		{"60 fps converted", models.Rational{Num: 60, Den: 1}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Plan(clip(720, 1280, tt.fps, true), target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fc.FrameRate)
			if tt.want == 0 {
				assert.NotContains(t, fc.VideoFilter(), "fps=")
			} else {
				assert.Contains(t, fc.VideoFilter(), "fps=30")
			}
		})
	}

	fc, err := New(5).Plan(clip(720, 1280, models.Rational{Num: 25, Den: 1}, true), target)
	require.NoError(t, err)
	assert.Zero(t, fc.FrameRate, "wider tolerance accepts 25 fps")
}

func TestPlan_Audio(t *testing.T) {
	target := models.DefaultTargetProfile()

	low := clip(720, 1280, fps30, true)
	low.AudioBitrate = models.Int64Ptr(38000)
	fc, err := Plan(low, target)
	require.NoError(t, err)
	assert.Equal(t, AudioReencode, fc.Audio.Action)
	assert.Equal(t, 128, fc.Audio.BitrateKbps)
	assert.Equal(t, "aac", fc.Audio.Codec)

	silent := clip(720, 1280, fps30, false)
	fc, err = Plan(silent, target)
	require.NoError(t, err)
	assert.Equal(t, AudioSilence, fc.Audio.Action)
	assert.Equal(t, 4.5, fc.Audio.Duration)
	assert.Equal(t, "aresample=44100,aformat=sample_fmts=fltp:channel_layouts=stereo,asetpts=PTS-STARTPTS", fc.AudioFilter())
}

func TestFilterChain_VideoFilter(t *testing.T) {
	fc, err := Plan(clip(1920, 1080, models.Rational{Num: 25, Den: 1}, true), models.DefaultTargetProfile())
	require.NoError(t, err)

	assert.Equal(t,
		"scale=720:404,setsar=1,pad=720:1280:0:438:color=black,setpts=PTS-STARTPTS,fps=30,format=yuv420p",
		fc.VideoFilter())
}

func TestPlan_Preconditions(t *testing.T) {
	_, err := Plan(&models.ClipDescriptor{Path: "raw.mp4"}, models.DefaultTargetProfile())
	assert.True(t, classifier.IsPrecondition(err))

	_, err = Plan(nil, models.DefaultTargetProfile())
	assert.True(t, classifier.IsPrecondition(err))

	bad := models.DefaultTargetProfile()
	bad.Width = 0
	_, err = Plan(clip(720, 1280, fps30, true), bad)
	assert.ErrorContains(t, err, "dimensions must be positive")
}

func TestPlanAll_PreservesOrder(t *testing.T) {
	clips := []*models.ClipDescriptor{
		clip(720, 1280, fps30, true),
		clip(1920, 1080, fps30, false),
		clip(576, 1024, fps30, true),
	}
	chains, err := New(0).PlanAll(clips, models.DefaultTargetProfile())
	require.NoError(t, err)
	require.Len(t, chains, 3)
	for i, fc := range chains {
		assert.Equal(t, clips[i].Width, fc.SourceWidth)
	}

	clips = append(clips, &models.ClipDescriptor{Path: "raw.mp4"})
	_, err = New(0).PlanAll(clips, models.DefaultTargetProfile())
	assert.ErrorContains(t, err, "plan clip 3")
}

func TestChannelLayout(t *testing.T) {
	assert.Equal(t, "mono", ChannelLayout(1))
	assert.Equal(t, "stereo", ChannelLayout(2))
	assert.Equal(t, "5.1", ChannelLayout(6))
	assert.Equal(t, "3c", ChannelLayout(3))
}
