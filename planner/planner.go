// Package planner derives the per-clip normalization that brings a probed
// clip onto the target canvas: scale to fit, center pad, optional frame-rate
// conversion and an audio plan. Planning is pure; nothing here touches the
// filesystem or runs a process.
package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"reelmerge/classifier"
	"reelmerge/models"
)

// AudioAction is what happens to a clip's audio during re-encode.
type AudioAction string

const (
	// AudioReencode resamples and re-encodes the clip's own audio track.
	AudioReencode AudioAction = "reencode"
	// AudioSilence replaces a missing audio track with generated silence of
	// the clip's duration.
	AudioSilence AudioAction = "silence"
)

// AudioPlan describes the audio half of a clip's normalization.
type AudioPlan struct {
	Action      AudioAction
	Codec       string
	BitrateKbps int
	SampleRate  int
	Channels    int
	Duration    float64 // seconds of silence for AudioSilence
}

// FilterChain is the normalization for one clip.
//
// OutputWidth/OutputHeight always equal the target dimensions. ScaledWidth
// and ScaledHeight are the fitted frame before padding, never larger than
// the target and always even.
type FilterChain struct {
	SourceWidth  int
	SourceHeight int

	ScaledWidth  int
	ScaledHeight int

	PadX         int
	PadY         int
	OutputWidth  int
	OutputHeight int
	PadColor     string

	// FrameRate is the conversion target, 0 when the clip already runs at
	// the target rate within tolerance.
	FrameRate float64

	PixelFormat string
	Audio       AudioPlan
}

// NeedsScale reports whether the clip is resized.
func (fc *FilterChain) NeedsScale() bool {
	return fc.ScaledWidth != fc.SourceWidth || fc.ScaledHeight != fc.SourceHeight
}

// NeedsPad reports whether the fitted frame leaves borders.
func (fc *FilterChain) NeedsPad() bool {
	return fc.ScaledWidth != fc.OutputWidth || fc.ScaledHeight != fc.OutputHeight
}

// VideoFilter renders the chain as an ffmpeg filter graph fragment.
//
// scale and pad are always emitted so every clip in a concat filter ends up
// with identical geometry and SAR, even when they are no-ops.
func (fc *FilterChain) VideoFilter() string {
	filters := []string{
		fmt.Sprintf("scale=%d:%d", fc.ScaledWidth, fc.ScaledHeight),
		"setsar=1",
		fmt.Sprintf("pad=%d:%d:%d:%d:color=%s", fc.OutputWidth, fc.OutputHeight, fc.PadX, fc.PadY, fc.PadColor),
		"setpts=PTS-STARTPTS",
	}
	if fc.FrameRate > 0 {
		filters = append(filters, "fps="+formatRate(fc.FrameRate))
	}
	if fc.PixelFormat != "" {
		filters = append(filters, "format="+fc.PixelFormat)
	}
	return strings.Join(filters, ",")
}

// AudioFilter renders the audio normalization. It applies to the clip's own
// track and to generated silence alike.
func (fc *FilterChain) AudioFilter() string {
	return strings.Join([]string{
		fmt.Sprintf("aresample=%d", fc.Audio.SampleRate),
		fmt.Sprintf("aformat=sample_fmts=fltp:channel_layouts=%s", ChannelLayout(fc.Audio.Channels)),
		"asetpts=PTS-STARTPTS",
	}, ",")
}

// ChannelLayout maps a channel count to an ffmpeg layout name.
func ChannelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return strconv.Itoa(channels) + "c"
	}
}

// Planner computes FilterChains.
type Planner struct {
	tolerance float64
}

// New creates a Planner with the given frame-rate tolerance in fps.
// A non-positive tolerance uses models.FrameRateTolerance.
func New(tolerance float64) *Planner {
	if tolerance <= 0 {
		tolerance = models.FrameRateTolerance
	}
	return &Planner{tolerance: tolerance}
}

// Plan computes the chain with the default tolerance.
func Plan(clip *models.ClipDescriptor, target models.TargetProfile) (*FilterChain, error) {
	return New(0).Plan(clip, target)
}

// Plan computes the normalization for clip.
//
// The clip is scaled by min(tw/sw, th/sh) so that it fits entirely inside
// the target, then centered on a target-sized canvas filled with the pad
// colour. Content is never cropped or stretched.
func (p *Planner) Plan(clip *models.ClipDescriptor, target models.TargetProfile) (*FilterChain, error) {
	if clip == nil || !clip.IsProbed() {
		path := "<nil>"
		if clip != nil {
			path = clip.Path
		}
		return nil, &classifier.PreconditionError{Path: path, Reason: "descriptor has not been probed"}
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	sw, sh := clip.Width, clip.Height
	tw, th := target.Width, target.Height

	// Integer comparison of tw/sw against th/sh avoids float rounding at
	// exact aspect matches.
	var w, h int
	if int64(tw)*int64(sh) <= int64(th)*int64(sw) {
		w = tw
		h = int(int64(sh) * int64(tw) / int64(sw))
	} else {
		h = th
		w = int(int64(sw) * int64(th) / int64(sh))
	}
	w, h = evenFloor(w), evenFloor(h)

	fc := &FilterChain{
		SourceWidth:  sw,
		SourceHeight: sh,
		ScaledWidth:  w,
		ScaledHeight: h,
		PadX:         evenFloor0((tw - w) / 2),
		PadY:         evenFloor0((th - h) / 2),
		OutputWidth:  tw,
		OutputHeight: th,
		PadColor:     target.PadColor,
		PixelFormat:  target.PixelFormat,
	}

	if math.Abs(clip.FrameRate.Float()-target.FrameRate) > p.tolerance {
		fc.FrameRate = target.FrameRate
	}

	fc.Audio = AudioPlan{
		Action:      AudioReencode,
		Codec:       target.AudioCodec,
		BitrateKbps: target.AudioBitrateKbps,
		SampleRate:  target.AudioSampleRate,
		Channels:    target.AudioChannels,
	}
	if !clip.HasAudio {
		fc.Audio.Action = AudioSilence
		fc.Audio.Duration = clip.Duration
	}

	return fc, nil
}

// PlanAll plans every clip, preserving order.
func (p *Planner) PlanAll(clips []*models.ClipDescriptor, target models.TargetProfile) ([]*FilterChain, error) {
	chains := make([]*FilterChain, len(clips))
	for i, c := range clips {
		fc, err := p.Plan(c, target)
		if err != nil {
			return nil, fmt.Errorf("plan clip %d: %w", i, err)
		}
		chains[i] = fc
	}
	return chains, nil
}

// evenFloor rounds down to an even number, minimum 2 (yuv420p needs even
// dimensions).
func evenFloor(n int) int {
	n &^= 1
	if n < 2 {
		return 2
	}
	return n
}

func evenFloor0(n int) int {
	if n < 0 {
		return 0
	}
	return n &^ 1
}

func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
