// Package classifier tags probed clips with the defects that rule out a
// stream-copy merge, and decides whether a set of clean clips can be joined
// with the concat demuxer at all.
package classifier

import (
	"errors"
	"fmt"
	"strings"

	"reelmerge/models"
)

// DefaultMinAudioBitrateKbps is the audio bitrate floor below which a clip
// is tagged LowAudioBitrate.
const DefaultMinAudioBitrateKbps = 50.0

// Thresholds are the tunable limits used by the rules.
type Thresholds struct {
	MinAudioBitrateKbps float64 `yaml:"min_audio_bitrate_kbps"`
	FrameRateTolerance  float64 `yaml:"frame_rate_tolerance"`
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAudioBitrateKbps: DefaultMinAudioBitrateKbps,
		FrameRateTolerance:  models.FrameRateTolerance,
	}
}

// PreconditionError is returned when a descriptor is not fit for
// classification. It is a caller bug, never a degrade path.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot classify %s: %s", e.Path, e.Reason)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// Classifier applies the defect rules.
type Classifier struct {
	t Thresholds
}

// New creates a Classifier. Zero thresholds fall back to the defaults.
func New(t Thresholds) *Classifier {
	if t.MinAudioBitrateKbps <= 0 {
		t.MinAudioBitrateKbps = DefaultMinAudioBitrateKbps
	}
	if t.FrameRateTolerance <= 0 {
		t.FrameRateTolerance = models.FrameRateTolerance
	}
	return &Classifier{t: t}
}

// Thresholds returns the effective limits.
func (c *Classifier) Thresholds() Thresholds {
	return c.t
}

// Classify returns the defect tags of clip relative to target.
//
// Rules are independent and additive:
//   - ResolutionMismatch: width/height differ from the target
//   - LowAudioBitrate: audio present with a known bitrate below the floor
//   - NoAudio: no audio stream
//   - TimestampAnomaly: negative or non-monotonic start, or a failed scan
//   - FrameRateMismatch: frame rate outside the tolerance
//
// An audio stream whose bitrate is not reported is not tagged.
func (c *Classifier) Classify(clip *models.ClipDescriptor, target models.TargetProfile) (models.DefectSet, error) {
	if clip == nil {
		return 0, &PreconditionError{Path: "<nil>", Reason: "descriptor is nil"}
	}
	if !clip.IsProbed() {
		return 0, &PreconditionError{Path: clip.Path, Reason: "descriptor has not been probed"}
	}

	var defects models.DefectSet

	if clip.Width != target.Width || clip.Height != target.Height {
		defects = defects.Add(models.DefectResolutionMismatch)
	}

	if !clip.HasAudio {
		defects = defects.Add(models.DefectNoAudio)
	} else if kbps, ok := clip.AudioBitrateKbps(); ok && kbps < c.t.MinAudioBitrateKbps {
		defects = defects.Add(models.DefectLowAudioBitrate)
	}

	if clip.Timestamps.Anomalous() {
		defects = defects.Add(models.DefectTimestampAnomaly)
	}

	if diff := clip.FrameRate.Float() - target.FrameRate; diff > c.t.FrameRateTolerance || diff < -c.t.FrameRateTolerance {
		defects = defects.Add(models.DefectFrameRateMismatch)
	}

	return defects, nil
}

// ClassifyAll classifies every clip and stores the result on the descriptor.
func (c *Classifier) ClassifyAll(clips []*models.ClipDescriptor, target models.TargetProfile) error {
	for _, clip := range clips {
		d, err := c.Classify(clip, target)
		if err != nil {
			return err
		}
		clip.Defects = d
	}
	return nil
}

// CopyCompatible reports whether clips can be joined with the concat demuxer
// and stream copy. When they cannot, reason names the first mismatch.
// Containers are compared by ffprobe format name.
func (c *Classifier) CopyCompatible(clips []*models.ClipDescriptor) (ok bool, reason string) {
	if len(clips) == 0 {
		return false, "no clips"
	}
	ref := clips[0]
	for _, clip := range clips[1:] {
		var diffs []string
		if clip.VideoStream != ref.VideoStream {
			diffs = append(diffs, fmt.Sprintf("video stream v:%d != v:%d", clip.VideoStream, ref.VideoStream))
		}
		if clip.VideoCodec != ref.VideoCodec {
			diffs = append(diffs, fmt.Sprintf("video codec %s != %s", clip.VideoCodec, ref.VideoCodec))
		}
		if clip.VideoProfile != ref.VideoProfile {
			diffs = append(diffs, fmt.Sprintf("video profile %q != %q", clip.VideoProfile, ref.VideoProfile))
		}
		if clip.VideoLevel != ref.VideoLevel {
			diffs = append(diffs, fmt.Sprintf("video level %d != %d", clip.VideoLevel, ref.VideoLevel))
		}
		if clip.Width != ref.Width || clip.Height != ref.Height {
			diffs = append(diffs, fmt.Sprintf("resolution %s != %s", clip.Resolution(), ref.Resolution()))
		}
		if clip.PixelFormat != ref.PixelFormat {
			diffs = append(diffs, fmt.Sprintf("pixel format %s != %s", clip.PixelFormat, ref.PixelFormat))
		}
		if d := clip.FrameRate.Float() - ref.FrameRate.Float(); d > c.t.FrameRateTolerance || d < -c.t.FrameRateTolerance {
			diffs = append(diffs, fmt.Sprintf("frame rate %s != %s", clip.FrameRate, ref.FrameRate))
		}
		if a, b := sampleAspect(clip.SampleAspectRatio), sampleAspect(ref.SampleAspectRatio); a != b {
			diffs = append(diffs, fmt.Sprintf("sample aspect ratio %s != %s", a, b))
		}
		if clip.TimeBase != ref.TimeBase {
			diffs = append(diffs, fmt.Sprintf("time base %s != %s", clip.TimeBase, ref.TimeBase))
		}
		if clip.HasAudio != ref.HasAudio {
			diffs = append(diffs, "audio presence differs")
		} else if clip.HasAudio {
			if clip.AudioStream != ref.AudioStream {
				diffs = append(diffs, fmt.Sprintf("audio stream a:%d != a:%d", clip.AudioStream, ref.AudioStream))
			}
			if clip.AudioCodec != ref.AudioCodec {
				diffs = append(diffs, fmt.Sprintf("audio codec %s != %s", clip.AudioCodec, ref.AudioCodec))
			}
			if clip.AudioProfile != ref.AudioProfile {
				diffs = append(diffs, fmt.Sprintf("audio profile %q != %q", clip.AudioProfile, ref.AudioProfile))
			}
			if clip.AudioSampleRate != ref.AudioSampleRate {
				diffs = append(diffs, fmt.Sprintf("sample rate %d != %d", clip.AudioSampleRate, ref.AudioSampleRate))
			}
			if clip.AudioChannels != ref.AudioChannels {
				diffs = append(diffs, fmt.Sprintf("channels %d != %d", clip.AudioChannels, ref.AudioChannels))
			}
		}
		if clip.Container != ref.Container {
			diffs = append(diffs, fmt.Sprintf("container %s != %s", clip.Container, ref.Container))
		}
		if len(diffs) > 0 {
			return false, fmt.Sprintf("%s vs %s: %s", clip.Path, ref.Path, strings.Join(diffs, ", "))
		}
	}
	return true, ""
}

// sampleAspect treats an unset or unknown sample aspect ratio as square.
func sampleAspect(sar string) string {
	switch sar {
	case "", "0:1", "N/A":
		return "1:1"
	}
	return sar
}
