package models

import "strings"

// DefectTag labels one specific deviation of a probed clip from the target
// profile that has to be remediated before (or by) merging.
type DefectTag uint8

const (
	DefectResolutionMismatch DefectTag = 1 << iota // width/height differ from the target
	DefectLowAudioBitrate                          // audio present but below the bitrate floor
	DefectNoAudio                                  // no audio stream at all
	DefectTimestampAnomaly                         // negative or non-monotonic timestamps at stream start
	DefectFrameRateMismatch                        // frame rate outside the target tolerance
)

// allDefects lists every tag in a stable order for iteration and printing.
var allDefects = []DefectTag{
	DefectResolutionMismatch,
	DefectLowAudioBitrate,
	DefectNoAudio,
	DefectTimestampAnomaly,
	DefectFrameRateMismatch,
}

// String returns the tag name used in logs and reports.
func (d DefectTag) String() string {
	switch d {
	case DefectResolutionMismatch:
		return "ResolutionMismatch"
	case DefectLowAudioBitrate:
		return "LowAudioBitrate"
	case DefectNoAudio:
		return "NoAudio"
	case DefectTimestampAnomaly:
		return "TimestampAnomaly"
	case DefectFrameRateMismatch:
		return "FrameRateMismatch"
	default:
		return "Unknown"
	}
}

// DefectSet is a set of DefectTag values. The zero value is the empty set.
type DefectSet uint8

// NewDefectSet builds a set from the given tags.
func NewDefectSet(tags ...DefectTag) DefectSet {
	var s DefectSet
	for _, t := range tags {
		s = s.Add(t)
	}
	return s
}

// Add returns a set that also contains tag.
func (s DefectSet) Add(tag DefectTag) DefectSet {
	return s | DefectSet(tag)
}

// Has reports whether tag is in the set.
func (s DefectSet) Has(tag DefectTag) bool {
	return s&DefectSet(tag) != 0
}

// Union returns the tags present in either set.
func (s DefectSet) Union(other DefectSet) DefectSet {
	return s | other
}

// IsEmpty reports whether the clip is clean.
func (s DefectSet) IsEmpty() bool {
	return s == 0
}

// Tags returns the tags in declaration order.
func (s DefectSet) Tags() []DefectTag {
	tags := make([]DefectTag, 0, len(allDefects))
	for _, t := range allDefects {
		if s.Has(t) {
			tags = append(tags, t)
		}
	}
	return tags
}

// String renders the set as "A,B" or "none".
func (s DefectSet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, len(allDefects))
	for _, t := range s.Tags() {
		names = append(names, t.String())
	}
	return strings.Join(names, ",")
}
