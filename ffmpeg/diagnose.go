// Package ffmpeg interprets ffmpeg output: -progress blocks and the stderr
// text a failed invocation leaves behind.
package ffmpeg

import (
	"regexp"
	"strings"
)

// DiagnosisKind names a recognised failure cause.
type DiagnosisKind string

const (
	NonMonotonicTimestamps DiagnosisKind = "non-monotonic-timestamps"
	InvalidData            DiagnosisKind = "invalid-data"
	CodecParameterMismatch DiagnosisKind = "codec-parameter-mismatch"
	MissingInput           DiagnosisKind = "missing-input"
	PermissionDenied       DiagnosisKind = "permission-denied"
	DiskFull               DiagnosisKind = "disk-full"
	Unknown                DiagnosisKind = "unknown"
)

// Diagnosis is the classified cause of a failure plus the stderr line that
// matched.
type Diagnosis struct {
	Kind DiagnosisKind
	Line string
}

func (d Diagnosis) String() string {
	if d.Line == "" {
		return string(d.Kind)
	}
	return string(d.Kind) + ": " + d.Line
}

var diagnosisPatterns = []struct {
	kind DiagnosisKind
	re   *regexp.Regexp
}{
	{DiskFull, regexp.MustCompile(`(?i)no space left on device`)},
	{PermissionDenied, regexp.MustCompile(`(?i)permission denied|operation not permitted`)},
	{MissingInput, regexp.MustCompile(`(?i)no such file or directory|impossible to open`)},
	{NonMonotonicTimestamps, regexp.MustCompile(`(?i)non[- ]monoton(ous|ic) dts|timestamps are unset|pts has no value|invalid dts|dts < pcr|application provided invalid`)},
	{CodecParameterMismatch, regexp.MustCompile(`(?i)codec parameters|could not find tag for codec|incompatible|does not match|input link .* parameters .* do not match|could not write header`)},
	{InvalidData, regexp.MustCompile(`(?i)invalid data found|moov atom not found|error while decoding|corrupt|invalid nal|header missing|truncat`)},
}

// Diagnose classifies ffmpeg stderr. Patterns are checked in priority order
// against every line, host problems first.
func Diagnose(stderr string) Diagnosis {
	lines := strings.Split(stderr, "\n")
	for _, p := range diagnosisPatterns {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line != "" && p.re.MatchString(line) {
				return Diagnosis{Kind: p.kind, Line: line}
			}
		}
	}
	return Diagnosis{Kind: Unknown, Line: lastNonEmpty(lines)}
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
