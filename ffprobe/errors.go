package ffprobe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a probe failed.
type ErrorKind string

const (
	FileUnreadable    ErrorKind = "FileUnreadable"    // missing, not a regular file, or permission denied
	UnsupportedFormat ErrorKind = "UnsupportedFormat" // ffprobe rejected the file or found no video stream
	ToolTimeout       ErrorKind = "ToolTimeout"       // ffprobe exceeded the per-call timeout
	MalformedOutput   ErrorKind = "MalformedOutput"   // ffprobe succeeded but its output is unusable
	ToolUnavailable   ErrorKind = "ToolUnavailable"   // the ffprobe binary could not be started
)

// ProbeError is returned by Prober.Probe for every failure except context
// cancellation, which is returned as the context error.
type ProbeError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("probe %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a ProbeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProbeError
	return errors.As(err, &pe) && pe.Kind == kind
}

func newProbeError(kind ErrorKind, path string, format string, args ...any) *ProbeError {
	return &ProbeError{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}
