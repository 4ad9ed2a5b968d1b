package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"reelmerge/internal/timeutil"
	"reelmerge/models"
)

// ProgressParser parses the key=value blocks ffmpeg writes with
// `-progress pipe:1 -nostats`. Each block ends with a progress=continue or
// progress=end line.
type ProgressParser struct {
	// Regular expressions for values that carry padding or units
	frameRegex *regexp.Regexp
	fpsRegex   *regexp.Regexp
	speedRegex *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg progress output
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		// Match both "frame=123" and "frame= 123" formats
		frameRegex: regexp.MustCompile(`^frame=\s*(\d+)`),
		fpsRegex:   regexp.MustCompile(`^fps=\s*([0-9.]+)`),
		// "speed=2.01x", "speed= 2.01x", and "speed=N/A" before the first frame
		speedRegex: regexp.MustCompile(`^speed=\s*([0-9.]+)x?`),
	}
}

// ParseLine applies one line to progress.
//
// It returns updated when a field changed and blockEnd when the line closes
// a progress block (progress=continue or progress=end).
func (pp *ProgressParser) ParseLine(line string, progress *models.Progress) (updated, blockEnd bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, false
	}

	switch line {
	case "progress=continue":
		progress.State = models.ProgressStateEncoding
		return false, true
	case "progress=end":
		progress.State = models.ProgressStateCompleted
		if progress.TotalDuration > 0 {
			progress.Update(progress.TotalDuration)
		}
		return true, true
	}

	// Parse frame number
	if matches := pp.frameRegex.FindStringSubmatch(line); len(matches) > 1 {
		if frame, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			progress.Frame = frame
			return true, false
		}
	}

	// Parse FPS
	if matches := pp.fpsRegex.FindStringSubmatch(line); len(matches) > 1 {
		if fps, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.FPS = fps
			return true, false
		}
	}

	// Parse speed
	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		if speed, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.Speed = speed
			return true, false
		}
	}

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return false, false
	}

	// Output position. out_time_ms is in microseconds despite its name;
	// out_time_us exists since ffmpeg 4.4. out_time is the clock form.
	switch key {
	case "out_time_us", "out_time_ms":
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			progress.Update(float64(us) / 1e6)
			return true, false
		}
	case "out_time":
		if secs, err := timeutil.ParseClock(value); err == nil && secs >= 0 {
			progress.Update(secs)
			return true, false
		}
	}

	return false, false
}

// StreamProgress reads progress output from reader and calls callback once
// per completed block
func (pp *ProgressParser) StreamProgress(reader io.Reader, progress *models.Progress, callback models.ProgressCallback) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	blocks := 0
	for scanner.Scan() {
		if _, end := pp.ParseLine(scanner.Text(), progress); end {
			blocks++
			if callback != nil {
				callback(progress)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ffmpeg output: %w", err)
	}

	// Check if we captured any progress
	if blocks == 0 {
		return fmt.Errorf("no progress output captured from ffmpeg")
	}

	return nil
}

// LineHandler returns a line callback for runner.Spec.OnStdoutLine that
// feeds progress and invokes callback at the end of every block.
// The returned function is safe for use from one goroutine at a time.
func (pp *ProgressParser) LineHandler(progress *models.Progress, callback models.ProgressCallback) func(string) {
	var mu sync.Mutex
	return func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if _, end := pp.ParseLine(line, progress); end && callback != nil {
			callback(progress)
		}
	}
}
