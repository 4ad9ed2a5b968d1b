// Package artifact owns every file the merge pipeline creates besides the
// final output: concat manifests, the per-request workspace holding chunk
// outputs, and the staging file the final output is written to before it
// is moved into place.
package artifact

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// manifestPrefix starts every manifest file name.
const manifestPrefix = "concat-"

// EscapePath renders one concat demuxer entry for path.
//
// The path is made absolute and wrapped in single quotes; embedded single
// quotes become '\''. Newlines cannot be represented in the format and are
// rejected, because the demuxer would silently split the entry in two.
func EscapePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("manifest entry cannot be empty")
	}
	if strings.ContainsAny(path, "\n\r") {
		return "", fmt.Errorf("path %q contains a newline and cannot be listed in a concat manifest", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	return "file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'", nil
}

// WriteManifest writes the concat list for paths into dir and returns its
// path. Entries are written in the order given. The file name is unique per
// call.
func WriteManifest(dir string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("manifest needs at least one entry")
	}

	lines := make([]string, len(paths))
	for i, p := range paths {
		line, err := EscapePath(p)
		if err != nil {
			return "", err
		}
		lines[i] = line
	}

	name := filepath.Join(dir, manifestPrefix+uuid.NewString()+".txt")
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = f.Close()
			_ = os.Remove(name)
			return "", fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close manifest: %w", err)
	}
	return name, nil
}

// WithManifest writes a manifest for paths, calls fn with its path, and
// removes the manifest when fn returns or panics.
func WithManifest(dir string, paths []string, fn func(manifest string) error) (err error) {
	manifest, err := WriteManifest(dir, paths)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(manifest); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("failed to remove manifest: %w", rmErr)
		}
	}()
	return fn(manifest)
}

// ReadManifest parses a manifest written by WriteManifest back into paths.
func ReadManifest(manifest string) ([]string, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		rest, ok := strings.CutPrefix(line, "file '")
		if !ok || !strings.HasSuffix(rest, "'") {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		paths = append(paths, strings.ReplaceAll(strings.TrimSuffix(rest, "'"), `'\''`, "'"))
	}
	return paths, nil
}
