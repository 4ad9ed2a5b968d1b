package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Workspace is a private directory for one merge request. Chunk outputs and
// manifests live here and disappear with Cleanup.
type Workspace struct {
	dir string
}

// NewWorkspace creates a uniquely named directory under base (the system
// temp dir when base is empty).
func NewWorkspace(base string) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir %s: %w", base, err)
	}
	dir := filepath.Join(base, "reelmerge-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// ChunkPath returns the path for an intermediate output named after label.
func (w *Workspace) ChunkPath(label, ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(w.dir, "chunk-"+label+ext)
}

// Cleanup removes the workspace and everything in it. Safe to call twice.
func (w *Workspace) Cleanup() error {
	if w == nil || w.dir == "" {
		return nil
	}
	return os.RemoveAll(w.dir)
}

// RemoveStale deletes a previous output at path. A missing file is not an
// error; a directory is.
func RemoveStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove previous output %s: %w", path, err)
	}
	return nil
}

// StagingPath returns a unique hidden file beside output with the same
// extension, so ffmpeg picks the same muxer and the final rename stays on
// one filesystem.
func StagingPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+".partial-"+uuid.NewString()+ext)
}

// Commit moves a finished staging file onto output.
func Commit(staging, output string) error {
	if err := os.Rename(staging, output); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", staging, err)
	}
	return nil
}

// Discard removes a staging file that will not be committed.
func Discard(staging string) {
	if staging != "" {
		_ = os.Remove(staging)
	}
}

// FileSize returns the size of path, or 0 when it does not exist.
func FileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
