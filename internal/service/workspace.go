package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace confines every artifact and document path to one directory
type Workspace struct {
	dir         string
	maxFileSize int64
}

// NewWorkspace creates a guard rooted at dir. The directory does not have to
// exist yet.
func NewWorkspace(dir string, maxFileSize int64) (*Workspace, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	return &Workspace{dir: filepath.Clean(abs), maxFileSize: maxFileSize}, nil
}

// Dir returns the absolute workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Resolve turns path (relative paths are taken from the workspace) into a
// clean absolute path and rejects anything outside the workspace, including
// through symlinks.
func (w *Workspace) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.dir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	if !within(abs, w.dir) {
		return "", fmt.Errorf("path is outside workspace %s: %s", w.dir, path)
	}

	realDir := w.dir
	if resolved, err := filepath.EvalSymlinks(w.dir); err == nil {
		realDir = resolved
	}
	if resolved, err := evalExisting(abs); err == nil && !within(resolved, realDir) && !within(resolved, w.dir) {
		return "", fmt.Errorf("path escapes workspace through a symlink: %s", path)
	}
	return abs, nil
}

// ResolveInput resolves a path that must name an existing regular file no
// larger than the configured limit.
func (w *Workspace) ResolveInput(path string) (string, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}
	if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), w.maxFileSize)
	}
	return abs, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// evalExisting resolves symlinks in the longest existing prefix of path, so
// output files that do not exist yet are still checked through their parent.
func evalExisting(path string) (string, error) {
	rest := ""
	for p := path; ; p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing prefix of %s", path)
		}
		rest = filepath.Join(filepath.Base(p), rest)
	}
}
