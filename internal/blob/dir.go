// Package blob stores payment proof images on disk.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir stores blobs as files in a single directory, named by a fresh UUID so
// concurrent saves never collide. The returned ref is the bare file name.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a store over it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Save writes the reader's content to a new file and returns its ref.
// ext, when non-empty, is appended to the name ("jpg" and ".jpg" both work).
func (d *Dir) Save(r io.Reader, ext string) (string, error) {
	name := uuid.NewString()
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}

	f, err := os.Create(filepath.Join(d.root, name))
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob %s: %w", name, err)
	}
	return name, nil
}

// Open returns a reader over a stored blob. Refs are validated so a
// crafted ref cannot escape the root directory.
func (d *Dir) Open(ref string) (io.ReadCloser, error) {
	if ref == "" || ref != filepath.Base(ref) {
		return nil, fmt.Errorf("invalid blob ref %q", ref)
	}
	f, err := os.Open(filepath.Join(d.root, ref))
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", ref, err)
	}
	return f, nil
}
