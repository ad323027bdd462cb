// Package firmware loads opaque hypervisor images by well-known name.
package firmware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no image exists under the requested name.
var ErrNotFound = errors.New("firmware image not found")

// Loader fetches opaque image blobs by name. Fetch returns the full image
// contents; Release signals that the caller no longer needs them, letting an
// implementation return pooled or mapped buffers.
type Loader interface {
	Fetch(name string) ([]byte, error)
	Release(data []byte)
}

// compile-time interface check.
var _ Loader = (*DirLoader)(nil)

// DirLoader reads images from a flat directory. Names are restricted to
// plain file names so a request cannot escape the directory.
type DirLoader struct {
	dir string
}

// NewDirLoader creates a DirLoader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

// Fetch reads the named image. Returns ErrNotFound if it does not exist.
func (l *DirLoader) Fetch(name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid image name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name)) //nolint:gosec // name restricted above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}
	return data, nil
}

// Release is a no-op for file-backed images.
func (l *DirLoader) Release([]byte) {}
