package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// TempFile is a named temporary file whose lifetime is scoped by the caller.
// The usual pattern is
//
//	tmp, err := audio.CreateTemp(dir, "input-*.wav")
//	if err != nil { ... }
//	defer tmp.Remove()
//
// so the file is deleted on every exit path.
type TempFile struct {
	path string
}

// CreateTemp creates an empty file in dir (os.TempDir when empty) and closes it
func CreateTemp(dir, pattern string) (*TempFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}
	return &TempFile{path: f.Name()}, nil
}

// Path returns the file location
func (t *TempFile) Path() string {
	return t.path
}

// Remove deletes the file. Removing an already deleted file is not an error.
func (t *TempFile) Remove() error {
	if t == nil || t.path == "" {
		return nil
	}
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temporary file %s: %w", t.path, err)
	}
	return nil
}
