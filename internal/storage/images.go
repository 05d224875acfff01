// Package storage keeps uploaded images on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for files that are not images.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("image too large")

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Images saves files under Dir as <uuid><ext>.
type Images struct {
	Dir      string
	MaxBytes int64
}

func NewImages(dir string, maxBytes int64) (*Images, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Images{Dir: dir, MaxBytes: maxBytes}, nil
}

// Save copies r into a new file named after a random UUID and the
// extension of original. It returns the stored file name.
func (s *Images) Save(original string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.MaxBytes > 0 && n > s.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

// Remove deletes a stored image. Missing files and empty names are ignored.
func (s *Images) Remove(name string) error {
	if name == "" {
		return nil
	}
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		return fmt.Errorf("invalid image name %q", name)
	}
	err := os.Remove(filepath.Join(s.Dir, base))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
