package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// timestampLayout renders YYYYMMDD_HHMMSS
const timestampLayout = "20060102_150405"

// maxNameCollisions bounds the suffix search when several images for one
// tag land in the same second
const maxNameCollisions = 1000

// ImageStorage defines the interface for image file storage operations
type ImageStorage interface {
	// Save writes content under a name derived from the identifier and the
	// current time and returns the stored path. Existing files are never
	// overwritten.
	Save(ctx context.Context, identifier string, content []byte) (string, error)

	// GetSize returns the size of a stored file
	GetSize(ctx context.Context, path string) (int64, error)
}

// LocalImageStorage implements ImageStorage on a flat local directory
type LocalImageStorage struct {
	dir string
	now func() time.Time
}

// NewLocalImageStorage creates the upload directory if absent
func NewLocalImageStorage(dir string) (*LocalImageStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	log.Debug().Str("dir", dir).Msg("Upload directory ready")
	return &LocalImageStorage{dir: dir, now: time.Now}, nil
}

// WithClock replaces the time source used for file names
func (s *LocalImageStorage) WithClock(now func() time.Time) *LocalImageStorage {
	s.now = now
	return s
}

// Dir returns the upload directory
func (s *LocalImageStorage) Dir() string {
	return s.dir
}

// FileName returns <identifier>_<YYYYMMDD_HHMMSS>.jpg, or with a _<n> suffix
// for n > 0
func FileName(identifier string, at time.Time, n int) string {
	stamp := at.UTC().Format(timestampLayout)
	if n == 0 {
		return fmt.Sprintf("%s_%s.jpg", identifier, stamp)
	}
	return fmt.Sprintf("%s_%s_%d.jpg", identifier, stamp, n)
}

func (s *LocalImageStorage) Save(ctx context.Context, identifier string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if identifier == "" || strings.ContainsAny(identifier, `/\`) || identifier != filepath.Base(identifier) {
		return "", fmt.Errorf("invalid identifier %q for file name", identifier)
	}

	at := s.now()
	for n := 0; n < maxNameCollisions; n++ {
		path := filepath.Join(s.dir, FileName(identifier, at, n))

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}

		log.Debug().Str("path", path).Int("size", len(content)).Msg("Writing image")
		if err := writeAndSync(file, content); err != nil {
			_ = os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", identifier, maxNameCollisions)
}

func writeAndSync(file *os.File, content []byte) error {
	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync image file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close image file: %w", err)
	}
	return nil
}

func (s *LocalImageStorage) GetSize(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
