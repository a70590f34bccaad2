package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pvforge/helios/internal/domain/solar"
)

// LocalStorage keeps blobs under a media root on disk. Keys use forward
// slashes and map to subdirectories.
type LocalStorage struct {
	root string
}

// NewLocalStorage constructs storage rooted at dir, creating it if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStorage{root: abs}, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes media root", key)
	}
	return path, nil
}

// Put writes the blob to disk.
func (s *LocalStorage) Put(_ context.Context, key string, data []byte, mimeType string) (solar.StoredObject, error) {
	path, err := s.resolve(key)
	if err != nil {
		return solar.StoredObject{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return solar.StoredObject{}, fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return solar.StoredObject{}, fmt.Errorf("write blob: %w", err)
	}
	hash := md5.Sum(data)
	return solar.StoredObject{
		Key:      key,
		Size:     int64(len(data)),
		MimeType: mimeType,
		ETag:     hex.EncodeToString(hash[:]),
	}, nil
}

// Get opens the blob for reading.
func (s *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, solar.ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the blob, tolerating missing keys.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ solar.ObjectStorage = (*LocalStorage)(nil)
