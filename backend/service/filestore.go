package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// FileStore is the canonical document storage. Names are storage-relative and slash separated.
type FileStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte, contentType string) error
	// List returns the base names of the files directly inside dir
	List(ctx context.Context, dir string) ([]string, error)
	// Delete removes name; a missing file is not an error
	Delete(ctx context.Context, name string) error
}

const partialMarker = ".partial-"

// DiskStore keeps documents on a filesystem rooted at the storage root
type DiskStore struct {
	fs afero.Fs
}

// NewDiskStore creates a store rooted at root on the local disk
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return NewDiskStoreFs(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

// NewDiskStoreFs creates a store over an arbitrary afero filesystem
func NewDiskStoreFs(fs afero.Fs) *DiskStore {
	return &DiskStore{fs: fs}
}

func (s *DiskStore) Read(_ context.Context, name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, filepath.FromSlash(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces name atomically: readers see either the old or the new content
func (s *DiskStore) Write(_ context.Context, name string, data []byte, _ string) error {
	target := filepath.FromSlash(name)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	tmp := target + partialMarker + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, data, 0o640); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

func (s *DiskStore) List(_ context.Context, dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, filepath.FromSlash(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.Contains(info.Name(), partialMarker) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *DiskStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(filepath.FromSlash(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// joinDir joins a listed base name back onto its directory
func joinDir(dir, name string) string {
	return path.Join(dir, name)
}
