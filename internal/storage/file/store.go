// Package file stores snapshots as JSON files, optionally lz4-compressed.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// CompressedExtension selects lz4 compression when it ends the cache path
const CompressedExtension = ".lz4"

const defaultIndent = "  "

// fileStorage implements SnapshotStore with one file per store.
// Loading a project other than the stored one reports ErrSnapshotNotFound,
// so the next Save replaces the file.
type fileStorage struct {
	path     string
	compress bool
}

// NewFileStorage creates a file store at path
func NewFileStorage(path string) storage.SnapshotStore {
	return &fileStorage{
		path:     path,
		compress: strings.HasSuffix(path, CompressedExtension),
	}
}

// Load reads and decodes the snapshot file
func (s *fileStorage) Load(ctx context.Context, project string) (*domain.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.compress {
		r = lz4.NewReader(f)
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Project != project {
		return nil, fmt.Errorf("%w: %s belongs to project %q", storage.ErrSnapshotNotFound, s.path, snap.Project)
	}
	return &snap, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the old one
func (s *fileStorage) Save(ctx context.Context, snap *domain.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.encode(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *fileStorage) encode(w io.Writer, snap *domain.Snapshot) error {
	if !s.compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", defaultIndent)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	}

	zw := lz4.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for files
func (s *fileStorage) Close() error {
	return nil
}
