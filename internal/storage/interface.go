package storage

import (
	"context"
	"errors"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has been saved yet
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore is the abstract interface for the persistence layer.
// Snapshots are keyed by project so a single database can hold many.
type SnapshotStore interface {
	// Load returns the saved snapshot or ErrSnapshotNotFound
	Load(ctx context.Context, project string) (*domain.Snapshot, error)

	// Save replaces the saved snapshot of snap.Project
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Connection management
	Close() error
}
