package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// sqliteStorage implements the SnapshotStore interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.SnapshotStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		project TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		written_at INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshot_milestones (
		project TEXT NOT NULL,
		milestone_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		first_seen INTEGER NOT NULL,
		PRIMARY KEY (project, milestone_key)
	);

	CREATE TABLE IF NOT EXISTS snapshot_deltas (
		project TEXT NOT NULL,
		milestone_key TEXT NOT NULL,
		at INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		PRIMARY KEY (project, milestone_key, at)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshot_deltas_project ON snapshot_deltas(project);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load reads the snapshot of a project
func (s *sqliteStorage) Load(ctx context.Context, project string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Project: project}
	var writtenAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT version, run_id, written_at FROM snapshots WHERE project = ?
	`, project).Scan(&snap.Version, &snap.RunID, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.WrittenAt = time.Unix(0, writtenAt).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT milestone_key, title, first_seen FROM snapshot_milestones
		WHERE project = ? ORDER BY position
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var m domain.SnapshotMilestone
		var firstSeen int64
		if err := rows.Scan(&m.Key, &m.Title, &firstSeen); err != nil {
			return nil, err
		}
		m.FirstSeen = time.Unix(0, firstSeen).UTC()
		index[m.Key] = len(snap.Milestones)
		snap.Milestones = append(snap.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	deltaRows, err := s.db.QueryContext(ctx, `
		SELECT milestone_key, at, delta FROM snapshot_deltas
		WHERE project = ? ORDER BY milestone_key, at
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load deltas: %w", err)
	}
	defer deltaRows.Close()

	for deltaRows.Next() {
		var key string
		var at, delta int64
		if err := deltaRows.Scan(&key, &at, &delta); err != nil {
			return nil, err
		}
		i, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("delta for unknown milestone %q", key)
		}
		snap.Milestones[i].Deltas = append(snap.Milestones[i].Deltas, domain.SnapshotDelta{
			At:    time.Unix(0, at).UTC(),
			Delta: delta,
		})
	}
	return snap, deltaRows.Err()
}

// Save replaces the snapshot of snap.Project in one transaction
func (s *sqliteStorage) Save(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshot_deltas", "snapshot_milestones", "snapshots"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project = ?`, snap.Project); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (project, version, run_id, written_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, snap.Project, snap.Version, snap.RunID, snap.WrittenAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	milestoneStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_milestones (project, milestone_key, position, title, first_seen)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer milestoneStmt.Close()

	deltaStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_deltas (project, milestone_key, at, delta)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer deltaStmt.Close()

	for position, m := range snap.Milestones {
		if _, err := milestoneStmt.ExecContext(ctx, snap.Project, m.Key, position, m.Title, m.FirstSeen.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert milestone %s: %w", m.Key, err)
		}
		for _, d := range m.Deltas {
			if _, err := deltaStmt.ExecContext(ctx, snap.Project, m.Key, d.At.UnixNano(), d.Delta); err != nil {
				return fmt.Errorf("failed to insert delta for milestone %s: %w", m.Key, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
