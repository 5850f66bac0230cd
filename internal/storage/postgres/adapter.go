package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// postgresStorage implements the SnapshotStore interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.SnapshotStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		project TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		run_id UUID NOT NULL,
		written_at BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS snapshot_milestones (
		project TEXT NOT NULL REFERENCES snapshots(project) ON DELETE CASCADE,
		milestone_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		first_seen BIGINT NOT NULL,
		PRIMARY KEY (project, milestone_key)
	);

	CREATE TABLE IF NOT EXISTS snapshot_deltas (
		project TEXT NOT NULL,
		milestone_key TEXT NOT NULL,
		at BIGINT NOT NULL,
		delta BIGINT NOT NULL,
		PRIMARY KEY (project, milestone_key, at),
		FOREIGN KEY (project, milestone_key) REFERENCES snapshot_milestones(project, milestone_key) ON DELETE CASCADE
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load reads the snapshot of a project
func (s *postgresStorage) Load(ctx context.Context, project string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Project: project}
	var writtenAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT version, run_id, written_at FROM snapshots WHERE project = $1
	`, project).Scan(&snap.Version, &snap.RunID, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.WrittenAt = time.Unix(0, writtenAt).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.milestone_key, m.title, m.first_seen,
		       COALESCE(array_agg(d.at ORDER BY d.at) FILTER (WHERE d.at IS NOT NULL), '{}'),
		       COALESCE(array_agg(d.delta ORDER BY d.at) FILTER (WHERE d.at IS NOT NULL), '{}')
		FROM snapshot_milestones m
		LEFT JOIN snapshot_deltas d ON d.project = m.project AND d.milestone_key = m.milestone_key
		WHERE m.project = $1
		GROUP BY m.milestone_key, m.title, m.first_seen, m.position
		ORDER BY m.position
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.SnapshotMilestone
		var firstSeen int64
		var ats, deltas pq.Int64Array
		if err := rows.Scan(&m.Key, &m.Title, &firstSeen, &ats, &deltas); err != nil {
			return nil, err
		}
		if len(ats) != len(deltas) {
			return nil, fmt.Errorf("milestone %s: %d timestamps for %d deltas", m.Key, len(ats), len(deltas))
		}
		m.FirstSeen = time.Unix(0, firstSeen).UTC()
		for i := range ats {
			m.Deltas = append(m.Deltas, domain.SnapshotDelta{At: time.Unix(0, ats[i]).UTC(), Delta: deltas[i]})
		}
		snap.Milestones = append(snap.Milestones, m)
	}

	return snap, rows.Err()
}

// Save replaces the snapshot of snap.Project in one transaction
func (s *postgresStorage) Save(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// cascades to milestones and deltas
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE project = $1`, snap.Project); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (project, version, run_id, written_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, snap.Project, snap.Version, snap.RunID, snap.WrittenAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	milestoneStmt, err := tx.PrepareContext(ctx, pq.CopyIn("snapshot_milestones",
		"project", "milestone_key", "position", "title", "first_seen"))
	if err != nil {
		return err
	}
	for position, m := range snap.Milestones {
		if _, err := milestoneStmt.ExecContext(ctx, snap.Project, m.Key, position, m.Title, m.FirstSeen.UnixNano()); err != nil {
			milestoneStmt.Close()
			return fmt.Errorf("failed to copy milestone %s: %w", m.Key, err)
		}
	}
	if _, err := milestoneStmt.ExecContext(ctx); err != nil {
		milestoneStmt.Close()
		return fmt.Errorf("failed to flush milestones: %w", err)
	}
	if err := milestoneStmt.Close(); err != nil {
		return err
	}

	deltaStmt, err := tx.PrepareContext(ctx, pq.CopyIn("snapshot_deltas",
		"project", "milestone_key", "at", "delta"))
	if err != nil {
		return err
	}
	for _, m := range snap.Milestones {
		for _, d := range m.Deltas {
			if _, err := deltaStmt.ExecContext(ctx, snap.Project, m.Key, d.At.UnixNano(), d.Delta); err != nil {
				deltaStmt.Close()
				return fmt.Errorf("failed to copy delta for milestone %s: %w", m.Key, err)
			}
		}
	}
	if _, err := deltaStmt.ExecContext(ctx); err != nil {
		deltaStmt.Close()
		return fmt.Errorf("failed to flush deltas: %w", err)
	}
	if err := deltaStmt.Close(); err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
