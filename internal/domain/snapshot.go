package domain

import "time"

// SnapshotVersion is the current cache snapshot schema version
const SnapshotVersion = 1

// Snapshot is the persisted aggregation state of one project
type Snapshot struct {
	Version    int                 `json:"version"`
	Project    string              `json:"project"`
	RunID      string              `json:"run_id"`
	WrittenAt  time.Time           `json:"written_at"`
	Milestones []SnapshotMilestone `json:"milestones"`
}

// SnapshotMilestone is the persisted state of one milestone
type SnapshotMilestone struct {
	Key       string          `json:"key"` // MilestoneKey.String
	Title     string          `json:"title"`
	FirstSeen time.Time       `json:"first_seen"`
	Deltas    []SnapshotDelta `json:"deltas"`
}

// SnapshotDelta is the net change at one timestamp
type SnapshotDelta struct {
	At    time.Time `json:"at"`
	Delta int64     `json:"delta"`
}
