// Package storagetest holds the behavior every SnapshotStore must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// Snapshot returns a small snapshot for project
func Snapshot(project string) *domain.Snapshot {
	base := time.Date(2024, 2, 1, 12, 0, 0, 123_456_789, time.UTC)
	return &domain.Snapshot{
		Version:   domain.SnapshotVersion,
		Project:   project,
		RunID:     uuid.NewString(),
		WrittenAt: base.Add(48 * time.Hour),
		Milestones: []domain.SnapshotMilestone{
			{
				Key:       "none",
				Title:     domain.NoMilestoneTitle,
				FirstSeen: base,
				Deltas: []domain.SnapshotDelta{
					{At: base, Delta: 1},
					{At: base.Add(time.Hour), Delta: 0},
				},
			},
			{
				Key:       "12",
				Title:     "Release 1.0",
				FirstSeen: base.Add(time.Minute),
				Deltas: []domain.SnapshotDelta{
					{At: base.Add(time.Minute), Delta: 2},
					{At: base.Add(24 * time.Hour), Delta: -1},
				},
			},
			{
				Key:       "13",
				Title:     "Release 1.1 with an empty history",
				FirstSeen: base.Add(2 * time.Minute),
			},
		},
	}
}

// Run exercises the SnapshotStore contract against store
func Run(t *testing.T, store storage.SnapshotStore) {
	ctx := context.Background()

	t.Run("missing snapshot", func(t *testing.T) {
		_, err := store.Load(ctx, "group/missing")
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		want := Snapshot("group/project")
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx, "group/project")
		require.NoError(t, err)
		assertSameSnapshot(t, want, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		first := Snapshot("group/replaced")
		require.NoError(t, store.Save(ctx, first))

		second := Snapshot("group/replaced")
		second.Milestones = second.Milestones[1:2]
		second.Milestones[0].Deltas = append(second.Milestones[0].Deltas,
			domain.SnapshotDelta{At: second.WrittenAt, Delta: 1})
		require.NoError(t, store.Save(ctx, second))

		got, err := store.Load(ctx, "group/replaced")
		require.NoError(t, err)
		assertSameSnapshot(t, second, got)
	})
}

func assertSameSnapshot(t *testing.T, want, got *domain.Snapshot) {
	t.Helper()

	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Project, got.Project)
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.WrittenAt.Equal(got.WrittenAt), "written_at %s != %s", want.WrittenAt, got.WrittenAt)
	require.Len(t, got.Milestones, len(want.Milestones))

	for i, w := range want.Milestones {
		g := got.Milestones[i]
		assert.Equal(t, w.Key, g.Key)
		assert.Equal(t, w.Title, g.Title)
		assert.True(t, w.FirstSeen.Equal(g.FirstSeen))
		require.Len(t, g.Deltas, len(w.Deltas), "milestone %s", w.Key)
		for j, d := range w.Deltas {
			assert.True(t, d.At.Equal(g.Deltas[j].At), "milestone %s delta %d", w.Key, j)
			assert.Equal(t, d.Delta, g.Deltas[j].Delta)
		}
	}
}
