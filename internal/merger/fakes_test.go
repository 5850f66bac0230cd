package merger

import (
	"context"
	"fmt"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

var t0 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func stamp(n int) string {
	return day(n).Format(time.RFC3339)
}

// issue builds a raw issue created on day n; milestone 0 means none
func issue(iid int64, milestone int64, n int) domain.RawIssue {
	raw := domain.RawIssue{ID: 1000 + iid, IID: iid, Title: fmt.Sprintf("issue %d", iid), CreatedAt: stamp(n)}
	if milestone != 0 {
		raw.Milestone = &domain.RawMilestone{ID: milestone, Title: fmt.Sprintf("m%d", milestone)}
	}
	return raw
}

func closeNote(n int) domain.RawNote {
	return domain.RawNote{System: true, Body: "closed", CreatedAt: stamp(n)}
}

// fakeCollector serves fixed pages; pages[0] is page 1
type fakeCollector struct {
	pages     [][]domain.RawIssue
	notes     map[int64][]domain.RawNote
	requested []int
	noteCalls []int64
	listErr   error
}

func (f *fakeCollector) ListIssues(ctx context.Context, project string, page int) (*domain.IssuePage, error) {
	f.requested = append(f.requested, page)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if page < 1 || page > len(f.pages) {
		return &domain.IssuePage{}, nil
	}
	next := 0
	if page < len(f.pages) {
		next = page + 1
	}
	return &domain.IssuePage{Issues: f.pages[page-1], NextPage: next}, nil
}

func (f *fakeCollector) ListNotes(ctx context.Context, project string, issue domain.RawIssue) ([]domain.RawNote, error) {
	f.noteCalls = append(f.noteCalls, issue.IID)
	return f.notes[issue.IID], nil
}

// memoryStore keeps snapshots in a map
type memoryStore struct {
	snapshots map[string]*domain.Snapshot
	saves     int
	loadErr   error
	saveErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: make(map[string]*domain.Snapshot)}
}

func (s *memoryStore) Load(ctx context.Context, project string) (*domain.Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	snap, ok := s.snapshots[project]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *memoryStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snapshots[snap.Project] = snap
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
