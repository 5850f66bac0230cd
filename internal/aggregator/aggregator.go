// Package aggregator accumulates per-milestone open/close deltas.
package aggregator

import (
	"fmt"
	"slices"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// milestoneState holds the metadata and delta mapping of one milestone
type milestoneState struct {
	meta   domain.Milestone
	deltas map[time.Time]int64
}

// Aggregator accumulates per-milestone open/close deltas.
// It is not safe for concurrent use.
type Aggregator struct {
	milestones map[domain.MilestoneKey]*milestoneState
	points     map[time.Time]struct{}
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		milestones: make(map[domain.MilestoneKey]*milestoneState),
		points:     make(map[time.Time]struct{}),
	}
}

// Add records +1 at the event's open time and -1 at its close time, if any
func (a *Aggregator) Add(event domain.IssueEvent) {
	opened := event.OpenedAt.UTC()
	state := a.resolve(event.Milestone, event.MilestoneTitle, opened)

	a.addDelta(state, opened, 1)
	if event.ClosedAt != nil {
		a.addDelta(state, event.ClosedAt.UTC(), -1)
	}
}

// AddAll adds every event in order
func (a *Aggregator) AddAll(events []domain.IssueEvent) {
	for _, event := range events {
		a.Add(event)
	}
}

// resolve returns the state for key, registering the title on first sight and
// lowering the first-seen time when an earlier open time shows up
func (a *Aggregator) resolve(key domain.MilestoneKey, title string, opened time.Time) *milestoneState {
	state, ok := a.milestones[key]
	if !ok {
		state = &milestoneState{
			meta:   domain.Milestone{Key: key, Title: title, FirstSeen: opened},
			deltas: make(map[time.Time]int64),
		}
		a.milestones[key] = state
		return state
	}
	if opened.Before(state.meta.FirstSeen) {
		state.meta.FirstSeen = opened
	}
	return state
}

func (a *Aggregator) addDelta(state *milestoneState, at time.Time, delta int64) {
	state.deltas[at] += delta
	a.points[at] = struct{}{}
}

// Len returns the number of milestones seen
func (a *Aggregator) Len() int {
	return len(a.milestones)
}

// Points returns the global timestamp set sorted ascending
func (a *Aggregator) Points() []time.Time {
	points := make([]time.Time, 0, len(a.points))
	for t := range a.points {
		points = append(points, t)
	}
	slices.SortFunc(points, func(x, y time.Time) int { return x.Compare(y) })
	return points
}

// MostRecent returns the newest timestamp seen, or false if there is none
func (a *Aggregator) MostRecent() (time.Time, bool) {
	var newest time.Time
	found := false
	for t := range a.points {
		if !found || t.After(newest) {
			newest = t
			found = true
		}
	}
	return newest, found
}

// Milestones returns milestone metadata ordered by first-seen time, ties by key
func (a *Aggregator) Milestones() []domain.Milestone {
	milestones := make([]domain.Milestone, 0, len(a.milestones))
	for _, state := range a.milestones {
		milestones = append(milestones, state.meta)
	}
	slices.SortFunc(milestones, func(x, y domain.Milestone) int {
		if c := x.FirstSeen.Compare(y.FirstSeen); c != 0 {
			return c
		}
		switch {
		case x.Key.Less(y.Key):
			return -1
		case y.Key.Less(x.Key):
			return 1
		}
		return 0
	})
	return milestones
}

// Delta returns the net change of a milestone at t; 0 when nothing was recorded
func (a *Aggregator) Delta(key domain.MilestoneKey, t time.Time) int64 {
	state, ok := a.milestones[key]
	if !ok {
		return 0
	}
	return state.deltas[t.UTC()]
}

// Snapshot exports the state in the persisted schema.
// Milestones are ordered like Milestones() and deltas by time.
func (a *Aggregator) Snapshot(project string) *domain.Snapshot {
	snap := &domain.Snapshot{
		Version: domain.SnapshotVersion,
		Project: project,
	}
	for _, meta := range a.Milestones() {
		state := a.milestones[meta.Key]
		deltas := make([]domain.SnapshotDelta, 0, len(state.deltas))
		for at, delta := range state.deltas {
			deltas = append(deltas, domain.SnapshotDelta{At: at, Delta: delta})
		}
		slices.SortFunc(deltas, func(x, y domain.SnapshotDelta) int { return x.At.Compare(y.At) })

		snap.Milestones = append(snap.Milestones, domain.SnapshotMilestone{
			Key:       meta.Key.String(),
			Title:     meta.Title,
			FirstSeen: meta.FirstSeen,
			Deltas:    deltas,
		})
	}
	return snap
}

// FromSnapshot rebuilds an aggregator from persisted state.
// The global timestamp set is derived from the delta keys.
func FromSnapshot(snap *domain.Snapshot) (*Aggregator, error) {
	agg := NewAggregator()
	if snap == nil {
		return agg, nil
	}
	if snap.Version != domain.SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	for _, m := range snap.Milestones {
		key, err := domain.ParseMilestoneKey(m.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := agg.milestones[key]; dup {
			return nil, fmt.Errorf("duplicate milestone %s in snapshot", key)
		}

		state := &milestoneState{
			meta:   domain.Milestone{Key: key, Title: m.Title, FirstSeen: m.FirstSeen.UTC()},
			deltas: make(map[time.Time]int64, len(m.Deltas)),
		}
		agg.milestones[key] = state
		for _, d := range m.Deltas {
			agg.addDelta(state, d.At.UTC(), d.Delta)
		}
	}
	return agg, nil
}
