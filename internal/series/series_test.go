package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/issue-burndown/internal/aggregator"
	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func closed(n int) *time.Time {
	t := day(n)
	return &t
}

func event(id int64, title string, open int, close *time.Time) domain.IssueEvent {
	return domain.IssueEvent{Milestone: domain.MilestoneID(id), MilestoneTitle: title, OpenedAt: day(open), ClosedAt: close}
}

func TestBuild_CloseAndOpenAtSameInstant(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, closed(1)))
	agg.Add(event(1, "v1", 1, nil))

	b, negatives := Build(agg)
	assert.Empty(t, negatives)
	assert.Equal(t, []time.Time{day(0), day(1)}, b.Timestamps)
	require.Len(t, b.Series, 1)
	assert.Equal(t, "v1", b.Series[0].Milestone.Title)
	assert.Equal(t, []int64{1, 1}, b.Series[0].Values)
}

func TestBuild_EvaluatesOverGlobalAxis(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, closed(4)))
	agg.Add(event(2, "v2", 2, closed(3)))

	b, _ := Build(agg)
	assert.Equal(t, []time.Time{day(0), day(2), day(3), day(4)}, b.Timestamps)
	require.Len(t, b.Series, 2)
	assert.Equal(t, []int64{1, 1, 1, 0}, b.Series[0].Values)
	assert.Equal(t, []int64{0, 1, 0, 0}, b.Series[1].Values)
}

func TestBuild_DropsAllZeroSeriesPreservingOrder(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "first", 0, closed(5)))
	// opens and closes at the same instant: never counted as open
	agg.Add(event(2, "empty", 1, closed(1)))
	agg.Add(event(3, "third", 2, nil))

	b, _ := Build(agg)
	require.Len(t, b.Series, 2)
	assert.Equal(t, "first", b.Series[0].Milestone.Title)
	assert.Equal(t, "third", b.Series[1].Milestone.Title)
	for _, s := range b.Series {
		assert.Len(t, s.Values, len(b.Timestamps))
	}
}

func TestBuild_ReportsNegativeWithoutClamping(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 2, nil))
	// a snapshot from corrupt data: close recorded before any open
	snap := agg.Snapshot("p")
	snap.Milestones[0].Deltas = append([]domain.SnapshotDelta{{At: day(0), Delta: -1}}, snap.Milestones[0].Deltas...)
	corrupt, err := aggregator.FromSnapshot(snap)
	require.NoError(t, err)

	b, negatives := Build(corrupt)
	require.Len(t, negatives, 1)
	assert.Equal(t, day(0), negatives[0].At)
	assert.Equal(t, int64(-1), negatives[0].Value)
	assert.Equal(t, "v1", negatives[0].Milestone.Title)
	assert.Equal(t, []int64{-1, 0}, b.Series[0].Values)
}

func TestBuild_Empty(t *testing.T) {
	b, negatives := Build(aggregator.NewAggregator())
	assert.Empty(t, b.Timestamps)
	assert.Empty(t, b.Series)
	assert.Empty(t, negatives)
	assert.Empty(t, Totals(b))
}

func TestBuild_TotalsMatchOpenIntervals(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	agg := aggregator.NewAggregator()
	var events []domain.IssueEvent

	for i := 0; i < 200; i++ {
		open := rng.Intn(60)
		var close *time.Time
		if rng.Intn(3) > 0 {
			close = closed(open + rng.Intn(30))
		}
		e := event(int64(rng.Intn(5)), "m", open, close)
		if rng.Intn(6) == 0 {
			e.Milestone = domain.NoMilestone()
		}
		events = append(events, e)
		agg.Add(e)
	}

	b, negatives := Build(agg)
	assert.Empty(t, negatives)

	totals := Totals(b)
	for i, x := range b.Timestamps {
		var want int64
		for _, e := range events {
			if !e.OpenedAt.After(x) && (e.ClosedAt == nil || x.Before(*e.ClosedAt)) {
				want++
			}
		}
		assert.Equal(t, want, totals[i], "at %s", x)
	}
	for _, s := range b.Series {
		for _, v := range s.Values {
			assert.GreaterOrEqual(t, v, int64(0))
		}
	}
}

func TestRestrict_KeepsTailValues(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, closed(3)))
	agg.Add(event(1, "v1", 1, nil))
	agg.Add(event(2, "v2", 2, closed(4)))

	full, _ := Build(agg)
	since := day(2).Add(-time.Hour)
	cut := Restrict(full, &since)

	assert.Equal(t, []time.Time{day(2), day(3), day(4)}, cut.Timestamps)
	require.Len(t, cut.Series, len(full.Series))
	offset := len(full.Timestamps) - len(cut.Timestamps)
	for i, s := range cut.Series {
		assert.Equal(t, full.Series[i].Milestone, s.Milestone)
		assert.Equal(t, full.Series[i].Values[offset:], s.Values)
	}
}

func TestRestrict_InclusiveBound(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, closed(2)))

	full, _ := Build(agg)
	since := day(2)
	cut := Restrict(full, &since)
	assert.Equal(t, []time.Time{day(2)}, cut.Timestamps)
	assert.Equal(t, []int64{0}, cut.Series[0].Values)
}

func TestRestrict_NilSinceIsNoop(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, nil))
	full, _ := Build(agg)

	assert.Same(t, full, Restrict(full, nil))
}

func TestRestrict_AfterEverything(t *testing.T) {
	agg := aggregator.NewAggregator()
	agg.Add(event(1, "v1", 0, nil))
	full, _ := Build(agg)

	since := day(30)
	cut := Restrict(full, &since)
	assert.Empty(t, cut.Timestamps)
	require.Len(t, cut.Series, 1)
	assert.Empty(t, cut.Series[0].Values)
}
