// Package series turns aggregated deltas into cumulative burndown series.
package series

import (
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/aggregator"
	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// Build evaluates every milestone over the full global timestamp axis.
// Series are ordered by first-seen time and all-zero series are dropped.
// Negative cumulative values are reported, never clamped.
func Build(agg *aggregator.Aggregator) (*domain.Burndown, []domain.NegativeCumulative) {
	axis := agg.Points()
	burndown := &domain.Burndown{Timestamps: axis}

	var negatives []domain.NegativeCumulative
	for _, milestone := range agg.Milestones() {
		values := make([]int64, len(axis))
		var sum int64
		nonZero := false
		reported := false

		for i, t := range axis {
			sum += agg.Delta(milestone.Key, t)
			values[i] = sum
			if sum != 0 {
				nonZero = true
			}
			if sum < 0 && !reported {
				negatives = append(negatives, domain.NegativeCumulative{Milestone: milestone, At: t, Value: sum})
				reported = true
			}
		}

		if !nonZero {
			continue
		}
		burndown.Series = append(burndown.Series, domain.Series{Milestone: milestone, Values: values})
	}

	return burndown, negatives
}

// Restrict drops axis points before since. Cumulative values already encode
// the full history, so each series keeps its trailing values.
// A nil since returns b unchanged.
func Restrict(b *domain.Burndown, since *time.Time) *domain.Burndown {
	if since == nil || b == nil {
		return b
	}

	var axis []time.Time
	for _, t := range b.Timestamps {
		if !t.Before(*since) {
			axis = append(axis, t)
		}
	}

	restricted := &domain.Burndown{Timestamps: axis}
	for _, s := range b.Series {
		tail := s.Values[len(s.Values)-len(axis):]
		values := make([]int64, len(tail))
		copy(values, tail)
		restricted.Series = append(restricted.Series, domain.Series{Milestone: s.Milestone, Values: values})
	}
	return restricted
}

// Totals returns the number of open issues across all series at each axis point
func Totals(b *domain.Burndown) []int64 {
	totals := make([]int64, len(b.Timestamps))
	for _, s := range b.Series {
		for i, v := range s.Values {
			totals[i] += v
		}
	}
	return totals
}
