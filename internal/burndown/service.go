// Package burndown runs the full pipeline from tracker to chart.
package burndown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurihiro0119/issue-burndown/internal/aggregator"
	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
	"github.com/kurihiro0119/issue-burndown/internal/merger"
	"github.com/kurihiro0119/issue-burndown/internal/render"
	"github.com/kurihiro0119/issue-burndown/internal/series"
	"github.com/kurihiro0119/issue-burndown/internal/smoothing"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// Request describes one pipeline run
type Request struct {
	Project   string
	Since     *time.Time // nil keeps the whole history
	Smoothing smoothing.Options
}

// Result is the output of a pipeline run
type Result struct {
	Chart    *domain.Chart
	Burndown *domain.Burndown // exact step values after Since was applied
	Stats    merger.Stats
}

// Service builds burndown charts
type Service struct {
	store  storage.SnapshotStore
	merger *merger.Merger
	logger zerolog.Logger
}

// NewService creates a service. merger may be nil when only stored
// snapshots are charted.
func NewService(store storage.SnapshotStore, m *merger.Merger, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		merger: m,
		logger: logger,
	}
}

// Run brings the cache up to date and builds the chart
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if s.merger == nil {
		return nil, apperrors.NewInternalError("no tracker configured", nil)
	}

	agg, stats, err := s.merger.Run(ctx, req.Project)
	if err != nil {
		return nil, err
	}

	chart, restricted := s.build(req.Project, agg, req.Since, req.Smoothing)
	return &Result{Chart: chart, Burndown: restricted, Stats: stats}, nil
}

// Chart builds a chart from the stored snapshot without contacting the tracker
func (s *Service) Chart(ctx context.Context, project string, since *time.Time, opts smoothing.Options) (*domain.Chart, error) {
	snap, err := s.store.Load(ctx, project)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("snapshot of %s", project))
	}
	if err != nil {
		return nil, apperrors.NewCacheReadError(fmt.Sprintf("load snapshot of %s", project), err)
	}

	agg, err := aggregator.FromSnapshot(snap)
	if err != nil {
		return nil, apperrors.NewCacheReadError(fmt.Sprintf("decode snapshot of %s", project), err)
	}

	chart, _ := s.build(project, agg, since, opts)
	return chart, nil
}

func (s *Service) build(project string, agg *aggregator.Aggregator, since *time.Time, opts smoothing.Options) (*domain.Chart, *domain.Burndown) {
	full, negatives := series.Build(agg)
	for _, n := range negatives {
		err := apperrors.NewNegativeCumulativeError(fmt.Sprintf("milestone %q has %d open issues", n.Milestone.Title, n.Value))
		s.logger.Warn().
			Err(err).
			Str("project", project).
			Str("milestone", n.Milestone.Key.String()).
			Time("at", n.At).
			Msg("cumulative count below zero, source data closes issues that were never opened")
	}

	restricted := series.Restrict(full, since)
	resampled := smoothing.Resample(restricted, opts)

	chart := &domain.Chart{
		Title:      render.DefaultTitle,
		Project:    project,
		Timestamps: resampled.Timestamps,
		Warnings:   negatives,
		Smoothed:   resampled.Smoothed,
	}
	if n := len(full.Timestamps); n > 0 {
		last := full.Timestamps[n-1]
		chart.LastChange = &last
	}

	for i, ms := range restricted.Series {
		cs := domain.ChartSeries{
			Label:  render.Label(ms.Milestone.Title),
			Values: resampled.Series[i].Values,
		}
		if n := len(ms.Values); n > 0 {
			cs.Current = ms.Values[n-1]
			cs.Peak = ms.Values[0]
			for _, v := range ms.Values {
				cs.Peak = max(cs.Peak, v)
			}
		}
		chart.Series = append(chart.Series, cs)
	}

	return chart, restricted
}
