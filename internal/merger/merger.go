// Package merger brings a cached aggregation up to date with the tracker.
package merger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kurihiro0119/issue-burndown/internal/aggregator"
	"github.com/kurihiro0119/issue-burndown/internal/collector"
	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
	"github.com/kurihiro0119/issue-burndown/internal/extractor"
	"github.com/kurihiro0119/issue-burndown/internal/metrics"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
)

// DefaultBoundaryLookahead is the number of extra pages scanned after the
// first already-cached issue
const DefaultBoundaryLookahead = 1

// Stats describes one merge run
type Stats struct {
	RunID        string
	ColdStart    bool
	Pages        int
	IssuesSeen   int
	IssuesMerged int
	OutOfOrder   int // newer than the cache boundary but listed after it
}

// Merger loads the cached state, fetches issues newer than it and saves
// the merged result.
type Merger struct {
	store     storage.SnapshotStore
	collector collector.Collector
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	// BoundaryLookahead is how many pages are still scanned once an issue
	// at or before the cache boundary shows up. 0 stops at that issue's page.
	BoundaryLookahead int

	now func() time.Time
}

// NewMerger creates a merger. m may be nil.
func NewMerger(store storage.SnapshotStore, c collector.Collector, logger zerolog.Logger, m *metrics.Metrics) *Merger {
	return &Merger{
		store:             store,
		collector:         c,
		logger:            logger,
		metrics:           m,
		BoundaryLookahead: DefaultBoundaryLookahead,
		now:               time.Now,
	}
}

// Run merges every issue of project created after the newest cached
// timestamp and persists the result. Extraction errors abort the run
// before anything is written; a failed save is a CACHE_WRITE error.
func (m *Merger) Run(ctx context.Context, project string) (*aggregator.Aggregator, Stats, error) {
	start := m.now()
	stats := Stats{RunID: uuid.NewString()}
	logger := m.logger.With().Str("project", project).Str("run_id", stats.RunID).Logger()

	agg := m.load(ctx, project, logger)
	boundary, cached := agg.MostRecent()
	stats.ColdStart = !cached
	if cached {
		logger.Debug().Time("boundary", boundary).Int("milestones", agg.Len()).Msg("loaded cached state")
	}

	events, err := m.fetch(ctx, project, boundary, cached, &stats, logger)
	if err != nil {
		return nil, stats, err
	}
	agg.AddAll(events)
	stats.IssuesMerged = len(events)
	m.metrics.RecordMerged(project, len(events))

	snap := agg.Snapshot(project)
	snap.RunID = stats.RunID
	snap.WrittenAt = m.now().UTC()
	if err := m.store.Save(ctx, snap); err != nil {
		m.metrics.RecordSnapshot("save", "error")
		return nil, stats, apperrors.NewCacheWriteError(fmt.Sprintf("save snapshot of %s", project), err)
	}
	m.metrics.RecordSnapshot("save", "ok")
	m.metrics.ObserveRun(project, m.now().Sub(start).Seconds())

	logger.Info().
		Bool("cold_start", stats.ColdStart).
		Int("pages", stats.Pages).
		Int("seen", stats.IssuesSeen).
		Int("merged", stats.IssuesMerged).
		Int("out_of_order", stats.OutOfOrder).
		Msg("merge complete")

	return agg, stats, nil
}

// load returns the cached state, or an empty one when there is none or it
// cannot be read
func (m *Merger) load(ctx context.Context, project string, logger zerolog.Logger) *aggregator.Aggregator {
	snap, err := m.store.Load(ctx, project)
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		m.metrics.RecordSnapshot("load", "miss")
		logger.Info().Msg("no cached snapshot, starting cold")
		return aggregator.NewAggregator()
	case err != nil:
		m.metrics.RecordSnapshot("load", "error")
		logger.Warn().Err(apperrors.NewCacheReadError("load snapshot", err)).Msg("ignoring unreadable cache, starting cold")
		return aggregator.NewAggregator()
	}

	agg, err := aggregator.FromSnapshot(snap)
	if err != nil {
		m.metrics.RecordSnapshot("load", "error")
		logger.Warn().Err(apperrors.NewCacheReadError("decode snapshot", err)).Msg("ignoring invalid cache, starting cold")
		return aggregator.NewAggregator()
	}
	m.metrics.RecordSnapshot("load", "ok")
	return agg
}

// fetch walks issue pages newest first and extracts every issue opened
// after boundary. Once an issue at or before the boundary is seen the
// rest of that page and BoundaryLookahead more pages are still scanned.
func (m *Merger) fetch(ctx context.Context, project string, boundary time.Time, cached bool, stats *Stats, logger zerolog.Logger) ([]domain.IssueEvent, error) {
	var events []domain.IssueEvent
	boundaryHit := false
	lookahead := max(m.BoundaryLookahead, 0)

	for page := 1; page != 0; {
		result, err := m.collector.ListIssues(ctx, project, page)
		if err != nil {
			return nil, fmt.Errorf("list issues page %d: %w", page, err)
		}
		stats.Pages++
		m.metrics.RecordPage(project)

		for _, issue := range result.Issues {
			stats.IssuesSeen++
			opened, err := extractor.ParseTimestamp(issue.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("issue %d created_at: %w", issue.IID, err)
			}
			if cached && !opened.After(boundary) {
				boundaryHit = true
				continue
			}
			if boundaryHit {
				stats.OutOfOrder++
				m.metrics.RecordOutOfOrder(project)
				logger.Warn().
					Int64("issue", issue.IID).
					Time("opened", opened).
					Time("boundary", boundary).
					Msg("issue listed after the cache boundary is newer than it")
			}

			notes, err := m.collector.ListNotes(ctx, project, issue)
			if err != nil {
				return nil, fmt.Errorf("list notes of issue %d: %w", issue.IID, err)
			}
			event, err := extractor.Extract(issue, notes)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}

		if boundaryHit {
			if lookahead == 0 {
				break
			}
			lookahead--
		}
		page = result.NextPage
	}

	return events, nil
}
