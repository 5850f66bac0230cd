package collector

import (
	"context"
	"fmt"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// Supported tracker kinds
const (
	KindGitLab = "gitlab"
	KindGitHub = "github"
)

// perPage is the page size requested from trackers
const perPage = 100

// Collector defines the interface for reading issues from a tracker
type Collector interface {
	// ListIssues returns one page of a project's issues ordered by creation
	// time descending. Pages start at 1; NextPage is 0 on the last page.
	ListIssues(ctx context.Context, project string, page int) (*domain.IssuePage, error)

	// ListNotes returns the activity of an issue ordered by creation time ascending
	ListNotes(ctx context.Context, project string, issue domain.RawIssue) ([]domain.RawNote, error)
}

// New creates a collector for the given tracker kind
func New(kind, endpoint, token string, rateLimiter RateLimiter) (Collector, error) {
	switch kind {
	case KindGitLab:
		return NewGitLabCollector(endpoint, token, rateLimiter)
	case KindGitHub:
		return NewGitHubCollector(endpoint, token, rateLimiter)
	default:
		return nil, fmt.Errorf("unknown tracker %q (want %s or %s)", kind, KindGitLab, KindGitHub)
	}
}
