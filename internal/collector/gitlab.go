package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
)

// gitlabCollector implements Collector using the GitLab REST API
type gitlabCollector struct {
	client      *gitlab.Client
	rateLimiter RateLimiter
}

// NewGitLabCollector creates a new GitLab collector.
// baseURL is the instance root, e.g. https://gitlab.com; empty means gitlab.com.
// The rate limiter paces every request and the client's own retries are off.
func NewGitLabCollector(baseURL, token string, rateLimiter RateLimiter) (Collector, error) {
	opts := []gitlab.ClientOptionFunc{
		gitlab.WithCustomLimiter(rateLimiter),
		gitlab.WithoutRetries(),
		gitlab.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &gitlabCollector{
		client:      client,
		rateLimiter: rateLimiter,
	}, nil
}

// ListIssues retrieves one page of issues, newest first
func (c *gitlabCollector) ListIssues(ctx context.Context, project string, page int) (*domain.IssuePage, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("desc"),
		Scope:       gitlab.Ptr("all"),
	}

	issues, resp, err := c.client.Issues.ListProjectIssues(project, opts, gitlab.WithContext(ctx))
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", project, gitlabError(resp, err))
	}

	result := &domain.IssuePage{NextPage: resp.NextPage}
	for _, issue := range issues {
		raw := domain.RawIssue{
			ID:        int64(issue.ID),
			IID:       int64(issue.IID),
			Title:     issue.Title,
			CreatedAt: formatTime(issue.CreatedAt),
		}
		if issue.Milestone != nil {
			raw.Milestone = &domain.RawMilestone{ID: int64(issue.Milestone.ID), Title: issue.Milestone.Title}
		}
		result.Issues = append(result.Issues, raw)
	}
	return result, nil
}

// ListNotes retrieves all notes of an issue, oldest first
func (c *gitlabCollector) ListNotes(ctx context.Context, project string, issue domain.RawIssue) ([]domain.RawNote, error) {
	var allNotes []domain.RawNote
	opts := &gitlab.ListIssueNotesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: perPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}

	for {
		notes, resp, err := c.client.Notes.ListIssueNotes(project, int(issue.IID), opts, gitlab.WithContext(ctx))
		c.updateRateLimitFromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to list notes for %s#%d: %w", project, issue.IID, gitlabError(resp, err))
		}

		for _, note := range notes {
			allNotes = append(allNotes, domain.RawNote{
				System:    note.System,
				Body:      note.Body,
				CreatedAt: formatTime(note.CreatedAt),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allNotes, nil
}

// updateRateLimitFromResponse updates the rate limiter from GitLab's RateLimit-* headers
func (c *gitlabCollector) updateRateLimitFromResponse(resp *gitlab.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	remaining, err := strconv.Atoi(resp.Header.Get("RateLimit-Remaining"))
	if err != nil {
		return
	}
	reset, err := strconv.ParseInt(resp.Header.Get("RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	c.rateLimiter.UpdateLimit(remaining, time.Unix(reset, 0))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func gitlabError(resp *gitlab.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	message := err.Error()
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		message = errResp.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewUnauthorizedError(message)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(resp.Request.URL.Path)
	case http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError(message)
	}
	return apperrors.NewInternalError(message, err)
}
