package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
)

// githubCollector implements Collector using GitHub API.
// Issue events stand in for notes: every event is a system note whose body
// is the event name ("closed", "reopened", ...).
type githubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
}

// NewGitHubCollector creates a new GitHub collector. An empty endpoint or
// api.github.com uses the public API; anything else is a GitHub Enterprise URL.
func NewGitHubCollector(endpoint, token string, rateLimiter RateLimiter) (Collector, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if endpoint != "" && !strings.Contains(endpoint, "api.github.com") {
		var err error
		client, err = client.WithEnterpriseURLs(endpoint, endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub endpoint %q: %w", endpoint, err)
		}
	}

	return &githubCollector{
		client:      client,
		rateLimiter: rateLimiter,
	}, nil
}

// ListIssues retrieves one page of issues, newest first. Pull requests are skipped.
func (c *githubCollector) ListIssues(ctx context.Context, project string, page int) (*domain.IssuePage, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", project, githubError(resp, err))
	}

	c.updateRateLimitFromResponse(resp)

	result := &domain.IssuePage{NextPage: resp.NextPage}
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		raw := domain.RawIssue{
			ID:        issue.GetID(),
			IID:       int64(issue.GetNumber()),
			Title:     issue.GetTitle(),
			CreatedAt: issue.GetCreatedAt().Time.Format(time.RFC3339Nano),
		}
		if issue.Milestone != nil {
			raw.Milestone = &domain.RawMilestone{
				ID:    issue.Milestone.GetID(),
				Title: issue.Milestone.GetTitle(),
			}
		}
		result.Issues = append(result.Issues, raw)
	}

	return result, nil
}

// ListNotes retrieves the issue's events, oldest first
func (c *githubCollector) ListNotes(ctx context.Context, project string, issue domain.RawIssue) ([]domain.RawNote, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}

	var allNotes []domain.RawNote
	opts := &github.ListOptions{PerPage: perPage}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		events, resp, err := c.client.Issues.ListIssueEvents(ctx, owner, repo, int(issue.IID), opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list events for %s#%d: %w", project, issue.IID, githubError(resp, err))
		}

		c.updateRateLimitFromResponse(resp)

		for _, event := range events {
			allNotes = append(allNotes, domain.RawNote{
				System:    true,
				Body:      event.GetEvent(),
				CreatedAt: event.GetCreatedAt().Time.Format(time.RFC3339Nano),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allNotes, nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 && resp.Rate.Remaining >= 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func splitProject(project string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(project, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", apperrors.NewBadRequestError(fmt.Sprintf("GitHub project must be owner/repo, got %q", project))
	}
	return owner, repo, nil
}

func githubError(resp *github.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(err.Error())
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(resp.Request.URL.Path)
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Rate.Remaining == 0 {
			return apperrors.NewRateLimitedError(err.Error())
		}
		return apperrors.NewUnauthorizedError(err.Error())
	}
	return err
}
