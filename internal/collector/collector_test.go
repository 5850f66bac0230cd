package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
)

// stubLimiter records UpdateLimit calls and never waits
type stubLimiter struct {
	waits     int
	remaining int
	reset     time.Time
}

func (s *stubLimiter) Wait(ctx context.Context) error {
	s.waits++
	return ctx.Err()
}

func (s *stubLimiter) CheckLimit() (int, time.Time, error) {
	return s.remaining, s.reset, nil
}

func (s *stubLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	s.remaining = remaining
	s.reset = resetTime
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("bitbucket", "", "token", &stubLimiter{})
	assert.ErrorContains(t, err, "unknown tracker")
}

func TestGitLab_ListIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fproject/issues", r.URL.EscapedPath())
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))
		assert.Equal(t, "created_at", r.URL.Query().Get("order_by"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		w.Header().Set("X-Next-Page", "3")
		w.Header().Set("RateLimit-Remaining", "42")
		w.Header().Set("RateLimit-Reset", "1700000000")
		fmt.Fprint(w, `[
			{"id": 501, "iid": 7, "title": "second", "created_at": "2024-01-02T10:00:00.000Z",
			 "milestone": {"id": 31, "title": "v1.0"}},
			{"id": 500, "iid": 6, "title": "first", "created_at": "2024-01-01T10:00:00.000+02:00", "milestone": null}
		]`)
	}))
	defer server.Close()

	limiter := &stubLimiter{}
	c, err := NewGitLabCollector(server.URL+"/", "secret", limiter)
	require.NoError(t, err)

	page, err := c.ListIssues(context.Background(), "group/project", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.NextPage)
	require.Len(t, page.Issues, 2)
	assert.Equal(t, domain.RawIssue{
		ID: 501, IID: 7, Title: "second", CreatedAt: "2024-01-02T10:00:00Z",
		Milestone: &domain.RawMilestone{ID: 31, Title: "v1.0"},
	}, page.Issues[0])
	assert.Nil(t, page.Issues[1].Milestone)
	assert.Equal(t, "2024-01-01T10:00:00+02:00", page.Issues[1].CreatedAt)

	assert.Equal(t, 1, limiter.waits)
	assert.Equal(t, 42, limiter.remaining)
	assert.Equal(t, time.Unix(1700000000, 0), limiter.reset)
}

func TestGitLab_ListNotesFollowsPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/issues/7/notes", r.URL.Path)
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[{"body": "looks good", "system": false, "created_at": "2024-01-03T00:00:00Z"}]`)
		case 2:
			w.Header().Set("X-Next-Page", "")
			fmt.Fprint(w, `[{"body": "closed", "system": true, "created_at": "2024-01-04T00:00:00Z"}]`)
		default:
			t.Errorf("unexpected page %d", page)
		}
	}))
	defer server.Close()

	c, err := NewGitLabCollector(server.URL, "secret", &stubLimiter{})
	require.NoError(t, err)
	notes, err := c.ListNotes(context.Background(), "42", domain.RawIssue{ID: 900, IID: 7})
	require.NoError(t, err)
	assert.Equal(t, []domain.RawNote{
		{System: false, Body: "looks good", CreatedAt: "2024-01-03T00:00:00Z"},
		{System: true, Body: "closed", CreatedAt: "2024-01-04T00:00:00Z"},
	}, notes)
}

func TestGitLab_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   apperrors.ErrCode
	}{
		{http.StatusUnauthorized, apperrors.ErrCodeUnauthorized},
		{http.StatusForbidden, apperrors.ErrCodeUnauthorized},
		{http.StatusNotFound, apperrors.ErrCodeNotFound},
		{http.StatusTooManyRequests, apperrors.ErrCodeRateLimited},
		{http.StatusBadGateway, apperrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.status)
			}))
			defer server.Close()

			c, err := NewGitLabCollector(server.URL, "secret", &stubLimiter{})
			require.NoError(t, err)
			_, err = c.ListIssues(context.Background(), "group/project", 1)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
			if tt.status != http.StatusNotFound {
				assert.Contains(t, err.Error(), "nope")
			}
		})
	}
}

func TestGitLab_CanceledContext(t *testing.T) {
	c, err := NewGitLabCollector("http://127.0.0.1:1", "secret", &stubLimiter{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.ListIssues(ctx, "group/project", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGitHub_ListIssuesSkipsPullRequests(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/octo/hello/issues", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("direction"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/repos/octo/hello/issues?page=2>; rel="next"`, server.URL))
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		fmt.Fprint(w, `[
			{"id": 11, "number": 3, "title": "bug", "created_at": "2024-02-02T08:00:00Z",
			 "milestone": {"id": 77, "title": "Sprint 1"}},
			{"id": 12, "number": 4, "title": "fix bug", "created_at": "2024-02-01T08:00:00Z",
			 "pull_request": {"url": "https://example.invalid/pulls/4"}},
			{"id": 13, "number": 2, "title": "chore", "created_at": "2024-01-31T08:00:00Z"}
		]`)
	}))
	defer server.Close()

	limiter := &stubLimiter{}
	c, err := NewGitHubCollector(server.URL, "secret", limiter)
	require.NoError(t, err)

	page, err := c.ListIssues(context.Background(), "octo/hello", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.NextPage)
	require.Len(t, page.Issues, 2)
	assert.Equal(t, int64(3), page.Issues[0].IID)
	assert.Equal(t, &domain.RawMilestone{ID: 77, Title: "Sprint 1"}, page.Issues[0].Milestone)
	assert.Equal(t, "2024-02-02T08:00:00Z", page.Issues[0].CreatedAt)
	assert.Equal(t, int64(2), page.Issues[1].IID)
	assert.Nil(t, page.Issues[1].Milestone)

	assert.Equal(t, 4999, limiter.remaining)
}

func TestGitHub_ListNotesFromEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/octo/hello/issues/3/events", r.URL.Path)
		fmt.Fprint(w, `[
			{"event": "milestoned", "created_at": "2024-02-03T00:00:00Z"},
			{"event": "closed", "created_at": "2024-02-04T00:00:00Z"}
		]`)
	}))
	defer server.Close()

	c, err := NewGitHubCollector(server.URL, "secret", &stubLimiter{})
	require.NoError(t, err)

	notes, err := c.ListNotes(context.Background(), "octo/hello", domain.RawIssue{ID: 11, IID: 3})
	require.NoError(t, err)
	assert.Equal(t, []domain.RawNote{
		{System: true, Body: "milestoned", CreatedAt: "2024-02-03T00:00:00Z"},
		{System: true, Body: "closed", CreatedAt: "2024-02-04T00:00:00Z"},
	}, notes)
}

func TestGitHub_InvalidProject(t *testing.T) {
	c, err := NewGitHubCollector("", "secret", &stubLimiter{})
	require.NoError(t, err)

	_, err = c.ListIssues(context.Background(), "no-slash", 1)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
}

func TestGitHub_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))
	defer server.Close()

	c, err := NewGitHubCollector(server.URL, "secret", &stubLimiter{})
	require.NoError(t, err)

	_, err = c.ListIssues(context.Background(), "octo/missing", 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRateLimiter_MinDelay(t *testing.T) {
	limiter := NewRateLimiter(20*time.Millisecond, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRateLimiter_WaitsForReset(t *testing.T) {
	limiter := NewRateLimiter(0, zerolog.Nop())
	limiter.UpdateLimit(0, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)

	remaining, _, err := limiter.CheckLimit()
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiter_ExpiredResetContinues(t *testing.T) {
	limiter := NewRateLimiter(0, zerolog.Nop())
	limiter.UpdateLimit(1, time.Now().Add(-time.Second))

	require.NoError(t, limiter.Wait(context.Background()))
	remaining, _, _ := limiter.CheckLimit()
	assert.Equal(t, defaultRemaining, remaining)
}
