// Package extractor derives open/close intervals from tracker issue records.
package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
)

// Close markers recognized in system notes
const (
	LegacyCloseMarker = "Status changed to closed" // GitLab before 11.x
	CloseMarker       = "closed"                   // current GitLab notes and GitHub issue events
	closeViaMarker    = CloseMarker + " via "      // "closed via merge request !12"
)

// ParseTimestamp parses a tracker timestamp into a UTC instant
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewTimestampParseError(value, err)
	}
	return t.UTC(), nil
}

// IsCloseNote reports whether a note records a transition to the closed state
func IsCloseNote(note domain.RawNote) bool {
	if !note.System {
		return false
	}
	body := strings.TrimSpace(note.Body)
	return body == CloseMarker ||
		strings.HasPrefix(body, closeViaMarker) ||
		strings.HasPrefix(body, LegacyCloseMarker)
}

// Extract builds the IssueEvent of one issue. Notes must be ordered by
// creation time ascending; the last close note wins, so reopen cycles
// collapse into a single interval ending at the final close.
func Extract(issue domain.RawIssue, notes []domain.RawNote) (domain.IssueEvent, error) {
	openedAt, err := ParseTimestamp(issue.CreatedAt)
	if err != nil {
		return domain.IssueEvent{}, fmt.Errorf("issue %d created_at: %w", issue.IID, err)
	}

	event := domain.IssueEvent{
		Milestone:      domain.NoMilestone(),
		MilestoneTitle: domain.NoMilestoneTitle,
		OpenedAt:       openedAt,
	}
	if issue.Milestone != nil {
		event.Milestone = domain.MilestoneID(issue.Milestone.ID)
		event.MilestoneTitle = issue.Milestone.Title
	}

	var closeNote *domain.RawNote
	for i := range notes {
		if IsCloseNote(notes[i]) {
			closeNote = &notes[i]
		}
	}
	if closeNote == nil {
		return event, nil
	}

	closedAt, err := ParseTimestamp(closeNote.CreatedAt)
	if err != nil {
		return domain.IssueEvent{}, fmt.Errorf("issue %d close note: %w", issue.IID, err)
	}
	if closedAt.Before(openedAt) {
		return domain.IssueEvent{}, apperrors.NewTimestampParseError(closeNote.CreatedAt,
			fmt.Errorf("issue %d closed at %s before it was opened at %s",
				issue.IID, closedAt.Format(time.RFC3339), openedAt.Format(time.RFC3339)))
	}
	event.ClosedAt = &closedAt

	return event, nil
}
