package domain

import "time"

// RawMilestone is the milestone reference attached to a tracker issue
type RawMilestone struct {
	ID    int64
	Title string
}

// RawIssue is an issue record as returned by the tracker.
// Timestamps are kept as the tracker's strings and parsed by the extractor.
type RawIssue struct {
	ID        int64
	IID       int64 // project-scoped number used to address notes
	Title     string
	CreatedAt string
	Milestone *RawMilestone
}

// RawNote is an activity record attached to an issue
type RawNote struct {
	System    bool // generated by the tracker rather than written by a user
	Body      string
	CreatedAt string
}

// IssueEvent is the open/close interval derived from one issue
type IssueEvent struct {
	Milestone      MilestoneKey
	MilestoneTitle string
	OpenedAt       time.Time
	ClosedAt       *time.Time // nil while the issue is still open
}

// IssuePage is one page of issues, ordered by creation time descending
type IssuePage struct {
	Issues   []RawIssue
	NextPage int // 0 when there are no more pages
}
