package domain

import (
	"fmt"
	"strconv"
	"time"
)

// NoMilestoneTitle is the display title of issues without a milestone
const NoMilestoneTitle = "None"

// MilestoneKey identifies the milestone an issue belongs to.
// The zero value is the "no milestone" key, which never equals a real id.
type MilestoneKey struct {
	id    int64
	valid bool
}

// NoMilestone returns the key grouping issues without a milestone
func NoMilestone() MilestoneKey {
	return MilestoneKey{}
}

// MilestoneID returns the key for a real milestone id
func MilestoneID(id int64) MilestoneKey {
	return MilestoneKey{id: id, valid: true}
}

// ID returns the milestone id and whether the key refers to a real milestone
func (k MilestoneKey) ID() (int64, bool) {
	return k.id, k.valid
}

// IsNone reports whether k is the "no milestone" key
func (k MilestoneKey) IsNone() bool {
	return !k.valid
}

// Less orders keys: NoMilestone first, then ids ascending
func (k MilestoneKey) Less(other MilestoneKey) bool {
	if k.valid != other.valid {
		return !k.valid
	}
	return k.id < other.id
}

func (k MilestoneKey) String() string {
	if !k.valid {
		return "none"
	}
	return strconv.FormatInt(k.id, 10)
}

// MarshalText encodes the key as its String form
func (k MilestoneKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes the output of MarshalText
func (k *MilestoneKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMilestoneKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseMilestoneKey parses the output of MilestoneKey.String
func ParseMilestoneKey(s string) (MilestoneKey, error) {
	if s == "none" {
		return NoMilestone(), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return MilestoneKey{}, fmt.Errorf("invalid milestone key %q: %w", s, err)
	}
	return MilestoneID(id), nil
}

// Milestone holds the display metadata of a milestone
type Milestone struct {
	Key       MilestoneKey `json:"key"`
	Title     string       `json:"title"`
	FirstSeen time.Time    `json:"first_seen"` // earliest open time of any issue in the milestone, used only for ordering
}
