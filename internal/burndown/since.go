package burndown

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseSince parses a lower bound given as RFC 3339 or a bare UTC date.
// An empty value means no bound.
func ParseSince(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid since %q: want RFC 3339 or YYYY-MM-DD", value)
}
