// Package render draws burndown charts.
package render

import (
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// MaxLabelRunes is the longest series label, ellipsis included
const MaxLabelRunes = 16

const ellipsis = "…"

// DefaultTitle is used when a chart has no title
const DefaultTitle = "Open issues by milestone"

// Renderer writes a chart to w. An empty chart is rendered as "No data",
// never reported as an error.
type Renderer interface {
	Render(w io.Writer, chart *domain.Chart) error
}

// Label shortens a milestone title for display
func Label(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= MaxLabelRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxLabelRunes-1])) + ellipsis
}

// ForPath picks a renderer from an output file extension:
// .json writes JSON and everything else an HTML chart
func ForPath(path string) Renderer {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONRenderer()
	default:
		return NewHTMLRenderer()
	}
}

func title(chart *domain.Chart) string {
	if chart == nil || chart.Title == "" {
		return DefaultTitle
	}
	return chart.Title
}
