package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// jsonRenderer writes the chart as an indented JSON document
type jsonRenderer struct{}

// NewJSONRenderer creates a JSON renderer
func NewJSONRenderer() Renderer {
	return jsonRenderer{}
}

func (jsonRenderer) Render(w io.Writer, chart *domain.Chart) error {
	doc := domain.Chart{Title: title(chart)}
	if chart != nil {
		doc = *chart
		doc.Title = title(chart)
	}
	if doc.Timestamps == nil {
		doc.Timestamps = []time.Time{}
	}
	if doc.Series == nil {
		doc.Series = []domain.ChartSeries{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}
