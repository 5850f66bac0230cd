package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// tableRenderer prints a per-milestone summary
type tableRenderer struct {
	now func() time.Time
}

// NewTableRenderer creates a plain text renderer
func NewTableRenderer() Renderer {
	return &tableRenderer{now: time.Now}
}

func (r *tableRenderer) Render(w io.Writer, chart *domain.Chart) error {
	if _, err := fmt.Fprintln(w, title(chart)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Milestone", "Open", "Peak"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	if chart.Empty() {
		table.Render()
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	var total int64
	for _, s := range chart.Series {
		table.Append([]string{s.Label, humanize.Comma(s.Current), humanize.Comma(s.Peak)})
		total += s.Current
	}
	table.SetFooter([]string{"Total", humanize.Comma(total), ""})
	table.Render()

	if chart.LastChange != nil {
		if _, err := fmt.Fprintf(w, "Last change: %s (%s)\n",
			humanize.RelTime(*chart.LastChange, r.now(), "ago", "from now"),
			axisLabel(*chart.LastChange)); err != nil {
			return err
		}
	}
	for _, warning := range chart.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %q dropped to %d open issues at %s\n",
			warning.Milestone.Title, warning.Value, axisLabel(warning.At)); err != nil {
			return err
		}
	}
	return nil
}
