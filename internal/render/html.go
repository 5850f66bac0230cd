package render

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

const (
	areaOpacity = 0.5
	fullZoomPct = 100
	axisLayout  = "2006-01-02 15:04"
)

// htmlRenderer draws an interactive stacked area chart
type htmlRenderer struct{}

// NewHTMLRenderer creates a go-echarts renderer
func NewHTMLRenderer() Renderer {
	return htmlRenderer{}
}

func (htmlRenderer) Render(w io.Writer, chart *domain.Chart) error {
	line := newLine(chart)
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func newLine(chart *domain.Chart) *charts.Line {
	if chart.Empty() {
		return emptyLine(chart)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title(chart),
			Subtitle: chart.Project,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "5px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time (UTC)",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Open issues",
		}),
	)

	xLabels := make([]string, len(chart.Timestamps))
	for i, t := range chart.Timestamps {
		xLabels[i] = axisLabel(t)
	}
	line.SetXAxis(xLabels)

	for _, s := range chart.Series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(
			s.Label,
			data,
			charts.WithLineChartOpts(opts.LineChart{Stack: "total"}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(areaOpacity)}),
		)
	}

	return line
}

func emptyLine(chart *domain.Chart) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title(chart),
			Subtitle: "No data",
		}),
	)
	line.SetXAxis([]string{})

	return line
}

// axisLabel formats a timestamp the way the chart axis does
func axisLabel(t time.Time) string {
	return t.UTC().Format(axisLayout)
}
