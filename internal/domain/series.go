package domain

import "time"

// Series is the cumulative open-issue count of one milestone
type Series struct {
	Milestone Milestone
	Values    []int64
}

// Burndown holds one series per milestone over a shared timestamp axis.
// Every series has len(Timestamps) values.
type Burndown struct {
	Timestamps []time.Time
	Series     []Series
}

// NegativeCumulative reports a series dipping below zero, which means the
// source data closed an issue that was never opened or closed it twice
type NegativeCumulative struct {
	Milestone Milestone `json:"milestone"`
	At        time.Time `json:"at"`
	Value     int64     `json:"value"`
}

// ResampledSeries is a series evaluated on a uniform grid
type ResampledSeries struct {
	Milestone Milestone
	Values    []float64
}

// Resampled is the display form of a Burndown
type Resampled struct {
	Timestamps []time.Time
	Series     []ResampledSeries
	Smoothed   bool
}

// ChartSeries is a labeled series handed to a renderer
type ChartSeries struct {
	Label   string    `json:"label"`
	Values  []float64 `json:"values"`
	Current int64     `json:"current"` // true open count at the last axis point
	Peak    int64     `json:"peak"`
}

// Chart is the ordered, labeled input of a renderer
type Chart struct {
	Title      string               `json:"title"`
	Project    string               `json:"project"`
	Timestamps []time.Time          `json:"timestamps"`
	Series     []ChartSeries        `json:"series"`
	Warnings   []NegativeCumulative `json:"warnings,omitempty"`
	LastChange *time.Time           `json:"last_change,omitempty"`
	Smoothed   bool                 `json:"smoothed"`
}

// Empty reports whether there is nothing to draw
func (c *Chart) Empty() bool {
	return c == nil || len(c.Series) == 0 || len(c.Timestamps) == 0
}
