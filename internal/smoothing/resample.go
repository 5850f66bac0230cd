// Package smoothing resamples burndown series onto a uniform time grid and
// smooths them for display. Its output is never fed back into computation.
package smoothing

import (
	"sort"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

// Defaults
const (
	DefaultSamples = 250
	DefaultWindow  = 51
	DefaultOrder   = 4
)

// Options controls resampling
type Options struct {
	Samples  int
	Window   int
	Order    int
	Disabled bool // return the exact step values on the original axis
}

// DefaultOptions returns the display defaults
func DefaultOptions() Options {
	return Options{
		Samples: DefaultSamples,
		Window:  DefaultWindow,
		Order:   DefaultOrder,
	}
}

// Resample evaluates every series on a uniform grid spanning the axis,
// then smooths it. Axes with fewer than two points, and disabled options,
// yield the raw values. Grids shorter than the window are not smoothed.
func Resample(b *domain.Burndown, opts Options) *domain.Resampled {
	if b == nil {
		return &domain.Resampled{}
	}
	if opts.Disabled || len(b.Timestamps) < 2 {
		return raw(b)
	}

	origin := b.Timestamps[0]
	xp := make([]float64, len(b.Timestamps))
	for i, t := range b.Timestamps {
		xp[i] = t.Sub(origin).Seconds()
	}

	samples := max(opts.Samples, 2)
	end := xp[len(xp)-1]
	grid := make([]float64, samples)
	timestamps := make([]time.Time, samples)
	for i := range grid {
		grid[i] = end * float64(i) / float64(samples-1)
		timestamps[i] = origin.Add(time.Duration(grid[i] * float64(time.Second)))
	}
	grid[samples-1] = end
	timestamps[samples-1] = b.Timestamps[len(b.Timestamps)-1]

	out := &domain.Resampled{Timestamps: timestamps, Smoothed: true}
	for _, s := range b.Series {
		fp := make([]float64, len(s.Values))
		for i, v := range s.Values {
			fp[i] = float64(v)
		}
		interpolated := Interp(grid, xp, fp)

		values, err := SavitzkyGolay(interpolated, opts.Window, opts.Order)
		if err != nil {
			values = interpolated
			out.Smoothed = false
		} else {
			for i := range values {
				values[i] = max(values[i], 0)
			}
			values[0] = interpolated[0]
			values[len(values)-1] = interpolated[len(interpolated)-1]
		}
		out.Series = append(out.Series, domain.ResampledSeries{Milestone: s.Milestone, Values: values})
	}
	if len(b.Series) == 0 {
		out.Smoothed = false
	}
	return out
}

func raw(b *domain.Burndown) *domain.Resampled {
	out := &domain.Resampled{Timestamps: append([]time.Time(nil), b.Timestamps...)}
	for _, s := range b.Series {
		values := make([]float64, len(s.Values))
		for i, v := range s.Values {
			values[i] = float64(v)
		}
		out.Series = append(out.Series, domain.ResampledSeries{Milestone: s.Milestone, Values: values})
	}
	return out
}

// Interp evaluates the piecewise-linear function through (xp, fp) at each x.
// xp must be ascending; values outside [xp[0], xp[last]] take the end values.
func Interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	if len(xp) == 0 {
		return out
	}
	last := len(xp) - 1
	for i, v := range x {
		switch {
		case v <= xp[0]:
			out[i] = fp[0]
		case v >= xp[last]:
			out[i] = fp[last]
		default:
			j := sort.SearchFloat64s(xp, v)
			if xp[j] == v {
				out[i] = fp[j]
				continue
			}
			x0, x1 := xp[j-1], xp[j]
			out[i] = fp[j-1] + (fp[j]-fp[j-1])*(v-x0)/(x1-x0)
		}
	}
	return out
}
