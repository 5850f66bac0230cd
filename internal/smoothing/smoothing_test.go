package smoothing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
)

func TestInterp(t *testing.T) {
	xp := []float64{0, 10, 20}
	fp := []float64{1, 3, 3}

	got := Interp([]float64{-5, 0, 5, 10, 15, 20, 25}, xp, fp)
	assert.Equal(t, []float64{1, 1, 2, 3, 3, 3, 3}, got)
}

func TestInterp_EmptySource(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, Interp([]float64{1, 2}, nil, nil))
}

func TestSavitzkyGolay_PreservesPolynomials(t *testing.T) {
	y := make([]float64, 120)
	for i := range y {
		x := float64(i) / 10
		y[i] = 2 - 3*x + 0.5*x*x - 0.02*x*x*x + 0.001*x*x*x*x
	}

	out, err := SavitzkyGolay(y, DefaultWindow, DefaultOrder)
	require.NoError(t, err)
	require.Len(t, out, len(y))
	for i := range y {
		assert.InDelta(t, y[i], out[i], 1e-6, "index %d", i)
	}
}

func TestSavitzkyGolay_SmoothsStep(t *testing.T) {
	y := make([]float64, 101)
	for i := 50; i < len(y); i++ {
		y[i] = 10
	}

	out, err := SavitzkyGolay(y, 21, 2)
	require.NoError(t, err)
	// the jump is spread over the window instead of happening at one index
	assert.Greater(t, out[50], 0.5)
	assert.Less(t, out[50], 9.5)
	assert.InDelta(t, 0, out[0], 1e-9)
	assert.InDelta(t, 10, out[100], 1e-9)
}

func TestSavitzkyGolay_InvalidWindow(t *testing.T) {
	y := make([]float64, 10)

	_, err := SavitzkyGolay(y, 4, 2)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = SavitzkyGolay(y, 5, 5)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = SavitzkyGolay(y, 11, 2)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

var origin = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func burndownOf(values []int64, offsets ...time.Duration) *domain.Burndown {
	b := &domain.Burndown{}
	for _, d := range offsets {
		b.Timestamps = append(b.Timestamps, origin.Add(d))
	}
	b.Series = []domain.Series{{Milestone: domain.Milestone{Key: domain.MilestoneID(1), Title: "v1"}, Values: values}}
	return b
}

func TestResample_UniformGrid(t *testing.T) {
	b := burndownOf([]int64{3, 5, 2, 4}, 0, 24*time.Hour, 72*time.Hour, 240*time.Hour)

	out := Resample(b, DefaultOptions())
	require.Len(t, out.Timestamps, DefaultSamples)
	assert.True(t, out.Smoothed)
	assert.Equal(t, b.Timestamps[0], out.Timestamps[0])
	assert.Equal(t, b.Timestamps[3], out.Timestamps[DefaultSamples-1])

	step := out.Timestamps[1].Sub(out.Timestamps[0])
	for i := 1; i < len(out.Timestamps)-1; i++ {
		assert.InDelta(t, float64(step), float64(out.Timestamps[i+1].Sub(out.Timestamps[i])), float64(time.Millisecond))
	}

	require.Len(t, out.Series, 1)
	values := out.Series[0].Values
	require.Len(t, values, DefaultSamples)
	assert.Equal(t, 3.0, values[0])
	assert.Equal(t, 4.0, values[len(values)-1])
	for _, v := range values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.False(t, math.IsNaN(v))
	}
}

func TestResample_NeverNegative(t *testing.T) {
	// a sharp drop to zero makes the raw polynomial fit overshoot below zero
	b := burndownOf([]int64{0, 20, 20, 0, 0}, 0, time.Hour, 40*time.Hour, 41*time.Hour, 100*time.Hour)

	out := Resample(b, DefaultOptions())
	for _, v := range out.Series[0].Values {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestResample_ShortGridSkipsSmoothing(t *testing.T) {
	b := burndownOf([]int64{1, 2}, 0, time.Hour)
	opts := DefaultOptions()
	opts.Samples = 11

	out := Resample(b, opts)
	assert.False(t, out.Smoothed)
	require.Len(t, out.Series[0].Values, 11)
	assert.InDelta(t, 1.5, out.Series[0].Values[5], 1e-9)
}

func TestResample_SinglePointIsRaw(t *testing.T) {
	b := burndownOf([]int64{2}, 0)

	out := Resample(b, DefaultOptions())
	assert.False(t, out.Smoothed)
	assert.Equal(t, b.Timestamps, out.Timestamps)
	assert.Equal(t, []float64{2}, out.Series[0].Values)
}

func TestResample_Disabled(t *testing.T) {
	b := burndownOf([]int64{1, 3, 0}, 0, time.Hour, 5*time.Hour)
	opts := DefaultOptions()
	opts.Disabled = true

	out := Resample(b, opts)
	assert.False(t, out.Smoothed)
	assert.Equal(t, b.Timestamps, out.Timestamps)
	assert.Equal(t, []float64{1, 3, 0}, out.Series[0].Values)
}

func TestResample_Empty(t *testing.T) {
	out := Resample(&domain.Burndown{}, DefaultOptions())
	assert.Empty(t, out.Timestamps)
	assert.Empty(t, out.Series)

	out = Resample(nil, DefaultOptions())
	assert.Empty(t, out.Series)
}
