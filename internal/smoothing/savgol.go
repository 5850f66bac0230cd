package smoothing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned when the filter window cannot be applied
var ErrInvalidWindow = errors.New("invalid smoothing window")

// SavitzkyGolay fits a polynomial of the given order over a sliding window
// of odd length and evaluates it at each sample. Near the edges the fit
// over the first or last full window is evaluated instead of padding.
func SavitzkyGolay(y []float64, window, order int) ([]float64, error) {
	switch {
	case window%2 == 0 || window < 1:
		return nil, fmt.Errorf("%w: window %d must be odd and positive", ErrInvalidWindow, window)
	case order < 0 || order >= window:
		return nil, fmt.Errorf("%w: order %d must be in [0, %d)", ErrInvalidWindow, order, window)
	case len(y) < window:
		return nil, fmt.Errorf("%w: %d samples shorter than window %d", ErrInvalidWindow, len(y), window)
	}

	half := window / 2
	coeffs, err := savgolCoefficients(window, order)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(y))
	for i := range y {
		start := min(max(i-half, 0), len(y)-window)
		c := coeffs[i-start]
		var v float64
		for j, w := range c {
			v += w * y[start+j]
		}
		out[i] = v
	}
	return out, nil
}

// savgolCoefficients returns, for every position p in the window, the weights
// that evaluate the least-squares polynomial fit at p
func savgolCoefficients(window, order int) ([][]float64, error) {
	half := window / 2
	terms := order + 1

	// abscissas scaled to [-1, 1] to keep the normal equations well conditioned
	scale := float64(max(half, 1))
	design := make([][]float64, window)
	for j := range design {
		u := float64(j-half) / scale
		design[j] = powers(u, terms)
	}

	normal := make([][]float64, terms)
	for a := range normal {
		normal[a] = make([]float64, terms)
		for b := range normal[a] {
			for j := range design {
				normal[a][b] += design[j][a] * design[j][b]
			}
		}
	}

	coeffs := make([][]float64, window)
	for p := range coeffs {
		z, err := solve(normal, design[p])
		if err != nil {
			return nil, err
		}
		c := make([]float64, window)
		for j := range design {
			for k := range z {
				c[j] += design[j][k] * z[k]
			}
		}
		coeffs[p] = c
	}
	return coeffs, nil
}

func powers(u float64, n int) []float64 {
	p := make([]float64, n)
	acc := 1.0
	for k := range p {
		p[k] = acc
		acc *= u
	}
	return p
}

// solve solves m·x = b by Gaussian elimination with partial pivoting.
// m and b are not modified.
func solve(m [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1)
		copy(a[i], m[i])
		a[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("%w: singular normal equations", ErrInvalidWindow)
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for k := col; k <= n; k++ {
				a[r][k] -= f * a[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		v := a[i][n]
		for k := i + 1; k < n; k++ {
			v -= a[i][k] * x[k]
		}
		x[i] = v / a[i][i]
	}
	return x, nil
}
