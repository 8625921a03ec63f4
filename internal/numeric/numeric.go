// Package numeric holds the float helpers exposed to snippets as np.
// Aggregates skip NaN values the way pandas does.
package numeric

import (
	"math"
	"sort"
)

// NaN returns an IEEE not-a-number.
func NaN() float64 { return math.NaN() }

// IsNaN reports whether x is NaN.
func IsNaN(x float64) bool { return math.IsNaN(x) }

func valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Count returns the number of non-NaN values.
func Count(xs []float64) int { return len(valid(xs)) }

// Sum adds the non-NaN values; an empty input sums to 0.
func Sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			s += x
		}
	}
	return s
}

// Mean returns the arithmetic mean, or NaN when there is nothing to average.
func Mean(xs []float64) float64 {
	v := valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return Sum(v) / float64(len(v))
}

// Min returns the smallest value, or NaN for an empty input.
func Min(xs []float64) float64 {
	v := valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// Max returns the largest value, or NaN for an empty input.
func Max(xs []float64) float64 {
	v := valid(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Std is the sample standard deviation (n-1 denominator).
func Std(xs []float64) float64 {
	v := valid(xs)
	if len(v) < 2 {
		return math.NaN()
	}
	// Welford
	var mean, m2 float64
	for i, x := range v {
		d := x - mean
		mean += d / float64(i+1)
		m2 += d * (x - mean)
	}
	return math.Sqrt(m2 / float64(len(v)-1))
}

// Median returns the 50th percentile.
func Median(xs []float64) float64 { return Percentile(xs, 50) }

// Percentile returns the q-th percentile (0..100) with linear interpolation.
func Percentile(xs []float64, q float64) float64 {
	v := valid(xs)
	if len(v) == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	sort.Float64s(v)
	if q <= 0 {
		return v[0]
	}
	if q >= 100 {
		return v[len(v)-1]
	}
	pos := q / 100 * float64(len(v)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return v[lo]
	}
	frac := pos - float64(lo)
	return v[lo] + (v[hi]-v[lo])*frac
}

// Corr is the Pearson correlation of pairs where both sides are present.
func Corr(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var xs, ys []float64
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	mx, my := Mean(xs), Mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// CumSum returns running totals; NaN entries stay NaN and do not reset the total.
func CumSum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	var s float64
	for i, x := range xs {
		if math.IsNaN(x) {
			out[i] = x
			continue
		}
		s += x
		out[i] = s
	}
	return out
}

// Diff returns xs[i]-xs[i-1]; the first element is NaN.
func Diff(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[i] - xs[i-1]
	}
	return out
}

// PctChange returns the fractional change from the previous element.
func PctChange(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 || xs[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (xs[i] - xs[i-1]) / xs[i-1]
	}
	return out
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
