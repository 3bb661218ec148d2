// Package stats provides the numeric primitives used by the detectors.
// All functions are pure; degenerate input yields 0 rather than NaN.
package stats

import (
	"math"
	"time"
)

// Mean calculates the arithmetic mean.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev calculates the population standard deviation (n denominator).
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	mean := Mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// ZScore returns (value-mean)/stdDev, or 0 when stdDev is 0.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// PercentageChange returns (newValue-oldValue)/oldValue*100, or 0 when oldValue is 0.
func PercentageChange(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		return 0
	}
	return (newValue - oldValue) / oldValue * 100
}

// Changes returns consecutive percentage changes: len(xs)-1 values.
func Changes(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out = append(out, PercentageChange(xs[i-1], xs[i]))
	}
	return out
}

// Volatility is the standard deviation of consecutive percentage changes.
// Needs at least 2 points.
func Volatility(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return StdDev(Changes(xs))
}

// Point is a dated value.
type Point struct {
	Date  time.Time
	Value float64
}

// MovingAverage returns the trailing average at every position where a full
// window exists, dated with the window's last point. Result length is
// len(points)-window+1; empty when window is out of range.
func MovingAverage(points []Point, window int) []Point {
	if window <= 0 || window > len(points) {
		return nil
	}

	out := make([]Point, 0, len(points)-window+1)
	sum := 0.0
	for i, p := range points {
		sum += p.Value
		if i >= window {
			sum -= points[i-window].Value
		}
		if i >= window-1 {
			out = append(out, Point{Date: p.Date, Value: sum / float64(window)})
		}
	}
	return out
}

// Outlier is a value whose |z-score| exceeded the threshold.
type Outlier struct {
	Index  int
	Value  float64
	ZScore float64
}

// FindOutliers returns every index whose |z-score| exceeds threshold.
func FindOutliers(xs []float64, threshold float64) []Outlier {
	mean := Mean(xs)
	sd := StdDev(xs)

	var out []Outlier
	for i, x := range xs {
		z := ZScore(x, mean, sd)
		if math.Abs(z) > threshold {
			out = append(out, Outlier{Index: i, Value: x, ZScore: z})
		}
	}
	return out
}
