package stats

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %f, want 0", got)
	}
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Mean = %f, want 2.5", got)
	}
}

func TestStdDev_Population(t *testing.T) {
	// Population stddev of 2,4,4,4,5,5,7,9 is exactly 2 (sample would be ~2.138)
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > eps {
		t.Errorf("StdDev = %f, want 2", got)
	}
}

func TestStdDev_NonNegativeAndConstant(t *testing.T) {
	inputs := [][]float64{
		{1},
		{-5, 3, 12.5},
		{100, 100, 100, 100},
		{0.001, -0.002, 1e6},
	}
	for _, xs := range inputs {
		if sd := StdDev(xs); sd < 0 || math.IsNaN(sd) {
			t.Errorf("StdDev(%v) = %f, want >= 0", xs, sd)
		}
	}

	for _, c := range []float64{0, 7, -3.5, 1e9} {
		xs := []float64{c, c, c, c, c}
		if sd := StdDev(xs); sd != 0 {
			t.Errorf("StdDev of constant %f = %f, want 0", c, sd)
		}
	}

	if sd := StdDev(nil); sd != 0 {
		t.Errorf("StdDev(nil) = %f, want 0", sd)
	}
}

func TestZScore(t *testing.T) {
	for _, v := range []float64{-10, 0, 42} {
		if z := ZScore(v, 5, 0); z != 0 {
			t.Errorf("ZScore(%f, 5, 0) = %f, want 0", v, z)
		}
	}
	if z := ZScore(13, 10, 1.5); math.Abs(z-2) > eps {
		t.Errorf("ZScore = %f, want 2", z)
	}
}

func TestPercentageChange(t *testing.T) {
	if got := PercentageChange(100, 150); got != 50 {
		t.Errorf("PercentageChange(100,150) = %f, want 50", got)
	}
	if got := PercentageChange(200, 150); got != -25 {
		t.Errorf("PercentageChange(200,150) = %f, want -25", got)
	}
	for _, v := range []float64{-1, 0, 1e6} {
		if got := PercentageChange(0, v); got != 0 {
			t.Errorf("PercentageChange(0,%f) = %f, want 0", v, got)
		}
	}
}

func TestVolatility(t *testing.T) {
	if got := Volatility([]float64{5}); got != 0 {
		t.Errorf("Volatility of one point = %f, want 0", got)
	}
	// Changes: +10%, -10% → mean 0, population stddev 10
	got := Volatility([]float64{100, 110, 99})
	if math.Abs(got-10) > eps {
		t.Errorf("Volatility = %f, want 10", got)
	}
	if got := Volatility([]float64{4, 4, 4, 4}); got != 0 {
		t.Errorf("Volatility of flat series = %f, want 0", got)
	}
}

func TestMovingAverage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, 5)
	for i := range points {
		points[i] = Point{Date: base.AddDate(0, 0, i), Value: float64(i + 1)}
	}

	got := MovingAverage(points, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []float64{2, 3, 4}
	for i, p := range got {
		if math.Abs(p.Value-want[i]) > eps {
			t.Errorf("avg[%d] = %f, want %f", i, p.Value, want[i])
		}
	}
	if !got[0].Date.Equal(points[2].Date) {
		t.Errorf("first window dated %v, want %v", got[0].Date, points[2].Date)
	}

	if got := MovingAverage(points, 6); got != nil {
		t.Errorf("oversized window should be empty, got %v", got)
	}
	if got := MovingAverage(points, 0); got != nil {
		t.Errorf("zero window should be empty, got %v", got)
	}
	if got := MovingAverage(points, 5); len(got) != 1 || got[0].Value != 3 {
		t.Errorf("full window = %v, want single avg 3", got)
	}
}

func TestFindOutliers(t *testing.T) {
	xs := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 50}
	out := FindOutliers(xs, 2.0)
	if len(out) != 1 {
		t.Fatalf("expected 1 outlier, got %d", len(out))
	}
	if out[0].Index != 9 || out[0].Value != 50 {
		t.Errorf("unexpected outlier %+v", out[0])
	}
	if out[0].ZScore <= 2.0 {
		t.Errorf("outlier z-score %f should exceed threshold", out[0].ZScore)
	}

	if out := FindOutliers([]float64{3, 3, 3}, 1); len(out) != 0 {
		t.Errorf("flat series has no outliers, got %v", out)
	}
}
