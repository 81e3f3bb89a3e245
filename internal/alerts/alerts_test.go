package alerts

import (
	"math"
	"strings"
	"testing"
	"time"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func series(vals ...float64) []Point {
	out := make([]Point, len(vals))
	for i, v := range vals {
		out[i] = Point{Date: day0.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestComputeNeedsMinPoints(t *testing.T) {
	vals := []float64{10, 12, 10, 12, 10, 12, 100}
	for n := 0; n < MinPoints; n++ {
		got := Compute(series(vals[:min(n, len(vals))]...), "dwell_hours")
		if len(got) != 0 {
			t.Fatalf("n=%d: want no alerts, got %v", n, got)
		}
	}
}

func TestComputeFlatSeries(t *testing.T) {
	got := Compute(series(10, 10, 10, 10, 10, 10, 10, 10), "dwell_hours")
	if len(got) != 0 {
		t.Fatalf("flat series should not alert: %v", got)
	}
}

func TestComputeSpikeIsHigh(t *testing.T) {
	got := Compute(series(10, 12, 10, 12, 10, 12, 10, 30), "dwell_hours")
	if len(got) != 1 {
		t.Fatalf("want one alert, got %v", got)
	}
	a := got[0]
	if a.Severity != SeverityHigh {
		t.Fatalf("severity: got %s", a.Severity)
	}
	if a.Delta != 19 {
		t.Fatalf("delta: got %v", a.Delta)
	}
	if a.Date != "2026-01-08" || a.Metric != "dwell_hours" {
		t.Fatalf("unexpected alert: %+v", a)
	}
	if !strings.Contains(a.Explain, "above baseline median 11.00") {
		t.Fatalf("explain: %q", a.Explain)
	}
}

func TestComputeSmallMoveIsLow(t *testing.T) {
	got := Compute(series(10, 12, 10, 12, 10, 12, 10, 13.5), "dwell_hours")
	if len(got) != 1 || got[0].Severity != SeverityLow {
		t.Fatalf("want one low alert, got %v", got)
	}
	if got[0].Delta != 2.5 {
		t.Fatalf("delta: got %v", got[0].Delta)
	}
}

func TestComputeDropIsBelow(t *testing.T) {
	got := Compute(series(30, 32, 30, 32, 30, 32, 30, 10), "avg_wait_hours")
	if len(got) != 1 {
		t.Fatalf("want one alert, got %v", got)
	}
	if got[0].Delta >= 0 || !strings.Contains(got[0].Explain, "below") {
		t.Fatalf("unexpected alert: %+v", got[0])
	}
}

func TestComputeOrderIndependent(t *testing.T) {
	pts := series(10, 12, 10, 12, 10, 12, 10, 30)
	shuffled := []Point{pts[7], pts[2], pts[0], pts[5], pts[1], pts[6], pts[3], pts[4]}
	a, b := Compute(pts, "x"), Compute(shuffled, "x")
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("order changed result: %v vs %v", a, b)
	}
	if shuffled[0].Value != 30 {
		t.Fatalf("input was mutated")
	}
}

func TestAnalyzeStatistics(t *testing.T) {
	s, ok := Analyze(series(10, 12, 10, 12, 10, 12, 10, 30))
	if !ok {
		t.Fatalf("Analyze: not ok")
	}
	want := Summary{Latest: 30, Median: 11, P25: 10, P75: 12, IQR: 2, MAD: 1, Delta: 19}
	if s.Latest != want.Latest || s.Median != want.Median || s.P25 != want.P25 || s.P75 != want.P75 ||
		s.IQR != want.IQR || s.MAD != want.MAD || s.Delta != want.Delta {
		t.Fatalf("got %+v want %+v", s, want)
	}
	// last 3 = 12,10,30 ; previous 3 = 10,12,10
	if math.Abs(s.Score-(52.0/3-32.0/3)) > 1e-9 {
		t.Fatalf("score: got %v", s.Score)
	}
}

func rank(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

func TestSeverityThresholds(t *testing.T) {
	cases := []struct {
		delta, score float64
		want         Severity
	}{
		{0.5, 0, ""},
		{0.75, 0, SeverityLow},
		{-0.75, 0, SeverityLow},
		{1.5, 0, SeverityMedium},
		{0, 2.9, ""},
		{0, 3, SeverityLow},
		{0, 6, SeverityMedium},
		{0.75, 3, SeverityMedium},
		{1.5, 3, SeverityHigh},
		{0.75, 6, SeverityHigh},
		{1.5, 6, SeverityHigh},
	}
	for _, c := range cases {
		got := Summary{Delta: c.delta, IQR: 1, Score: c.score}.Level()
		if got != c.want {
			t.Fatalf("delta=%v score=%v: got %q want %q", c.delta, c.score, got, c.want)
		}
	}
}

func TestSeverityMonotonic(t *testing.T) {
	for _, score := range []float64{0, 2, 3, 5, 6, 10} {
		prev := -1
		for d := 0.0; d <= 3; d += 0.05 {
			r := rank(Summary{Delta: d, IQR: 1, Score: score}.Level())
			if r < prev {
				t.Fatalf("severity dropped as |delta| grew: score=%v delta=%v", score, d)
			}
			prev = r
		}
	}
	for _, d := range []float64{0, 0.5, 0.8, 1.6} {
		prev := -1
		for score := 0.0; score <= 10; score += 0.25 {
			r := rank(Summary{Delta: d, IQR: 1, Score: score}.Level())
			if r < prev {
				t.Fatalf("severity dropped as score grew: delta=%v score=%v", d, score)
			}
			prev = r
		}
	}
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFlatBaselineIgnoresRoundingNoise(t *testing.T) {
	pts := series(append(flat(13, 24), 24.01)...)
	s, ok := Analyze(pts)
	if !ok {
		t.Fatalf("Analyze: not ok")
	}
	// 0.05 x 24
	if math.Abs(s.IQR-1.2) > 1e-9 || math.Abs(s.MAD-1.2) > 1e-9 {
		t.Fatalf("floors: IQR=%v MAD=%v", s.IQR, s.MAD)
	}
	if got := Compute(pts, "dwell_hours"); len(got) != 0 {
		t.Fatalf("0.01h move on flat baseline alerted: %v", got)
	}
}

func TestFlatBaselineStillCatchesRealMove(t *testing.T) {
	got := Compute(series(append(flat(13, 24), 30)...), "dwell_hours")
	if len(got) != 1 || got[0].Severity != SeverityMedium {
		t.Fatalf("want one medium alert, got %v", got)
	}
}

func TestScaleFloor(t *testing.T) {
	cases := []struct{ median, want float64 }{
		{0, 0.5},
		{0.2, 0.5},
		{-40, 2},
		{24, 1.2},
	}
	for _, c := range cases {
		if got := scaleFloor(c.median); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("median=%v: got %v want %v", c.median, got, c.want)
		}
	}
}
