// Package alerts flags unusual moves in a daily port metric.
//
// The first half of the window is the baseline. The latest value is compared
// against the baseline median, scaled by its interquartile range, and the mean
// of the last K points is compared against the mean of the K points before
// them, scaled by the baseline median absolute deviation. Both comparisons
// contribute 0, 1 or 2 levels; the sum picks the severity.
package alerts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// MinPoints is the shortest series that can produce an alert.
	MinPoints = 8
	// K is the change-point window length.
	K = 3

	deltaLow   = 0.75 // x IQR
	deltaHigh  = 1.5  // x IQR
	scoreLow   = 3.0
	scoreHigh  = 6.0
	dateLayout = "2006-01-02"

	// IQR and MAD never drop below relFloor x max(|median|, 1) or absFloor,
	// so a flat baseline does not turn rounding noise into an alert.
	relFloor = 0.05
	absFloor = 0.5
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Point struct {
	Date  time.Time
	Value float64
}

type Alert struct {
	Date     string   `json:"date" csv:"date"`
	Metric   string   `json:"metric" csv:"metric"`
	Delta    float64  `json:"delta" csv:"delta"`
	Severity Severity `json:"severity" csv:"severity"`
	Explain  string   `json:"explain" csv:"explain"`
}

// Summary holds the statistics behind an alert decision.
type Summary struct {
	Latest float64
	Median float64
	P25    float64
	P75    float64
	IQR    float64
	MAD    float64
	Delta  float64
	Score  float64
}

// Analyze computes the baseline statistics. ok is false when the series is
// shorter than MinPoints.
func Analyze(points []Point) (s Summary, ok bool) {
	if len(points) < MinPoints {
		return Summary{}, false
	}
	vals := sortedValues(points)
	n := len(vals)
	base := append([]float64(nil), vals[:n/2]...)
	sort.Float64s(base)

	s.Latest = vals[n-1]
	s.Median = quantile(base, 0.5)
	s.P25 = quantile(base, 0.25)
	s.P75 = quantile(base, 0.75)
	floor := scaleFloor(s.Median)
	s.IQR = math.Max(s.P75-s.P25, floor)
	s.Delta = s.Latest - s.Median

	dev := make([]float64, len(base))
	for i, v := range base {
		dev[i] = math.Abs(v - s.Median)
	}
	sort.Float64s(dev)
	s.MAD = math.Max(quantile(dev, 0.5), floor)

	last := mean(vals[n-K:])
	prev := mean(vals[n-2*K : n-K])
	s.Score = math.Abs(last-prev) / s.MAD
	return s, true
}

// Level returns the severity bucket for a summary, or "" below threshold.
func (s Summary) Level() Severity {
	return severityFor(deltaLevel(math.Abs(s.Delta), s.IQR) + scoreLevel(s.Score))
}

// Compute returns zero or one alert for the latest point of the series.
func Compute(points []Point, metric string) []Alert {
	s, ok := Analyze(points)
	if !ok {
		return []Alert{}
	}
	sev := s.Level()
	if sev == "" {
		return []Alert{}
	}
	latest := latestDate(points)
	return []Alert{{
		Date:     latest.UTC().Format(dateLayout),
		Metric:   metric,
		Delta:    math.Round(s.Delta*100) / 100,
		Severity: sev,
		Explain:  explain(s),
	}}
}

func scaleFloor(median float64) float64 {
	return math.Max(relFloor*math.Max(math.Abs(median), 1), absFloor)
}

func deltaLevel(absDelta, iqr float64) int {
	switch {
	case absDelta >= deltaHigh*iqr:
		return 2
	case absDelta >= deltaLow*iqr:
		return 1
	}
	return 0
}

func scoreLevel(score float64) int {
	switch {
	case score >= scoreHigh:
		return 2
	case score >= scoreLow:
		return 1
	}
	return 0
}

func severityFor(level int) Severity {
	switch {
	case level <= 0:
		return ""
	case level == 1:
		return SeverityLow
	case level == 2:
		return SeverityMedium
	}
	return SeverityHigh
}

func explain(s Summary) string {
	dir := "above"
	if s.Delta < 0 {
		dir = "below"
	}
	return fmt.Sprintf("latest %.2f is %.2f %s baseline median %.2f (IQR %.2f); change score %.1f",
		s.Latest, math.Abs(s.Delta), dir, s.Median, s.IQR, s.Score)
}

// sortedValues orders points by date without mutating the caller's slice.
func sortedValues(points []Point) []float64 {
	ps := append([]Point(nil), points...)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Date.Before(ps[j].Date) })
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

func latestDate(points []Point) time.Time {
	var t time.Time
	for _, p := range points {
		if p.Date.After(t) {
			t = p.Date
		}
	}
	return t
}

// quantile interpolates linearly between closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	lo := int(pos)
	hi := min(lo+1, n-1)
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
