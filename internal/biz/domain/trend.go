package domain

import (
	"sort"
	"sync"
	"time"
)

// DefaultTrendWindow is the trailing window used by trend reports
const DefaultTrendWindow = 30 * 24 * time.Hour

// TrendPoint is one keyword occurrence
type TrendPoint struct {
	Keyword string
	At      time.Time
}

// TrendTracker keeps the occurrence times of every keyword.
// Series only grow; duplicates are meaningful and kept.
type TrendTracker struct {
	mu     sync.RWMutex
	series map[string][]time.Time
	total  int
}

// NewTrendTracker creates an empty tracker
func NewTrendTracker() *TrendTracker {
	return &TrendTracker{series: make(map[string][]time.Time)}
}

// Record appends an occurrence
func (t *TrendTracker) Record(keyword string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.series[keyword] = append(t.series[keyword], at)
	t.total++
}

// Series returns a copy of one keyword's occurrences
func (t *TrendTracker) Series(keyword string) []time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src := t.series[keyword]
	out := make([]time.Time, len(src))
	copy(out, src)
	return out
}

// Len returns the total number of recorded occurrences
func (t *TrendTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Window returns occurrences at or after now-window
func (t *TrendTracker) Window(now time.Time, window time.Duration) []TrendPoint {
	since := now.Add(-window)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var points []TrendPoint
	for kw, times := range t.series {
		for _, at := range times {
			if !at.Before(since) {
				points = append(points, TrendPoint{Keyword: kw, At: at})
			}
		}
	}
	return points
}

// TrendMatrix is a day x keyword count table
type TrendMatrix struct {
	Days     []time.Time // midnight of each day that has data, ascending
	Keywords []string    // sorted
	Counts   [][]int     // Counts[day][keyword]
}

// BuildTrendMatrix buckets points by calendar day in loc and keyword
func BuildTrendMatrix(points []TrendPoint, loc *time.Location) TrendMatrix {
	if loc == nil {
		loc = time.UTC
	}

	dayIndex := make(map[time.Time]int)
	kwIndex := make(map[string]int)
	var days []time.Time
	var keywords []string

	for _, p := range points {
		at := p.At.In(loc)
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
		if _, ok := dayIndex[day]; !ok {
			dayIndex[day] = 0
			days = append(days, day)
		}
		if _, ok := kwIndex[p.Keyword]; !ok {
			kwIndex[p.Keyword] = 0
			keywords = append(keywords, p.Keyword)
		}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	sort.Strings(keywords)
	for i, d := range days {
		dayIndex[d] = i
	}
	for i, k := range keywords {
		kwIndex[k] = i
	}

	counts := make([][]int, len(days))
	for i := range counts {
		counts[i] = make([]int, len(keywords))
	}
	for _, p := range points {
		at := p.At.In(loc)
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
		counts[dayIndex[day]][kwIndex[p.Keyword]]++
	}

	return TrendMatrix{Days: days, Keywords: keywords, Counts: counts}
}

// Total returns the sum of all counts
func (m TrendMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// Empty reports whether the matrix has no data
func (m TrendMatrix) Empty() bool {
	return len(m.Days) == 0
}

// Max returns the largest single count
func (m TrendMatrix) Max() int {
	max := 0
	for _, row := range m.Counts {
		for _, c := range row {
			if c > max {
				max = c
			}
		}
	}
	return max
}
