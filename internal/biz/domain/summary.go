package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DailySummaryHeader prefixes the combined daily summary message
const DailySummaryHeader = "🗓️ *Daily Summary Report:*\n\n"

// AlertSeparator separates alerts in combined messages
const AlertSeparator = "\n\n"

// SummaryBuffer accumulates rendered alerts until the next daily flush
type SummaryBuffer struct {
	mu     sync.Mutex
	alerts []string
}

// NewSummaryBuffer creates an empty buffer
func NewSummaryBuffer() *SummaryBuffer {
	return &SummaryBuffer{}
}

// Append adds an alert
func (b *SummaryBuffer) Append(alert string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
}

// Drain returns all buffered alerts and empties the buffer
func (b *SummaryBuffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.alerts
	b.alerts = nil
	return out
}

// Len returns the number of buffered alerts
func (b *SummaryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.alerts)
}

// RenderDailySummary joins alerts into one summary message
func RenderDailySummary(alerts []string) string {
	return DailySummaryHeader + strings.Join(alerts, AlertSeparator)
}

// DailyCutoff is the fixed time of day at which the summary is flushed
type DailyCutoff struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// DefaultCutoff returns 23:59 in loc
func DefaultCutoff(loc *time.Location) DailyCutoff {
	return DailyCutoff{Hour: 23, Minute: 59, Location: loc}
}

// ParseCutoff parses "HH:MM"
func ParseCutoff(value string, loc *time.Location) (DailyCutoff, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return DailyCutoff{}, fmt.Errorf("invalid cutoff %q, expected HH:MM: %w", value, err)
	}
	return DailyCutoff{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

func (c DailyCutoff) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// On returns the cutoff on the calendar day of now, in the cutoff's location
func (c DailyCutoff) On(now time.Time) time.Time {
	local := now.In(c.location())
	return time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, c.location())
}

// Reached reports whether now is at or past today's cutoff
func (c DailyCutoff) Reached(now time.Time) bool {
	return !now.Before(c.On(now))
}

// Next returns the first cutoff strictly after now
func (c DailyCutoff) Next(now time.Time) time.Time {
	today := c.On(now)
	if now.Before(today) {
		return today
	}
	return time.Date(today.Year(), today.Month(), today.Day()+1, c.Hour, c.Minute, 0, 0, c.location())
}

// Until returns the delay from now to the next cutoff
func (c DailyCutoff) Until(now time.Time) time.Duration {
	return c.Next(now).Sub(now)
}

// String formats the cutoff as HH:MM
func (c DailyCutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
