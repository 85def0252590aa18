package usecase

import "github.com/rehanumarkhan/tele-monitor/internal/biz/domain"

// State holds the in-memory objects shared by workers, commands and reports.
// It lives for one run of the monitor and is rebuilt on restart.
type State struct {
	Keywords  *domain.KeywordSet
	Processed *domain.ProcessedLedger
	Alerts    *domain.AlertLedger
	Trend     *domain.TrendTracker
	Summary   *domain.SummaryBuffer
}

// NewState creates fresh state seeded with the initial keywords
func NewState(keywords []string, alertCapacity int) *State {
	return &State{
		Keywords:  domain.NewKeywordSet(keywords...),
		Processed: domain.NewProcessedLedger(),
		Alerts:    domain.NewAlertLedger(alertCapacity),
		Trend:     domain.NewTrendTracker(),
		Summary:   domain.NewSummaryBuffer(),
	}
}
