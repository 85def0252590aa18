package biz

import (
	"time"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	State    *usecase.State
	Keyword  *usecase.KeywordUsecase
	Dispatch *usecase.DispatchUsecase
	Monitor  *usecase.MonitorUsecase
	Report   *usecase.ReportUsecase
}

// Repos are the collaborators the usecases need. OCR, Archive and Events may be nil.
type Repos struct {
	Chats    repo.ChatRepo
	Notifier repo.NotifierRepo
	OCR      repo.OCRRepo
	Chart    repo.ChartRepo
	MatchLog repo.MatchLogRepo
	Archive  repo.ArchiveRepo
	Events   repo.EventPublisher
}

// Options configures one run of the monitor
type Options struct {
	Keywords            []string
	AlertLedgerCapacity int
	NotificationChatID  string
	Location            *time.Location
	Cutoff              domain.DailyCutoff
	TrendWindow         time.Duration
}

// NewUsecases builds fresh state and every usecase around it
func NewUsecases(repos Repos, opts Options) *Usecases {
	state := usecase.NewState(opts.Keywords, opts.AlertLedgerCapacity)
	dispatch := usecase.NewDispatchUsecase(repos.Notifier, opts.NotificationChatID, state, repos.MatchLog, repos.Events)

	return &Usecases{
		State:    state,
		Keyword:  usecase.NewKeywordUsecase(state.Keywords),
		Dispatch: dispatch,
		Monitor:  usecase.NewMonitorUsecase(state, repos.Chats, repos.OCR, dispatch, opts.Location, opts.NotificationChatID),
		Report: usecase.NewReportUsecase(repos.Notifier, repos.MatchLog, repos.Chart, repos.Archive, state, usecase.ReportConfig{
			Destination: opts.NotificationChatID,
			Cutoff:      opts.Cutoff,
			TrendWindow: opts.TrendWindow,
		}),
	}
}
