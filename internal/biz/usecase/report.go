package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// ErrInvalidDate is returned when a report date is not YYYY-MM-DD
var ErrInvalidDate = errors.New("invalid date")

// Report texts
const (
	TrendReportTitle = "📊 *Keyword Trend Report:*"
	TrendChartTitle  = "Keyword Trend Analysis"
	NoTrendData      = "⚠️ *No data available for the trend report in the last 30 days.*"
	dayLayout        = "2006-01-02"
)

// ReportConfig configures the report usecase
type ReportConfig struct {
	Destination string
	Cutoff      domain.DailyCutoff
	TrendWindow time.Duration
}

// ReportUsecase builds and sends detailed, daily and trend reports
type ReportUsecase struct {
	notifier repo.NotifierRepo
	matchLog repo.MatchLogRepo
	chart    repo.ChartRepo
	archive  repo.ArchiveRepo // optional
	state    *State
	cfg      ReportConfig
	now      func() time.Time
	log      zerolog.Logger
}

// NewReportUsecase creates a new report usecase. archive may be nil.
func NewReportUsecase(
	notifier repo.NotifierRepo,
	matchLog repo.MatchLogRepo,
	chart repo.ChartRepo,
	archive repo.ArchiveRepo,
	state *State,
	cfg ReportConfig,
) *ReportUsecase {
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = domain.DefaultTrendWindow
	}
	return &ReportUsecase{
		notifier: notifier,
		matchLog: matchLog,
		chart:    chart,
		archive:  archive,
		state:    state,
		cfg:      cfg,
		now:      time.Now,
		log:      logging.Component("ReportUC"),
	}
}

// Cutoff returns the daily summary cutoff
func (uc *ReportUsecase) Cutoff() domain.DailyCutoff {
	return uc.cfg.Cutoff
}

// DetailReport is the result of a keyword, date or chat report
type DetailReport struct {
	Kind    string // keyword, date, chat
	Value   string
	Entries []domain.LogEntry
	Sent    bool
	Reply   string // text for the requester; empty when the report was sent
}

// ByKeyword sends every logged match of keyword
func (uc *ReportUsecase) ByKeyword(ctx context.Context, keyword string) (*DetailReport, error) {
	keyword = domain.NormalizeKeyword(keyword)
	records, err := uc.matchLog.ByKeyword(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("query match log by keyword: %w", err)
	}
	return uc.sendDetail(ctx, "keyword", "🔍 *Report for keyword*", keyword, records)
}

// ByDate sends every logged match on day (YYYY-MM-DD, reporting timezone)
func (uc *ReportUsecase) ByDate(ctx context.Context, day string) (*DetailReport, error) {
	day = strings.TrimSpace(day)
	if _, err := time.Parse(dayLayout, day); err != nil {
		return &DetailReport{
			Kind:  "date",
			Value: day,
			Reply: fmt.Sprintf("⚠️ *Invalid date format* `%s`. *Please use YYYY-MM-DD format.*", day),
		}, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}
	records, err := uc.matchLog.ByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("query match log by date: %w", err)
	}
	return uc.sendDetail(ctx, "date", "📅 *Report for date*", day, records)
}

// ByChat sends every logged match from the chat with this name (case-insensitive)
func (uc *ReportUsecase) ByChat(ctx context.Context, name string) (*DetailReport, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	records, err := uc.matchLog.ByChat(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("query match log by chat: %w", err)
	}
	return uc.sendDetail(ctx, "chat", "🏷️ *Report for chat*", name, records)
}

func (uc *ReportUsecase) sendDetail(ctx context.Context, kind, header, value string, records []*domain.MatchRecord) (*DetailReport, error) {
	report := &DetailReport{Kind: kind, Value: value}
	if len(records) == 0 {
		report.Reply = fmt.Sprintf("⚠️ *No messages found for %s* `%s`.", kind, value)
		return report, nil
	}

	blocks := make([]string, 0, len(records))
	for _, rec := range records {
		entry := rec.LogEntry()
		report.Entries = append(report.Entries, entry)
		data, err := json.MarshalIndent(entry, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("marshal log entry: %w", err)
		}
		blocks = append(blocks, string(data))
	}

	text := fmt.Sprintf("%s `%s`:\n\n", header, value) + strings.Join(blocks, domain.AlertSeparator)
	if err := uc.notifier.SendText(ctx, uc.cfg.Destination, text); err != nil {
		metrics.DeliveryFailures.WithLabelValues("report").Inc()
		return report, fmt.Errorf("send %s report: %w", kind, err)
	}
	report.Sent = true
	uc.log.Info().Str("kind", kind).Str("value", value).Int("entries", len(records)).Msg("detail report sent")
	return report, nil
}

// SummaryResult is the outcome of a daily summary attempt
type SummaryResult struct {
	Sent  bool
	Count int           // alerts included
	Wait  time.Duration // until the next cutoff
}

// SendDailySummary flushes the summary buffer when the cutoff has passed or force
// is set and the buffer is not empty. The buffer is cleared even if delivery fails.
// The returned Wait is always the delay until the next cutoff.
func (uc *ReportUsecase) SendDailySummary(ctx context.Context, force bool) (*SummaryResult, error) {
	now := uc.now()
	result := &SummaryResult{Wait: uc.cfg.Cutoff.Until(now)}

	if !force && !uc.cfg.Cutoff.Reached(now) {
		return result, nil
	}

	alerts := uc.state.Summary.Drain()
	metrics.SummaryBufferSize.Set(float64(uc.state.Summary.Len()))
	if len(alerts) == 0 {
		return result, nil
	}
	result.Count = len(alerts)

	text := domain.RenderDailySummary(alerts)
	if err := uc.notifier.SendText(ctx, uc.cfg.Destination, text); err != nil {
		metrics.DeliveryFailures.WithLabelValues("summary").Inc()
		uc.log.Error().Err(err).Int("alerts", len(alerts)).Msg("failed to send daily summary")
		return result, fmt.Errorf("send daily summary: %w", err)
	}
	result.Sent = true
	metrics.SummariesSent.Inc()
	uc.log.Info().Int("alerts", len(alerts)).Bool("forced", force).Msg("daily summary sent")

	uc.archivePut(ctx, fmt.Sprintf("summaries/%s.md", now.In(uc.location()).Format("2006-01-02T1504")), "text/markdown", []byte(text))
	return result, nil
}

// TrendResult is the outcome of a trend report
type TrendResult struct {
	Empty  bool
	Matrix domain.TrendMatrix
	Chart  []byte
}

// SendTrendReport renders the occurrences of the trailing window as a chart and sends it.
// With no data in the window only the notice is sent and no chart is rendered.
func (uc *ReportUsecase) SendTrendReport(ctx context.Context) (*TrendResult, error) {
	now := uc.now()
	points := uc.state.Trend.Window(now, uc.cfg.TrendWindow)
	if len(points) == 0 {
		if err := uc.notifier.SendText(ctx, uc.cfg.Destination, NoTrendData); err != nil {
			metrics.DeliveryFailures.WithLabelValues("report").Inc()
			return &TrendResult{Empty: true}, fmt.Errorf("send trend notice: %w", err)
		}
		return &TrendResult{Empty: true}, nil
	}

	matrix := domain.BuildTrendMatrix(points, uc.location())
	png, err := uc.chart.RenderTrend(ctx, matrix)
	if err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	result := &TrendResult{Matrix: matrix, Chart: png}

	if err := uc.notifier.SendText(ctx, uc.cfg.Destination, TrendReportTitle); err != nil {
		metrics.DeliveryFailures.WithLabelValues("report").Inc()
		return result, fmt.Errorf("send trend report: %w", err)
	}
	if err := uc.notifier.SendImage(ctx, uc.cfg.Destination, png, TrendChartTitle); err != nil {
		metrics.DeliveryFailures.WithLabelValues("report").Inc()
		return result, fmt.Errorf("send trend chart: %w", err)
	}
	uc.log.Info().Int("days", len(matrix.Days)).Int("keywords", len(matrix.Keywords)).Msg("trend report sent")

	uc.archivePut(ctx, fmt.Sprintf("trends/%s.png", now.In(uc.location()).Format("2006-01-02T1504")), "image/png", png)
	return result, nil
}

// Stats is a point-in-time view of the monitor state
type Stats struct {
	Keywords        int    `json:"keywords"`
	ProcessedIDs    int    `json:"processed_ids"`
	RecentAlerts    int    `json:"recent_alerts"`
	PendingSummary  int    `json:"pending_summary"`
	TrendPoints     int    `json:"trend_points"`
	MatchLogEntries int    `json:"match_log_entries"`
	NextSummaryIn   string `json:"next_summary_in"`
}

// Stats returns current counters
func (uc *ReportUsecase) Stats(ctx context.Context) (*Stats, error) {
	count, err := uc.matchLog.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count match log: %w", err)
	}
	return &Stats{
		Keywords:        uc.state.Keywords.Len(),
		ProcessedIDs:    uc.state.Processed.Len(),
		RecentAlerts:    uc.state.Alerts.Len(),
		PendingSummary:  uc.state.Summary.Len(),
		TrendPoints:     uc.state.Trend.Len(),
		MatchLogEntries: count,
		NextSummaryIn:   uc.cfg.Cutoff.Until(uc.now()).Round(time.Second).String(),
	}, nil
}

func (uc *ReportUsecase) location() *time.Location {
	if uc.cfg.Cutoff.Location != nil {
		return uc.cfg.Cutoff.Location
	}
	return time.UTC
}

func (uc *ReportUsecase) archivePut(ctx context.Context, name, contentType string, body []byte) {
	if uc.archive == nil {
		return
	}
	if err := uc.archive.Put(ctx, name, contentType, body); err != nil {
		uc.log.Warn().Err(err).Str("object", name).Msg("failed to archive report")
	}
}
