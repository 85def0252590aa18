package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// retryDelay is used when a summary attempt gives no next-cutoff delay
const retryDelay = time.Minute

// SummarySender sends the daily summary
type SummarySender interface {
	SendDailySummary(ctx context.Context, force bool) (*usecase.SummaryResult, error)
}

// SummaryScheduler flushes the daily summary at the daily cutoff
type SummaryScheduler struct {
	report SummarySender
	log    zerolog.Logger
	timer  func(d time.Duration) <-chan time.Time
}

// NewSummaryScheduler creates a new summary scheduler
func NewSummaryScheduler(report SummarySender) *SummaryScheduler {
	return &SummaryScheduler{
		report: report,
		log:    logging.Component("Scheduler"),
		timer:  time.After,
	}
}

// Serve attempts a flush, then sleeps until the next cutoff, until ctx is done
func (s *SummaryScheduler) Serve(ctx context.Context) error {
	for {
		wait := retryDelay
		result, err := s.report.SendDailySummary(ctx, false)
		if err != nil {
			s.log.Error().Err(err).Msg("daily summary failed")
		}
		if result != nil && result.Wait > 0 {
			wait = result.Wait
		}
		if result != nil && result.Sent {
			s.log.Info().Int("alerts", result.Count).Msg("daily summary flushed")
		}
		s.log.Debug().Dur("wait", wait).Msg("next daily summary check")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.timer(wait):
		}
	}
}

func (s *SummaryScheduler) String() string {
	return "summary-scheduler"
}
