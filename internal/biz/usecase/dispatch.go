package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// DispatchUsecase turns match records into alerts.
//
// An alert identical to one still in the alert ledger is not sent again, but the
// occurrence is still recorded in the summary buffer, the match log and the trend
// series. Failed deliveries are logged; nothing is rolled back or retried.
type DispatchUsecase struct {
	notifier    repo.NotifierRepo
	destination string
	state       *State
	matchLog    repo.MatchLogRepo
	events      repo.EventPublisher // optional
	log         zerolog.Logger
}

// NewDispatchUsecase creates a new dispatch usecase. events may be nil.
func NewDispatchUsecase(
	notifier repo.NotifierRepo,
	destination string,
	state *State,
	matchLog repo.MatchLogRepo,
	events repo.EventPublisher,
) *DispatchUsecase {
	return &DispatchUsecase{
		notifier:    notifier,
		destination: destination,
		state:       state,
		matchLog:    matchLog,
		events:      events,
		log:         logging.Component("DispatchUC"),
	}
}

// DispatchResult describes what happened to one match
type DispatchResult struct {
	Alert       string
	Suppressed  bool
	DeliveryErr error
}

// Dispatch renders and delivers the alert for rec. image is attached when non-empty.
func (uc *DispatchUsecase) Dispatch(ctx context.Context, rec *domain.MatchRecord, image []byte) *DispatchResult {
	alert := rec.RenderAlert()
	result := &DispatchResult{Alert: alert}

	uc.log.Info().
		Str("keyword", rec.Keyword).
		Str("source", string(rec.Source)).
		Str("chat", rec.ChatName).
		Msg(alert)

	if uc.state.Alerts.ContainsOrAdd(alert) {
		result.Suppressed = true
		metrics.AlertsSuppressed.Inc()
		uc.log.Debug().Str("keyword", rec.Keyword).Msg("identical alert recently sent, suppressed")
	} else {
		result.DeliveryErr = uc.deliver(ctx, alert, image)
	}

	uc.state.Summary.Append(alert)
	metrics.SummaryBufferSize.Set(float64(uc.state.Summary.Len()))

	if err := uc.matchLog.Append(ctx, rec); err != nil {
		uc.log.Error().Err(err).Str("keyword", rec.Keyword).Msg("failed to append match log")
	}

	uc.state.Trend.Record(rec.Keyword, rec.Timestamp)

	if uc.events != nil {
		if err := uc.events.PublishMatch(ctx, rec); err != nil {
			uc.log.Warn().Err(err).Msg("failed to publish match event")
		}
	}

	return result
}

func (uc *DispatchUsecase) deliver(ctx context.Context, alert string, image []byte) error {
	if err := uc.notifier.SendText(ctx, uc.destination, alert); err != nil {
		metrics.DeliveryFailures.WithLabelValues("alert").Inc()
		uc.log.Error().Err(err).Msg("error sending notification")
		return err
	}
	metrics.AlertsSent.Inc()

	if len(image) == 0 {
		return nil
	}
	if err := uc.notifier.SendImage(ctx, uc.destination, image, repo.ImageCaption); err != nil {
		metrics.DeliveryFailures.WithLabelValues("alert").Inc()
		uc.log.Error().Err(err).Msg("error sending notification image")
		return err
	}
	return nil
}
