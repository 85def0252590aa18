package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// MonitorUsecase runs one message through claim, filtering, matching and dispatch
type MonitorUsecase struct {
	state              *State
	chats              repo.ChatRepo
	ocr                repo.OCRRepo // nil disables image matching
	dispatch           *DispatchUsecase
	loc                *time.Location
	notificationChatID string
	log                zerolog.Logger
}

// NewMonitorUsecase creates a new monitor usecase
func NewMonitorUsecase(
	state *State,
	chats repo.ChatRepo,
	ocr repo.OCRRepo,
	dispatch *DispatchUsecase,
	loc *time.Location,
	notificationChatID string,
) *MonitorUsecase {
	return &MonitorUsecase{
		state:              state,
		chats:              chats,
		ocr:                ocr,
		dispatch:           dispatch,
		loc:                loc,
		notificationChatID: notificationChatID,
		log:                logging.Component("MonitorUC"),
	}
}

// ProcessResult describes the outcome of processing one message
type ProcessResult struct {
	Duplicate bool // already claimed by an earlier delivery
	Skipped   bool // from the notification chat or a bot
	Matches   []*domain.MatchRecord
}

// Process handles one message. The message id is claimed before any other work,
// so a redelivered message is never processed twice, even concurrently.
func (uc *MonitorUsecase) Process(ctx context.Context, msg *domain.ChatMessage) (*ProcessResult, error) {
	result := &ProcessResult{}

	if !uc.state.Processed.Claim(msg.Key()) {
		result.Duplicate = true
		metrics.MessagesProcessed.WithLabelValues(metrics.ResultDuplicate).Inc()
		return result, nil
	}

	if err := uc.chats.Resolve(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Str("msg_id", msg.ID).Msg("failed to resolve message metadata, using fallbacks")
	}

	if msg.FromBot || (uc.notificationChatID != "" && msg.ChatID == uc.notificationChatID) {
		uc.log.Info().Str("msg_id", msg.ID).Msg("message from notification chat or bot skipped")
		result.Skipped = true
		metrics.MessagesProcessed.WithLabelValues(metrics.ResultSkipped).Inc()
		return result, nil
	}

	var errs []error

	if msg.HasText() {
		if rec := uc.matchText(ctx, msg); rec != nil {
			result.Matches = append(result.Matches, rec)
		}
	}

	if msg.HasMedia() && uc.ocr != nil {
		rec, err := uc.matchImage(ctx, msg)
		if err != nil {
			errs = append(errs, err)
		}
		if rec != nil {
			result.Matches = append(result.Matches, rec)
		}
	}

	err := errors.Join(errs...)
	switch {
	case err != nil:
		metrics.MessagesProcessed.WithLabelValues(metrics.ResultFailed).Inc()
	case len(result.Matches) > 0:
		metrics.MessagesProcessed.WithLabelValues(metrics.ResultMatched).Inc()
	default:
		metrics.MessagesProcessed.WithLabelValues(metrics.ResultUnmatched).Inc()
	}
	return result, err
}

func (uc *MonitorUsecase) matchText(ctx context.Context, msg *domain.ChatMessage) *domain.MatchRecord {
	text := domain.Normalize(msg.Text)
	kw, ok := domain.Match(text, uc.state.Keywords.Snapshot())
	if !ok {
		return nil
	}
	rec := domain.NewMatchRecord(kw, domain.SourceText, text, msg, uc.loc)
	metrics.Matches.WithLabelValues(string(domain.SourceText)).Inc()
	uc.dispatch.Dispatch(ctx, rec, nil)
	return rec
}

func (uc *MonitorUsecase) matchImage(ctx context.Context, msg *domain.ChatMessage) (*domain.MatchRecord, error) {
	data := msg.Media.Data
	if len(data) == 0 {
		uc.log.Info().Str("msg_id", msg.ID).Msg("starting file download")
		downloaded, err := uc.chats.DownloadMedia(ctx, msg)
		if err != nil {
			uc.log.Error().Err(err).Str("msg_id", msg.ID).Msg("error during image download")
			return nil, fmt.Errorf("download media %s: %w", msg.ID, err)
		}
		data = downloaded
	}

	start := time.Now()
	raw, err := uc.ocr.ExtractText(ctx, data)
	metrics.OCRDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, repo.ErrNotAnImage) {
		uc.log.Error().Str("msg_id", msg.ID).Msg("downloaded file is not a valid image, skipping processing")
		return nil, nil
	}
	if err != nil {
		uc.log.Error().Err(err).Str("msg_id", msg.ID).Msg("error during image processing")
		return nil, fmt.Errorf("extract text %s: %w", msg.ID, err)
	}

	text := domain.Normalize(raw)
	kw, ok := domain.Match(text, uc.state.Keywords.Snapshot())
	if !ok {
		return nil, nil
	}
	rec := domain.NewMatchRecord(kw, domain.SourceImage, text, msg, uc.loc)
	metrics.Matches.WithLabelValues(string(domain.SourceImage)).Inc()
	uc.dispatch.Dispatch(ctx, rec, data)
	return rec, nil
}
