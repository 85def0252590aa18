package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/conf"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/twitch"
)

// Repositories contains all repositories.
// OCR, Archive and Events are nil when disabled by configuration.
type Repositories struct {
	Chats    repo.ChatRepo
	Notifier repo.NotifierRepo
	OCR      repo.OCRRepo
	Chart    repo.ChartRepo
	MatchLog repo.MatchLogRepo
	Archive  repo.ArchiveRepo
	Events   repo.EventPublisher
}

// Clients are the platform connections shared across runs
type Clients struct {
	Feishu *feishu.Client    // nil when the feishu source and backend are off
	Twitch *twitch.Connector // nil when the twitch source is off
}

// NewRepositories creates all repositories
func NewRepositories(
	ctx context.Context,
	cfg *conf.Config,
	clients Clients,
	loc *time.Location,
	chartTitle string,
) (*Repositories, error) {
	repos := &Repositories{Chart: NewChartRepo(chartTitle)}

	var chats []repo.ChatRepo
	if clients.Feishu != nil && cfg.HasSource(conf.SourceFeishu) {
		chats = append(chats, NewLarkRepo(clients.Feishu))
	}
	if clients.Twitch != nil && cfg.HasSource(conf.SourceTwitch) {
		chats = append(chats, NewTwitchRepo(clients.Twitch))
	}
	if len(chats) == 0 {
		return nil, errors.New("no chat source configured")
	}
	repos.Chats = NewChatRouter(chats...)

	switch cfg.Notify.Backend {
	case conf.BackendFeishu:
		if clients.Feishu == nil {
			return nil, errors.New("feishu notifier requires a feishu client")
		}
		repos.Notifier = NewLarkNotifier(clients.Feishu)
	default:
		repos.Notifier = NewTelegramNotifier(TelegramConfig{
			Token:      cfg.Notify.BotToken,
			APIBase:    cfg.Notify.APIBase,
			RatePerSec: cfg.Notify.RatePerSec,
			Burst:      cfg.Notify.Burst,
		})
	}

	if cfg.OCR.APIKey != "" {
		repos.OCR = NewOCRRepo(cfg.OCR.APIKey, cfg.OCR.BaseURL, cfg.OCR.Model)
	}

	matchLog, err := NewMatchLogRepo(cfg.Store.MatchLogDBPath, loc)
	if err != nil {
		return nil, err
	}
	repos.MatchLog = matchLog

	if cfg.Archive.Bucket != "" {
		archive, err := NewS3Archive(ctx, ArchiveConfig{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Prefix:          cfg.Archive.Prefix,
		})
		if err != nil {
			_ = repos.Close()
			return nil, err
		}
		repos.Archive = archive
	}

	if cfg.Events.NATSURL != "" {
		events, err := NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			_ = repos.Close()
			return nil, err
		}
		repos.Events = events
	}

	return repos, nil
}

// Close releases the match log and the event connection
func (r *Repositories) Close() error {
	var errs []error
	if r.MatchLog != nil {
		if err := r.MatchLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close match log: %w", err))
		}
	}
	if r.Events != nil {
		if err := r.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	return errors.Join(errs...)
}
