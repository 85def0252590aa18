package data

import (
	"context"
	"fmt"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/twitch"
)

// twitchAPI is the subset of the Twitch connector used by the repository
type twitchAPI interface {
	Say(channel, text string) error
	Connected() bool
}

// twitchRepo implements the Twitch chat repository.
// IRC events already carry everything; Resolve only derives the link.
type twitchRepo struct {
	conn twitchAPI
}

// NewTwitchRepo creates a new Twitch chat repository
func NewTwitchRepo(conn twitchAPI) repo.ChatRepo {
	return &twitchRepo{conn: conn}
}

func (r *twitchRepo) Source() string {
	return "twitch"
}

func (r *twitchRepo) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.Link == "" {
		msg.Link = twitch.ChannelLink(msg.ChatID)
	}
	if msg.ChatTitle == "" {
		msg.ChatTitle = "#" + msg.ChatID
	}
	return nil
}

func (r *twitchRepo) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	return &domain.ChatInfo{
		ChatID:   chatID,
		Name:     "#" + chatID,
		ChatType: domain.ChatTypeChannel,
	}, nil
}

func (r *twitchRepo) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	return nil, ErrMediaUnsupported
}

func (r *twitchRepo) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	return r.conn.Say(msg.ChatID, text)
}

func (r *twitchRepo) Ping(ctx context.Context) error {
	if !r.conn.Connected() {
		return fmt.Errorf("ping: %w", twitch.ErrNotConnected)
	}
	return nil
}
