package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// ErrMediaUnsupported is returned when a message carries no downloadable media
var ErrMediaUnsupported = errors.New("message has no supported media")

// larkAPI is the subset of the Feishu client used by the repositories
type larkAPI interface {
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
	DownloadImage(ctx context.Context, messageID, imageKey string) ([]byte, error)
	SendMarkdown(ctx context.Context, chatID, markdown string) error
	SendImage(ctx context.Context, chatID string, image []byte) error
	GetBotInfo(ctx context.Context) (*feishu.BotInfo, error)
}

// chatCacheTTL bounds how long chat names and member lists are reused
const chatCacheTTL = 10 * time.Minute

type chatCacheEntry struct {
	info    *domain.ChatInfo
	members map[string]string // open_id -> name
	fetched time.Time
}

// larkRepo implements the Feishu chat repository
type larkRepo struct {
	client larkAPI
	log    zerolog.Logger

	mu    sync.Mutex
	chats map[string]*chatCacheEntry
	now   func() time.Time
}

// NewLarkRepo creates a new Feishu chat repository
func NewLarkRepo(client larkAPI) repo.ChatRepo {
	return newLarkRepo(client)
}

func newLarkRepo(client larkAPI) *larkRepo {
	return &larkRepo{
		client: client,
		log:    logging.Component("LarkRepo"),
		chats:  make(map[string]*chatCacheEntry),
		now:    time.Now,
	}
}

// Source returns the platform name
func (r *larkRepo) Source() string {
	return "feishu"
}

// Resolve fills chat title, sender name and link
func (r *larkRepo) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	msg.Link = feishu.ChatLink(msg.ChatID)

	entry, err := r.chat(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		return err
	}
	if entry.info != nil && entry.info.ChatType != domain.ChatTypeP2P {
		msg.ChatTitle = entry.info.Name
	}
	if name, ok := entry.members[msg.SenderID]; ok && name != "" {
		msg.SenderUsername = name
	}
	return nil
}

// chat returns cached chat metadata, refreshing it when stale or when the
// sender is not yet a known member
func (r *larkRepo) chat(ctx context.Context, chatID, senderID string) (*chatCacheEntry, error) {
	r.mu.Lock()
	entry, ok := r.chats[chatID]
	r.mu.Unlock()

	if ok && r.now().Sub(entry.fetched) < chatCacheTTL {
		if _, known := entry.members[senderID]; known || senderID == "" {
			return entry, nil
		}
	}

	info, err := r.GetChatInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}

	members, err := r.client.GetChatMembers(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat members %s: %w", chatID, err)
	}
	memberMap := make(map[string]string, len(members))
	for _, m := range members {
		memberMap[m.MemberID] = m.Name
	}

	entry = &chatCacheEntry{info: info, members: memberMap, fetched: r.now()}
	r.mu.Lock()
	r.chats[chatID] = entry
	r.mu.Unlock()
	return entry, nil
}

// GetChatInfo gets chat info
func (r *larkRepo) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	info, err := r.client.GetChatInfo(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat info %s: %w", chatID, err)
	}

	chatType := domain.ChatTypeGroup
	if info.ChatType == "p2p" {
		chatType = domain.ChatTypeP2P
	}
	return &domain.ChatInfo{
		ChatID:   chatID,
		Name:     info.Name,
		ChatType: chatType,
	}, nil
}

// DownloadMedia downloads the image attached to a message
func (r *larkRepo) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	if msg.Media == nil || msg.Media.Key == "" {
		return nil, ErrMediaUnsupported
	}
	return r.client.DownloadImage(ctx, msg.ID, msg.Media.Key)
}

// Reply sends a Markdown reply into the originating chat
func (r *larkRepo) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	return r.client.SendMarkdown(ctx, msg.ChatID, text)
}

// Ping fetches the bot identity
func (r *larkRepo) Ping(ctx context.Context) error {
	_, err := r.client.GetBotInfo(ctx)
	return err
}

// larkNotifier delivers notifications through the Feishu IM API
type larkNotifier struct {
	client larkAPI
}

// NewLarkNotifier creates a notifier that posts into a Feishu chat
func NewLarkNotifier(client larkAPI) repo.NotifierRepo {
	return &larkNotifier{client: client}
}

// SendText sends a Markdown message
func (n *larkNotifier) SendText(ctx context.Context, chatID, text string) error {
	return n.client.SendMarkdown(ctx, chatID, text)
}

// SendImage sends the image followed by its caption, Feishu images carry no caption
func (n *larkNotifier) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	if err := n.client.SendImage(ctx, chatID, image); err != nil {
		return err
	}
	if caption == "" {
		return nil
	}
	return n.client.SendMarkdown(ctx, chatID, caption)
}
