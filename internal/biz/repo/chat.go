package repo

import (
	"context"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// ChatRepo is the chat transport interface.
// One implementation exists per platform; messages are routed by ChatMessage.Source.
type ChatRepo interface {
	// Source returns the platform name stamped on messages from this transport
	Source() string

	// Resolve fills sender and chat metadata the event did not carry
	// (chat title, sender names, permanent link). Failures leave fallbacks in place.
	Resolve(ctx context.Context, msg *domain.ChatMessage) error

	// GetChatInfo gets chat information
	GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error)

	// DownloadMedia fetches the attachment bytes of a message
	DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error)

	// Reply sends a text reply into the conversation the message came from
	Reply(ctx context.Context, msg *domain.ChatMessage, text string) error

	// Ping performs a liveness round trip against the platform
	Ping(ctx context.Context) error
}
