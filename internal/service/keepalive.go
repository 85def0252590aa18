package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// KeepAliveMessage is the text sent on every keep-alive tick
const KeepAliveMessage = "keep-alive"

// TextSender sends a plain message to a chat
type TextSender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// KeepAlive exercises the transports once per interval. With a chat id and
// a sender it posts a self-message, otherwise it pings every transport.
type KeepAlive struct {
	chats    repo.ChatRepo
	sender   TextSender
	chatID   string
	interval time.Duration
	log      zerolog.Logger
}

// NewKeepAlive creates a new keep-alive runner. sender may be nil.
func NewKeepAlive(chats repo.ChatRepo, sender TextSender, chatID string, interval time.Duration) *KeepAlive {
	if interval <= 0 {
		interval = time.Hour
	}
	return &KeepAlive{
		chats:    chats,
		sender:   sender,
		chatID:   chatID,
		interval: interval,
		log:      logging.Component("KeepAlive"),
	}
}

// Serve ticks until ctx is done. Failures are logged and never end the loop.
func (k *KeepAlive) Serve(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			k.tick(ctx)
		}
	}
}

func (k *KeepAlive) tick(ctx context.Context) {
	k.log.Info().Msg("sending keep-alive ping")

	var err error
	if k.sender != nil && k.chatID != "" {
		err = k.sender.SendText(ctx, k.chatID, KeepAliveMessage)
	} else {
		err = k.chats.Ping(ctx)
	}
	if err != nil {
		k.log.Error().Err(err).Msg("error in keep-alive")
	}
}

func (k *KeepAlive) String() string {
	return "keep-alive"
}
