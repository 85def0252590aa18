package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

type stubChats struct {
	pings   int
	pingErr error
}

func (s *stubChats) Source() string { return "stub" }
func (s *stubChats) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	return nil
}
func (s *stubChats) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	return &domain.ChatInfo{ChatID: chatID}, nil
}
func (s *stubChats) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	return nil, nil
}
func (s *stubChats) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	return nil
}
func (s *stubChats) Ping(ctx context.Context) error {
	s.pings++
	return s.pingErr
}

type stubSender struct {
	sent map[string][]string
}

func (s *stubSender) SendText(ctx context.Context, chatID, text string) error {
	if s.sent == nil {
		s.sent = make(map[string][]string)
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func TestKeepAlive_SelfMessage(t *testing.T) {
	chats := &stubChats{}
	sender := &stubSender{}
	k := NewKeepAlive(chats, sender, "oc_self", 0)

	k.tick(context.Background())
	assert.Equal(t, []string{KeepAliveMessage}, sender.sent["oc_self"])
	assert.Equal(t, 0, chats.pings)
}

func TestKeepAlive_PingWithoutChat(t *testing.T) {
	chats := &stubChats{pingErr: errors.New("down")}
	k := NewKeepAlive(chats, &stubSender{}, "", 0)

	k.tick(context.Background())
	k.tick(context.Background())
	assert.Equal(t, 2, chats.pings, "failures never stop the loop")
}
