package data

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

// MatchEvent is the payload published for every match
type MatchEvent struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Source    string    `json:"source"`
	Channel   string    `json:"channel,omitempty"`
	ChatID    string    `json:"chat_id"`
	ChatName  string    `json:"chat_name"`
	Sender    string    `json:"sender_name"`
	Message   string    `json:"message"`
	Link      string    `json:"message_link"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMatchEvent converts a record into its published form
func NewMatchEvent(rec *domain.MatchRecord) MatchEvent {
	entry := rec.LogEntry()
	return MatchEvent{
		ID:        rec.ID,
		Keyword:   rec.Keyword,
		Source:    string(rec.Source),
		Channel:   rec.Channel,
		ChatID:    rec.ChatID,
		ChatName:  rec.ChatName,
		Sender:    rec.SenderName,
		Message:   entry.Message,
		Link:      rec.Link,
		Timestamp: rec.Timestamp,
	}
}

// msgPublisher is the NATS call used by the publisher
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// natsPublisher publishes match records on a NATS subject
type natsPublisher struct {
	conn    msgPublisher
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS. The connection retries in the background,
// so an unreachable server does not fail startup.
func NewNATSPublisher(url, subject string) (repo.EventPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tele-monitor"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &natsPublisher{conn: nc, nc: nc, subject: subject}, nil
}

// PublishMatch publishes the record with its id as the message id header
func (p *natsPublisher) PublishMatch(ctx context.Context, rec *domain.MatchRecord) error {
	data, err := json.Marshal(NewMatchEvent(rec))
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Header.Set(nats.MsgIdHdr, rec.ID)
	msg.Header.Set("Keyword", rec.Keyword)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

// Close drains the connection
func (p *natsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
