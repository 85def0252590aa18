package server

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/twitch"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/service"
)

// Enqueuer accepts messages for the workers
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *domain.ChatMessage) error
}

// IngestServer routes platform messages: admin commands run directly,
// everything else goes to the queue
type IngestServer struct {
	ctx      context.Context
	queue    Enqueuer
	commands *CommandHandler
	handled  *domain.ProcessedLedger
	log      zerolog.Logger
}

// NewIngestServer creates a new ingest server. ctx bounds blocking enqueues.
// Commands are claimed in handled, the same ledger the workers use, so a
// redelivered command runs once.
func NewIngestServer(ctx context.Context, queue Enqueuer, commands *CommandHandler, handled *domain.ProcessedLedger) *IngestServer {
	if handled == nil {
		handled = domain.NewProcessedLedger()
	}
	return &IngestServer{
		ctx:      ctx,
		queue:    queue,
		commands: commands,
		handled:  handled,
		log:      logging.Component("Ingest"),
	}
}

// Submit handles one inbound message
func (s *IngestServer) Submit(msg *domain.ChatMessage) {
	if msg == nil {
		return
	}
	if s.commands != nil && s.commands.Accepts(msg) {
		if !s.handled.Claim(msg.Key()) {
			s.log.Debug().Str("msg_id", msg.ID).Msg("duplicate command ignored")
			return
		}
		// commands must not wait behind queued messages
		go s.commands.Handle(context.WithoutCancel(s.ctx), msg)
		return
	}

	if err := s.queue.Enqueue(s.ctx, msg); err != nil {
		if errors.Is(err, service.ErrQueueClosed) || errors.Is(err, context.Canceled) {
			s.log.Debug().Str("msg_id", msg.ID).Msg("message dropped during shutdown")
			return
		}
		s.log.Error().Err(err).Str("msg_id", msg.ID).Msg("error handling new message")
	}
}

// FeishuMessage converts a Feishu event message into a ChatMessage.
// Only the first image of a message is inspected.
func FeishuMessage(m *feishu.Message) *domain.ChatMessage {
	if m == nil {
		return nil
	}
	msg := &domain.ChatMessage{
		Source:   "feishu",
		ID:       m.MsgID,
		ChatID:   m.ChatID,
		ChatType: domain.ChatTypeP2P,
		Text:     m.Content,
		SentAt:   time.Now(),
	}
	if m.ChatType == "group" {
		msg.ChatType = domain.ChatTypeGroup
	}
	if m.CreateTime > 0 {
		msg.SentAt = time.UnixMilli(m.CreateTime)
	}
	if m.Sender != nil {
		msg.SenderID = m.Sender.SenderID
		msg.FromBot = m.Sender.IsApp()
	}
	if len(m.ImageKeys) > 0 {
		msg.Media = &domain.Media{Key: m.ImageKeys[0], MimeType: "image"}
	}
	return msg
}

// TwitchMessage converts a Twitch chat message into a ChatMessage
func TwitchMessage(m *twitch.Message) *domain.ChatMessage {
	if m == nil {
		return nil
	}
	return &domain.ChatMessage{
		Source:          "twitch",
		ID:              m.ID,
		ChatID:          m.Channel,
		ChatTitle:       "#" + m.Channel,
		ChatType:        domain.ChatTypeChannel,
		SenderID:        m.UserID,
		SenderUsername:  m.Login,
		SenderFirstName: m.DisplayName,
		Text:            m.Text,
		SentAt:          m.Time,
		Link:            twitch.ChannelLink(m.Channel),
	}
}

// FeishuService feeds Feishu events into an ingest server while it runs
type FeishuService struct {
	client *feishu.Client
	ingest *IngestServer
}

// NewFeishuService creates a new Feishu transport service
func NewFeishuService(client *feishu.Client, ingest *IngestServer) *FeishuService {
	return &FeishuService{client: client, ingest: ingest}
}

// Serve implements suture.Service
func (s *FeishuService) Serve(ctx context.Context) error {
	s.client.OnMessage(func(m *feishu.Message) {
		s.ingest.Submit(FeishuMessage(m))
	})
	defer s.client.OnMessage(nil)

	if err := s.client.Start(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *FeishuService) String() string {
	return "feishu-transport"
}

// TwitchService feeds Twitch chat into an ingest server while it runs
type TwitchService struct {
	conn   *twitch.Connector
	ingest *IngestServer
}

// NewTwitchService creates a new Twitch transport service
func NewTwitchService(conn *twitch.Connector, ingest *IngestServer) *TwitchService {
	return &TwitchService{conn: conn, ingest: ingest}
}

// Serve implements suture.Service
func (s *TwitchService) Serve(ctx context.Context) error {
	s.conn.OnMessage(func(m *twitch.Message) {
		s.ingest.Submit(TwitchMessage(m))
	})
	defer s.conn.OnMessage(nil)

	if err := s.conn.Start(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *TwitchService) String() string {
	return "twitch-transport"
}
