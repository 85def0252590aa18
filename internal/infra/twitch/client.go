package twitch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// ErrNotConnected is returned when the IRC connection is down
var ErrNotConnected = errors.New("twitch: not connected")

// Message represents a Twitch chat message
type Message struct {
	ID          string
	Channel     string // without the leading #
	UserID      string
	Login       string
	DisplayName string
	Text        string
	Time        time.Time
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Connector manages the Twitch chat connection
type Connector struct {
	username string
	oauth    string
	channels []string
	client   *twitch.Client
	log      zerolog.Logger

	connected atomic.Bool
	stopping  atomic.Bool

	mu        sync.RWMutex
	onMessage MessageHandler
}

// New creates a new Twitch connector. An empty username connects anonymously
// (read-only, replies are not possible).
func New(username, oauth string, channels []string) *Connector {
	var client *twitch.Client
	if username == "" {
		client = twitch.NewAnonymousClient()
	} else {
		client = twitch.NewClient(username, oauth)
	}
	c := &Connector{
		username: username,
		oauth:    oauth,
		channels: channels,
		client:   client,
		log:      logging.Component("Twitch"),
	}

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		c.dispatch(ConvertPrivateMessage(msg))
	})
	client.OnConnect(func() {
		c.connected.Store(true)
		if c.stopping.Load() {
			// Start already returned; the welcome arrived late
			_ = c.client.Disconnect()
			return
		}
		c.log.Info().Strs("channels", c.channels).Msg("connected to Twitch IRC")
	})
	client.OnReconnectMessage(func(msg twitch.ReconnectMessage) {
		c.connected.Store(false)
		c.log.Info().Msg("reconnecting to Twitch IRC")
	})

	return c
}

// OnMessage sets the message handler
func (c *Connector) OnMessage(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

func (c *Connector) dispatch(msg *Message) {
	c.mu.RLock()
	handler := c.onMessage
	c.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

// ConvertPrivateMessage converts an IRC PRIVMSG into a Message
func ConvertPrivateMessage(msg twitch.PrivateMessage) *Message {
	sent := msg.Time
	if sent.IsZero() {
		sent = time.Now()
	}
	return &Message{
		ID:          msg.ID,
		Channel:     strings.TrimPrefix(msg.Channel, "#"),
		UserID:      msg.User.ID,
		Login:       msg.User.Name,
		DisplayName: msg.User.DisplayName,
		Text:        msg.Message,
		Time:        sent,
	}
}

// disconnectTimeout bounds the wait for Connect to return after Disconnect
const disconnectTimeout = 5 * time.Second

// Start joins the channels and blocks until ctx is cancelled. A connector is
// started at most once.
func (c *Connector) Start(ctx context.Context) error {
	c.client.Join(c.channels...)

	errCh := make(chan error, 1)
	go func() {
		err := c.client.Connect()
		c.connected.Store(false)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, twitch.ErrClientDisconnected) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.log.Info().Msg("disconnecting from Twitch IRC")
		c.stopping.Store(true)
		if err := c.client.Disconnect(); err != nil {
			// Not welcomed yet. OnConnect disconnects if the welcome still comes.
			c.log.Debug().Err(err).Msg("connection not open")
			return nil
		}
		select {
		case <-errCh:
		case <-time.After(disconnectTimeout):
			c.log.Warn().Msg("timed out waiting for Twitch IRC to close")
		}
		return nil
	}
}

// Say sends a message to a channel
func (c *Connector) Say(channel, text string) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	if c.username == "" {
		return errors.New("twitch: anonymous connection cannot send messages")
	}
	c.client.Say(channel, text)
	return nil
}

// Connected reports whether the connection is up
func (c *Connector) Connected() bool {
	return c.connected.Load()
}

// ChannelLink returns the channel page URL
func ChannelLink(channel string) string {
	if channel == "" {
		return ""
	}
	return "https://www.twitch.tv/" + strings.TrimPrefix(channel, "#")
}
