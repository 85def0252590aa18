package domain

import "time"

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup   ChatType = "group"
	ChatTypeP2P     ChatType = "p2p"
	ChatTypeChannel ChatType = "channel"
)

// Fallback display values used in alerts and reports
const (
	UnknownSender = "Unknown"
	PrivateChat   = "Private Chat"
	NoLink        = "N/A"
)

// Media is an attachment carried by a message.
// Key identifies the payload on the platform; Data is filled once downloaded.
type Media struct {
	Key      string
	MimeType string
	Data     []byte
}

// ChatMessage represents one inbound arrival from a chat transport
type ChatMessage struct {
	Source          string // platform the message arrived from (feishu, twitch)
	ID              string // unique per platform, may repeat on redelivery
	ChatID          string
	ChatTitle       string
	ChatType        ChatType
	SenderID        string
	SenderUsername  string
	SenderFirstName string
	FromBot         bool
	Text            string
	Media           *Media
	SentAt          time.Time // platform clock
	Link            string
}

// Key returns the identifier used for duplicate detection.
// IDs are only unique per platform, so the source is part of the key.
func (m *ChatMessage) Key() string {
	if m.Source == "" {
		return m.ID
	}
	return m.Source + ":" + m.ID
}

// HasText reports whether the message carries text
func (m *ChatMessage) HasText() bool {
	return m.Text != ""
}

// HasMedia reports whether the message carries an attachment
func (m *ChatMessage) HasMedia() bool {
	return m.Media != nil && (m.Media.Key != "" || len(m.Media.Data) > 0)
}

// SenderDisplay returns the username, then the first name, then "Unknown"
func (m *ChatMessage) SenderDisplay() string {
	if m.SenderUsername != "" {
		return m.SenderUsername
	}
	if m.SenderFirstName != "" {
		return m.SenderFirstName
	}
	return UnknownSender
}

// ChatDisplay returns the chat title or "Private Chat"
func (m *ChatMessage) ChatDisplay() string {
	if m.ChatTitle != "" {
		return m.ChatTitle
	}
	return PrivateChat
}

// LinkOrNA returns the permanent link or "N/A"
func (m *ChatMessage) LinkOrNA() string {
	if m.Link != "" {
		return m.Link
	}
	return NoLink
}

// ChatInfo represents chat metadata fetched from a transport
type ChatInfo struct {
	ChatID   string
	Name     string
	ChatType ChatType
}
