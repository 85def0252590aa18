package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies how a keyword was detected
type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceImage SourceKind = "image"
)

// DateLayout is the timestamp format used in alerts and the detailed log
const DateLayout = "2006-01-02 15:04:05"

// ImageMatchedBody replaces the message body of image matches in the detailed log
const ImageMatchedBody = "Image matched"

var (
	tableDecoration = regexp.MustCompile(`\|.*?\|`)
	whitespaceRun   = regexp.MustCompile(`[\s\p{Z}]+`)
)

// Normalize lowercases raw message text, strips |table| decoration and
// collapses whitespace runs into single spaces.
func Normalize(raw string) string {
	text := tableDecoration.ReplaceAllString(strings.ToLower(raw), "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Match returns the first keyword that occurs as a substring of text.
// Matching is substring based, so short keywords also hit inside longer words.
func Match(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// MatchRecord is created once per successful match and never mutated
type MatchRecord struct {
	ID         string
	Keyword    string
	Source     SourceKind
	Text       string // normalized text that matched
	SenderName string
	ChatID     string
	ChatName   string
	Timestamp  time.Time // in the reporting timezone
	Link       string
	Channel    string // transport the message arrived on
}

// NewMatchRecord builds a match record for a message, converting its
// timestamp into the reporting location.
func NewMatchRecord(keyword string, source SourceKind, text string, msg *ChatMessage, loc *time.Location) *MatchRecord {
	at := msg.SentAt
	if at.IsZero() {
		at = time.Now()
	}
	if loc != nil {
		at = at.In(loc)
	}
	return &MatchRecord{
		ID:         uuid.NewString(),
		Keyword:    keyword,
		Source:     source,
		Text:       text,
		SenderName: msg.SenderDisplay(),
		ChatID:     msg.ChatID,
		ChatName:   msg.ChatDisplay(),
		Timestamp:  at,
		Link:       msg.LinkOrNA(),
		Channel:    msg.Source,
	}
}

// Date returns the formatted reporting timestamp
func (r *MatchRecord) Date() string {
	return r.Timestamp.Format(DateLayout)
}

// RenderAlert renders the Markdown alert text. Identical records render identically,
// which is what the alert ledger relies on for suppression.
func (r *MatchRecord) RenderAlert() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 *Keyword Matched:* `%s` (from %s)\n", r.Keyword, r.Source))
	sb.WriteString(fmt.Sprintf("👤 *Sender:* `%s`\n", r.SenderName))
	sb.WriteString(fmt.Sprintf("🏷️ *Chat Title:* `%s`\n", r.ChatName))
	if r.Channel != "" {
		sb.WriteString(fmt.Sprintf("📡 *Channel:* `%s`\n", r.Channel))
	}
	sb.WriteString(fmt.Sprintf("📅 *Date:* `%s`\n", r.Date()))
	sb.WriteString(fmt.Sprintf("🔗 *Message Link:* [link](%s)", r.Link))
	if r.Source == SourceText {
		sb.WriteString(fmt.Sprintf("\n✉️ *Message:* `%s`", r.Text))
	}
	return sb.String()
}

// LogEntry is one row of the detailed-message log
type LogEntry struct {
	Keyword     string `json:"keyword"`
	Message     string `json:"message"`
	SenderName  string `json:"sender_name"`
	ChatName    string `json:"chat_name"`
	Date        string `json:"date"`
	MessageLink string `json:"message_link"`
}

// LogEntry converts the record into its detailed-log form
func (r *MatchRecord) LogEntry() LogEntry {
	body := r.Text
	if r.Source == SourceImage {
		body = ImageMatchedBody
	}
	return LogEntry{
		Keyword:     r.Keyword,
		Message:     body,
		SenderName:  r.SenderName,
		ChatName:    r.ChatName,
		Date:        r.Date(),
		MessageLink: r.Link,
	}
}
