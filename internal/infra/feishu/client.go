package feishu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, image, post
	ChatType   string // p2p (private), group
	Content    string // Text content (extracted from all message types)
	ImageKeys  []string
	Sender     *Sender
	CreateTime int64 // Message creation time (milliseconds Unix timestamp from Feishu)
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
	TenantKey  string
}

// IsApp reports whether the message was sent by an app (bot)
func (s *Sender) IsApp() bool {
	return s != nil && s.SenderType == "app"
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	ChatType    string `json:"chat_type"` // p2p, group
	MemberCount int    `json:"user_count"`
}

// BotInfo is the identity of the app bot
type BotInfo struct {
	OpenID  string `json:"open_id"`
	AppName string `json:"app_name"`
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	log       zerolog.Logger

	mu        sync.RWMutex
	onMessage MessageHandler
	started   bool
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       logging.Component("Feishu"),
	}
}

// OnMessage sets the message handler. It may be replaced while connected;
// events arriving with no handler are dropped.
func (c *Client) OnMessage(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

func (c *Client) handler() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onMessage
}

// Start connects to Feishu via WebSocket. The connection is opened once per
// client and survives handler swaps; Start blocks while it is running.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		<-ctx.Done()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if bot, err := c.GetBotInfo(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to fetch bot info")
	} else {
		c.log.Info().Str("open_id", bot.OpenID).Str("name", bot.AppName).Msg("bot identity")
	}

	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.log.Info().Msg("starting WebSocket connection")

	select {
	case err := <-c.serveWS(c.wsCli.Start):
		return err
	case <-ctx.Done():
		// The SDK offers no way to close the socket; it stays up for the next run.
		return nil
	}
}

// serveWS runs start in the background. When it returns the client is marked
// stopped, even if no run is waiting on the result, so the next Start reconnects.
func (c *Client) serveWS(start func(context.Context) error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		err := start(context.Background())
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		if err != nil {
			c.log.Warn().Err(err).Msg("WebSocket connection ended")
		}
		errCh <- err
	}()
	return errCh
}

// GetBotInfo fetches the bot's own identity
func (c *Client) GetBotInfo(ctx context.Context) (*BotInfo, error) {
	resp, err := c.larkCli.Get(ctx, "/open-apis/bot/v3/info", nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return nil, fmt.Errorf("get bot info: %w", err)
	}

	var result struct {
		Code int     `json:"code"`
		Msg  string  `json:"msg"`
		Bot  BotInfo `json:"bot"`
	}
	if err := json.Unmarshal(resp.RawBody, &result); err != nil {
		return nil, fmt.Errorf("decode bot info: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("API error: %s", result.Msg)
	}
	return &result.Bot, nil
}

// handleMessage converts an event into a Message and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	onMessage := c.handler()
	if onMessage == nil || event.Event == nil {
		return
	}
	msg := ParseEvent(event)
	if msg == nil {
		return
	}
	c.log.Debug().
		Str("type", msg.MsgType).
		Str("chat_id", msg.ChatID).
		Str("content", truncate(msg.Content, 50)).
		Msg("received message")
	onMessage(msg)
}

// ParseEvent converts a receive event into a Message. Unsupported message
// types yield nil.
func ParseEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	rawMsg := event.Event.Message
	if rawMsg.MessageId == nil || rawMsg.ChatId == nil || rawMsg.MessageType == nil {
		return nil
	}

	msg := &Message{
		ChatID:  *rawMsg.ChatId,
		MsgID:   *rawMsg.MessageId,
		MsgType: *rawMsg.MessageType,
	}

	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}

	if sender := event.Event.Sender; sender != nil {
		msg.Sender = &Sender{}
		if sender.SenderId != nil && sender.SenderId.OpenId != nil {
			msg.Sender.SenderID = *sender.SenderId.OpenId
		}
		if sender.SenderType != nil {
			msg.Sender.SenderType = *sender.SenderType
		}
		if sender.TenantKey != nil {
			msg.Sender.TenantKey = *sender.TenantKey
		}
	}

	// Mention placeholders (@_user_1) are replaced by real names
	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content := ""
	if rawMsg.Content != nil {
		content = *rawMsg.Content
	}

	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content, mentionMap)
	case "image":
		msg.ImageKeys = parseImageContent(content)
	case "post":
		msg.Content, msg.ImageKeys = parsePostContent(content, mentionMap)
	default:
		return nil
	}
	return msg
}

// parseTextContent extracts text from a text message
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parseImageContent extracts the image key from an image message
func parseImageContent(content string) []string {
	var parsed struct {
		ImageKey string `json:"image_key"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.ImageKey == "" {
		return nil
	}
	return []string{parsed.ImageKey}
}

// parsePostContent extracts text and images from a rich text message
func parsePostContent(content string, mentionMap map[string]string) (string, []string) {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag      string `json:"tag"`
			Text     string `json:"text,omitempty"`
			ImageKey string `json:"image_key,omitempty"`
			UserID   string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", nil
	}

	var textParts []string
	var imageKeys []string

	if parsed.Title != "" {
		textParts = append(textParts, parsed.Title)
	}

	for _, line := range parsed.Content {
		var lineParts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text", "md":
				if elem.Text != "" {
					lineParts = append(lineParts, elem.Text)
				}
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					lineParts = append(lineParts, "@"+name)
				} else if elem.UserID != "" {
					lineParts = append(lineParts, "@"+elem.UserID)
				}
			case "img":
				if elem.ImageKey != "" {
					imageKeys = append(imageKeys, elem.ImageKey)
				}
			}
		}
		if len(lineParts) > 0 {
			textParts = append(textParts, strings.Join(lineParts, ""))
		}
	}

	return replaceMentions(strings.Join(textParts, "\n"), mentionMap), imageKeys
}

// replaceMentions replaces mention placeholders with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// DownloadImage downloads an image attached to a message
func (c *Client) DownloadImage(ctx context.Context, messageID, imageKey string) ([]byte, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(imageKey).
		Type("image").
		Build()

	resp, err := c.larkCli.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get image error: %s", resp.Msg)
	}

	data, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	c.log.Debug().Str("msg_id", messageID).Int("bytes", len(data)).Msg("downloaded image")
	return data, nil
}

// SendText sends a plain text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})
	return c.send(ctx, chatID, larkim.MsgTypeText, string(content))
}

// SendMarkdown sends Markdown as a post message with a single md element
func (c *Client) SendMarkdown(ctx context.Context, chatID, markdown string) error {
	post := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"content": [][]map[string]string{{{"tag": "md", "text": markdown}}},
		},
	}
	content, _ := json.Marshal(post)
	return c.send(ctx, chatID, larkim.MsgTypePost, string(content))
}

// SendImage uploads an image and sends it to a chat
func (c *Client) SendImage(ctx context.Context, chatID string, image []byte) error {
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType("message").
			Image(bytes.NewReader(image)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("upload image error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return fmt.Errorf("upload image error: no image key returned")
	}

	content, _ := json.Marshal(map[string]string{"image_key": *resp.Data.ImageKey})
	return c.send(ctx, chatID, larkim.MsgTypeImage, string(content))
}

func (c *Client) send(ctx context.Context, chatID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}

	c.log.Debug().Str("chat_id", chatID).Str("type", msgType).Msg("message sent")
	return nil
}

// GetChatMembers retrieves members of a chat (group), following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			member := &ChatMember{}
			if item.MemberId != nil {
				member.MemberID = *item.MemberId
			}
			if item.Name != nil {
				member.Name = *item.Name
			}
			members = append(members, member)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	c.log.Debug().Str("chat_id", chatID).Int("members", len(members)).Msg("retrieved chat members")
	return members, nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	info := &ChatInfo{ChatID: chatID}
	if resp.Data.Name != nil {
		info.Name = *resp.Data.Name
	}
	if resp.Data.ChatMode != nil {
		info.ChatType = *resp.Data.ChatMode
	}
	if resp.Data.UserCount != nil {
		info.MemberCount, _ = strconv.Atoi(*resp.Data.UserCount)
	}
	return info, nil
}

// ChatLink returns the app link that opens a chat
func ChatLink(chatID string) string {
	if chatID == "" {
		return ""
	}
	return "https://applink.feishu.cn/client/chat/open?openChatId=" + chatID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
