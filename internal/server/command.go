package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// Command replies
const (
	ReplyAlreadyRunning    = "🟢 *Bot is already running.*"
	ReplyStopping          = "🛑 *Stopping bot...*"
	ReplyRestarting        = "🔄 *Restarting bot...*"
	ReplyUnsupportedReport = "⚠️ *Unsupported report type. Available options: /report daily*"
)

// Lifecycle ends the current run
type Lifecycle interface {
	Stop()
	Restart()
}

// AdminFunc reports whether an id (chat or sender) may run commands
type AdminFunc func(id string) bool

type commandFunc func(ctx context.Context, msg *domain.ChatMessage, arg string) string

type command struct {
	usage  string // non-empty when an argument is required
	handle commandFunc
}

// CommandHandler runs administrative commands sent in chat
type CommandHandler struct {
	keywords  *usecase.KeywordUsecase
	reports   *usecase.ReportUsecase
	chats     repo.ChatRepo
	lifecycle Lifecycle
	isAdmin   AdminFunc
	commands  map[string]command
	log       zerolog.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	keywords *usecase.KeywordUsecase,
	reports *usecase.ReportUsecase,
	chats repo.ChatRepo,
	lifecycle Lifecycle,
	isAdmin AdminFunc,
) *CommandHandler {
	h := &CommandHandler{
		keywords:  keywords,
		reports:   reports,
		chats:     chats,
		lifecycle: lifecycle,
		isAdmin:   isAdmin,
		log:       logging.Component("Command"),
	}
	h.commands = map[string]command{
		"/addkeyword":      {usage: "/addkeyword <keyword>", handle: h.addKeyword},
		"/removekeyword":   {usage: "/removekeyword <keyword>", handle: h.removeKeyword},
		"/listkeywords":    {handle: h.listKeywords},
		"/startbot":        {handle: h.startBot},
		"/stopbot":         {handle: h.stopBot},
		"/restartbot":      {handle: h.restartBot},
		"/report":          {handle: h.report},
		"/reportbykeyword": {usage: "/reportbykeyword <keyword>", handle: h.reportByKeyword},
		"/reportbydate":    {usage: "/reportbydate <YYYY-MM-DD>", handle: h.reportByDate},
		"/reportbychat":    {usage: "/reportbychat <chat name>", handle: h.reportByChat},
		"/trendreport":     {handle: h.trendReport},
	}
	return h
}

// ParseCommand splits "/name@bot arg" into a lowercased name and the trimmed argument.
// ok is false when text is not a slash command.
func ParseCommand(text string) (name, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(text, " ")
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

// Accepts reports whether msg is a known command from an admin
func (h *CommandHandler) Accepts(msg *domain.ChatMessage) bool {
	name, _, ok := ParseCommand(msg.Text)
	if !ok {
		return false
	}
	if _, known := h.commands[name]; !known {
		return false
	}
	return h.isAdmin != nil && (h.isAdmin(msg.ChatID) || (msg.SenderID != "" && h.isAdmin(msg.SenderID)))
}

// Handle runs the command in msg and replies in its chat. It returns the reply
// text, empty when the command replies through the notifier instead.
func (h *CommandHandler) Handle(ctx context.Context, msg *domain.ChatMessage) (reply string) {
	name, arg, _ := ParseCommand(msg.Text)
	cmd, ok := h.commands[name]
	if !ok {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("command", name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("command panicked")
			reply = ""
		}
	}()

	metrics.CommandsHandled.WithLabelValues(strings.TrimPrefix(name, "/")).Inc()
	h.log.Info().Str("command", name).Str("arg", arg).Str("chat_id", msg.ChatID).Msg("command received")

	if cmd.usage != "" && arg == "" {
		reply = fmt.Sprintf("⚠️ *Usage:* `%s`", cmd.usage)
	} else {
		reply = cmd.handle(ctx, msg, arg)
	}

	if reply != "" {
		if err := h.chats.Reply(ctx, msg, reply); err != nil {
			h.log.Error().Err(err).Str("command", name).Msg("failed to send command reply")
		}
	}

	// Stop and restart take effect after the reply went out
	switch name {
	case "/stopbot":
		h.lifecycle.Stop()
	case "/restartbot":
		h.lifecycle.Restart()
	}
	return reply
}

func (h *CommandHandler) addKeyword(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	if kw, ok := h.keywords.Add(arg); ok {
		return fmt.Sprintf("➕ *Keyword* `%s` *added.*", kw)
	}
	return fmt.Sprintf("⚠️ *Keyword* `%s` *already exists or is invalid.*", strings.TrimSpace(arg))
}

func (h *CommandHandler) removeKeyword(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	kw, ok := h.keywords.Remove(arg)
	if ok {
		return fmt.Sprintf("❌ *Keyword* `%s` *removed.*", kw)
	}
	return fmt.Sprintf("⚠️ *Keyword* `%s` *not found.*", kw)
}

func (h *CommandHandler) listKeywords(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return RenderKeywordList(h.keywords.List())
}

// RenderKeywordList renders the keyword list reply
func RenderKeywordList(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = "`" + kw + "`"
	}
	return "🔍 *Current Keywords:*\n" + strings.Join(quoted, ", ")
}

func (h *CommandHandler) startBot(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return ReplyAlreadyRunning
}

func (h *CommandHandler) stopBot(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return ReplyStopping
}

func (h *CommandHandler) restartBot(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return ReplyRestarting
}

func (h *CommandHandler) report(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	kind := strings.ToLower(arg)
	if kind != "" && kind != "daily" {
		return ReplyUnsupportedReport
	}
	result, err := h.reports.SendDailySummary(ctx, true)
	if err != nil {
		h.log.Error().Err(err).Msg("error generating report")
		return ""
	}
	if !result.Sent {
		h.log.Info().Msg("daily report requested with no pending alerts")
	}
	return ""
}

func (h *CommandHandler) reportByKeyword(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return h.detail(h.reports.ByKeyword(ctx, arg))
}

func (h *CommandHandler) reportByDate(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return h.detail(h.reports.ByDate(ctx, arg))
}

func (h *CommandHandler) reportByChat(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	return h.detail(h.reports.ByChat(ctx, arg))
}

func (h *CommandHandler) detail(report *usecase.DetailReport, err error) string {
	if err != nil && !errors.Is(err, usecase.ErrInvalidDate) {
		h.log.Error().Err(err).Msg("error in report command")
	}
	if report == nil {
		return ""
	}
	return report.Reply
}

func (h *CommandHandler) trendReport(ctx context.Context, msg *domain.ChatMessage, arg string) string {
	if _, err := h.reports.SendTrendReport(ctx); err != nil {
		h.log.Error().Err(err).Msg("error generating trend report")
	}
	return ""
}
