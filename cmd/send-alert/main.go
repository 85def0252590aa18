package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/conf"
	"github.com/rehanumarkhan/tele-monitor/internal/data"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
)

// send-alert renders a sample match alert and delivers it through the
// configured notifier, to check credentials and formatting end to end.
func main() {
	keyword := flag.String("keyword", "incident", "matched keyword")
	text := flag.String("text", "test alert: an incident occurred", "message text")
	chatTitle := flag.String("chat", "Alert Test", "chat title shown in the alert")
	chatID := flag.String("to", "", "destination chat (default NOTIFICATION_CHAT_ID)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *chatID == "" {
		*chatID = cfg.Notify.ChatID
	}
	if *chatID == "" {
		fmt.Println("Error: NOTIFICATION_CHAT_ID or -to must be set")
		os.Exit(1)
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}
	msg := &domain.ChatMessage{
		Source:         "send-alert",
		ID:             uuid.NewString(),
		ChatTitle:      *chatTitle,
		SenderUsername: "send-alert",
		Text:           *text,
		SentAt:         time.Now(),
	}
	rec := domain.NewMatchRecord(domain.NormalizeKeyword(*keyword), domain.SourceText, *text, msg, loc)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifier.SendText(ctx, *chatID, rec.RenderAlert()); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Alert sent successfully!")
}

func newNotifier(cfg *conf.Config) (repo.NotifierRepo, error) {
	switch cfg.Notify.Backend {
	case conf.BackendFeishu:
		if cfg.Feishu.AppID == "" || cfg.Feishu.AppSecret == "" {
			return nil, fmt.Errorf("FEISHU_APP_ID and FEISHU_APP_SECRET must be set")
		}
		return data.NewLarkNotifier(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)), nil
	default:
		if cfg.Notify.BotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN must be set")
		}
		return data.NewTelegramNotifier(data.TelegramConfig{
			Token:      cfg.Notify.BotToken,
			APIBase:    cfg.Notify.APIBase,
			RatePerSec: cfg.Notify.RatePerSec,
			Burst:      cfg.Notify.Burst,
		}), nil
	}
}
