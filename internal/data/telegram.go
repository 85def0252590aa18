package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

const (
	// DefaultTelegramAPIBase is the public Bot API endpoint
	DefaultTelegramAPIBase = "https://api.telegram.org"

	// TelegramMessageLimit is the longest text sendMessage accepts
	TelegramMessageLimit = 4096
)

// TelegramConfig configures the Telegram notifier
type TelegramConfig struct {
	Token      string
	APIBase    string
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// telegramNotifier delivers notifications through the Telegram Bot API
type telegramNotifier struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*telegramResponse]
	log     zerolog.Logger
}

// NewTelegramNotifier creates a Telegram notifier
func NewTelegramNotifier(cfg TelegramConfig) repo.NotifierRepo {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPIBase
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	n := &telegramNotifier{
		base:    strings.TrimRight(cfg.APIBase, "/") + "/bot" + cfg.Token,
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		log:     logging.Component("Telegram"),
	}
	n.breaker = gobreaker.NewCircuitBreaker[*telegramResponse](gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return n
}

// SendText sends a Markdown message, split at alert boundaries when too long
func (n *telegramNotifier) SendText(ctx context.Context, chatID, text string) error {
	for _, chunk := range SplitMessage(text, TelegramMessageLimit) {
		payload, err := json.Marshal(map[string]string{
			"chat_id":    chatID,
			"text":       chunk,
			"parse_mode": "Markdown",
		})
		if err != nil {
			return fmt.Errorf("marshal sendMessage: %w", err)
		}
		if err := n.call(ctx, "sendMessage", "application/json", func() io.Reader {
			return bytes.NewReader(payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

// SendImage sends a photo with a caption
func (n *telegramNotifier) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("chat_id", chatID)
	if caption != "" {
		_ = w.WriteField("caption", caption)
	}
	part, err := w.CreateFormFile("photo", "image.png")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write photo part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	payload := body.Bytes()
	return n.call(ctx, "sendPhoto", w.FormDataContentType(), func() io.Reader {
		return bytes.NewReader(payload)
	})
}

func (n *telegramNotifier) call(ctx context.Context, method, contentType string, body func() io.Reader) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", method, err)
	}

	_, err := n.breaker.Execute(func() (*telegramResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/"+method, body())
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := n.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var result telegramResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		}
		if !result.OK {
			return &result, fmt.Errorf("telegram error %d: %s", result.ErrorCode, result.Description)
		}
		return &result, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// SplitMessage splits text into chunks of at most limit runes. Splits fall on
// alert boundaries; a single oversized alert is cut on rune boundaries.
func SplitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	sepLen := len([]rune(domain.AlertSeparator))

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, block := range strings.Split(text, domain.AlertSeparator) {
		blockLen := len([]rune(block))

		if blockLen > limit {
			flush()
			runes := []rune(block)
			for len(runes) > limit {
				chunks = append(chunks, string(runes[:limit]))
				runes = runes[limit:]
			}
			current.WriteString(string(runes))
			currentLen = len(runes)
			continue
		}

		if currentLen > 0 && currentLen+sepLen+blockLen > limit {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(domain.AlertSeparator)
			currentLen += sepLen
		}
		current.WriteString(block)
		currentLen += blockLen
	}
	flush()
	return chunks
}
