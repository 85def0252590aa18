package conf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // reporting timezone must load on hosts without zoneinfo

	"github.com/go-playground/validator/v10"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// Source names
const (
	SourceFeishu = "feishu"
	SourceTwitch = "twitch"
)

// Notifier backends
const (
	BackendTelegram = "telegram"
	BackendFeishu   = "feishu"
)

// Config represents application configuration
type Config struct {
	// Chat transports to ingest from
	Sources []string `yaml:"sources" validate:"min=1,dive,oneof=feishu twitch"`

	Feishu    FeishuConfig    `yaml:"feishu"`
	Twitch    TwitchConfig    `yaml:"twitch"`
	Notify    NotifyConfig    `yaml:"notify"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Report    ReportConfig    `yaml:"report"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	OCR       OCRConfig       `yaml:"ocr"`
	Store     StoreConfig     `yaml:"store"`
	API       APIConfig       `yaml:"api"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`

	// Admins are the chat ids allowed to run commands. Empty allows the notification chat only.
	Admins []string `yaml:"admins"`
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
}

// TwitchConfig contains Twitch IRC configuration
type TwitchConfig struct {
	Username string   `yaml:"username"`
	OAuth    string   `yaml:"oauth"`
	Channels []string `yaml:"channels"`
}

// NotifyConfig contains notification delivery configuration
type NotifyConfig struct {
	Backend    string  `yaml:"backend" validate:"oneof=telegram feishu"`
	ChatID     string  `yaml:"chat_id" validate:"required"`
	BotToken   string  `yaml:"bot_token"`
	APIBase    string  `yaml:"api_base" validate:"omitempty,url"`
	RatePerSec float64 `yaml:"rate_per_sec" validate:"gt=0"`
	Burst      int     `yaml:"burst" validate:"min=1"`
}

// MonitorConfig contains pipeline configuration
type MonitorConfig struct {
	Keywords            []string `yaml:"keywords"`
	Workers             int      `yaml:"workers" validate:"min=1,max=64"`
	QueueCapacity       int      `yaml:"queue_capacity" validate:"min=1"`
	AlertLedgerCapacity int      `yaml:"alert_ledger_capacity" validate:"min=1"`
}

// ReportConfig contains report configuration
type ReportConfig struct {
	Timezone        string `yaml:"timezone" validate:"required"`
	DailyCutoff     string `yaml:"daily_cutoff" validate:"required"`
	TrendWindowDays int    `yaml:"trend_window_days" validate:"min=1"`
}

// KeepAliveConfig contains keep-alive configuration
type KeepAliveConfig struct {
	Interval time.Duration `yaml:"interval"`
	ChatID   string        `yaml:"chat_id"`
}

// OCRConfig contains the vision model used to read text from images.
// An empty APIKey disables image matching.
type OCRConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model"`
}

// StoreConfig contains match log configuration
type StoreConfig struct {
	MatchLogDBPath string `yaml:"match_log_db_path"`
}

// APIConfig contains HTTP API configuration. An empty Addr disables the API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig contains optional S3 archival. An empty Bucket disables it.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

// EventsConfig contains optional NATS publication. An empty URL disables it.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"oneof=json console"`
	File   string `yaml:"file"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Sources: []string{SourceFeishu},
		Notify: NotifyConfig{
			Backend:    BackendTelegram,
			APIBase:    "https://api.telegram.org",
			RatePerSec: 1,
			Burst:      5,
		},
		Monitor: MonitorConfig{
			Keywords:            []string{"keyword1", "keyword2"},
			Workers:             3,
			QueueCapacity:       24,
			AlertLedgerCapacity: domain.DefaultAlertLedgerCapacity,
		},
		Report: ReportConfig{
			Timezone:        "Asia/Dubai",
			DailyCutoff:     "23:59",
			TrendWindowDays: 30,
		},
		KeepAlive: KeepAliveConfig{
			Interval: time.Hour,
		},
		OCR: OCRConfig{
			Model: "gpt-4o-mini",
		},
		Store: StoreConfig{
			MatchLogDBPath: ":memory:",
		},
		API: APIConfig{
			Addr: "127.0.0.1:8090",
		},
		Events: EventsConfig{
			Subject: "monitor.matches",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			File:   "tele_monitor.log",
		},
	}
}

// LoadFromEnv loads configuration: defaults, then the optional YAML file, then
// environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if err := LoadFile(os.Getenv("MONITOR_CONFIG_PATH"), cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envList("MONITOR_SOURCES", &cfg.Sources)

	envString("FEISHU_APP_ID", &cfg.Feishu.AppID)
	envString("FEISHU_APP_SECRET", &cfg.Feishu.AppSecret)

	envString("TWITCH_USERNAME", &cfg.Twitch.Username)
	envString("TWITCH_OAUTH", &cfg.Twitch.OAuth)
	envList("TWITCH_CHANNELS", &cfg.Twitch.Channels)

	envString("NOTIFY_BACKEND", &cfg.Notify.Backend)
	envString("NOTIFICATION_CHAT_ID", &cfg.Notify.ChatID)
	envString("TELEGRAM_BOT_TOKEN", &cfg.Notify.BotToken)
	envString("TELEGRAM_API_BASE", &cfg.Notify.APIBase)
	envFloat("NOTIFY_RATE_PER_SEC", &cfg.Notify.RatePerSec)
	envInt("NOTIFY_BURST", &cfg.Notify.Burst)

	envList("KEYWORDS", &cfg.Monitor.Keywords)
	envInt("WORKER_COUNT", &cfg.Monitor.Workers)
	envInt("QUEUE_CAPACITY", &cfg.Monitor.QueueCapacity)
	envInt("ALERT_LEDGER_CAPACITY", &cfg.Monitor.AlertLedgerCapacity)

	envString("REPORT_TIMEZONE", &cfg.Report.Timezone)
	envString("DAILY_CUTOFF", &cfg.Report.DailyCutoff)
	envInt("TREND_WINDOW_DAYS", &cfg.Report.TrendWindowDays)

	envDuration("KEEPALIVE_INTERVAL", &cfg.KeepAlive.Interval)
	envString("KEEPALIVE_CHAT_ID", &cfg.KeepAlive.ChatID)

	envList("ADMIN_CHAT_IDS", &cfg.Admins)

	envString("OCR_API_KEY", &cfg.OCR.APIKey)
	envString("OCR_BASE_URL", &cfg.OCR.BaseURL)
	envString("OCR_MODEL", &cfg.OCR.Model)

	envString("MATCH_LOG_DB_PATH", &cfg.Store.MatchLogDBPath)
	envString("API_ADDR", &cfg.API.Addr)

	envString("S3_BUCKET", &cfg.Archive.Bucket)
	envString("S3_REGION", &cfg.Archive.Region)
	envString("S3_ACCESS_KEY_ID", &cfg.Archive.AccessKeyID)
	envString("S3_SECRET_ACCESS_KEY", &cfg.Archive.SecretAccessKey)
	envString("S3_PREFIX", &cfg.Archive.Prefix)

	envString("NATS_URL", &cfg.Events.NATSURL)
	envString("NATS_SUBJECT", &cfg.Events.Subject)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)
	envString("LOG_FILE", &cfg.Log.File)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(val)
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			*dst = parsed
		}
	}
}

// envList reads a comma separated list; an explicitly empty variable clears the list
func envList(key string, dst *[]string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// HasSource reports whether the named transport is enabled
func (c *Config) HasSource(name string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Location loads the reporting timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Report.Timezone)
}

// Cutoff returns the daily summary cutoff in the reporting timezone
func (c *Config) Cutoff() (domain.DailyCutoff, error) {
	loc, err := c.Location()
	if err != nil {
		return domain.DailyCutoff{}, err
	}
	return domain.ParseCutoff(c.Report.DailyCutoff, loc)
}

// TrendWindow returns the trend report window
func (c *Config) TrendWindow() time.Duration {
	return time.Duration(c.Report.TrendWindowDays) * 24 * time.Hour
}

// IsAdmin reports whether commands from chatID are accepted
func (c *Config) IsAdmin(chatID string) bool {
	if len(c.Admins) == 0 {
		return chatID == c.Notify.ChatID
	}
	for _, id := range c.Admins {
		if id == chatID {
			return true
		}
	}
	return false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			return &ConfigError{Field: fe.Namespace(), Message: msg}
		}
		return &ConfigError{Field: "config", Message: err.Error()}
	}

	if c.HasSource(SourceFeishu) || c.Notify.Backend == BackendFeishu {
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
	}
	if c.HasSource(SourceTwitch) {
		// without a username the connector joins anonymously and cannot reply
		if c.Twitch.Username != "" && c.Twitch.OAuth == "" {
			return &ConfigError{Field: "TWITCH_OAUTH", Message: "required with TWITCH_USERNAME"}
		}
		if len(c.Twitch.Channels) == 0 {
			return &ConfigError{Field: "TWITCH_CHANNELS", Message: "at least one channel required"}
		}
	}
	if c.Notify.Backend == BackendTelegram && c.Notify.BotToken == "" {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required for the telegram backend"}
	}
	if _, err := c.Location(); err != nil {
		return &ConfigError{Field: "REPORT_TIMEZONE", Message: err.Error()}
	}
	if _, err := c.Cutoff(); err != nil {
		return &ConfigError{Field: "DAILY_CUTOFF", Message: err.Error()}
	}
	if c.Monitor.QueueCapacity < c.Monitor.Workers {
		return &ConfigError{
			Field:   "QUEUE_CAPACITY",
			Message: fmt.Sprintf("must be at least WORKER_COUNT (%d)", c.Monitor.Workers),
		}
	}
	if c.Archive.Bucket != "" && c.Archive.Region == "" {
		return &ConfigError{Field: "S3_REGION", Message: "required when S3_BUCKET is set"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
