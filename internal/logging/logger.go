// Package logging sets up the process-wide zerolog logger.
//
// Every event goes to the console and, when a log file is configured, to an
// append-only JSON log file that survives restarts of the process.
//
//	closer, err := logging.Init(logging.Config{Level: "info", Format: "console", File: "tele_monitor.log"})
//	defer closer.Close()
//
//	log := logging.Component("Worker")
//	log.Info().Str("msg_id", id).Msg("processing message")
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFile is the diagnostic log file name
const DefaultFile = "tele_monitor.log"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string

	// Format is the console format: json or console.
	Format string

	// Caller includes caller file and line number.
	Caller bool

	// Timestamp enables timestamps in log output.
	Timestamp bool

	// Output is the console writer. Default: os.Stderr
	Output io.Writer

	// File is the append-only log file path. Empty disables file logging.
	File string
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "console",
		Timestamp: true,
		Output:    os.Stderr,
		File:      DefaultFile,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	cfg := DefaultConfig()
	cfg.File = ""
	log = build(cfg, nil)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init configures the global logger. The returned closer releases the log file.
// Calling Init again reconfigures the logger.
func Init(cfg Config) (io.Closer, error) {
	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		file = f
	}

	mu.Lock()
	if file != nil {
		log = build(cfg, file)
	} else {
		log = build(cfg, nil)
	}
	mu.Unlock()

	if file == nil {
		return nopCloser{}, nil
	}
	return file, nil
}

// build creates a logger writing to the console and, when non-nil, the file.
func build(cfg Config, file io.Writer) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = cfg.Output
	if strings.ToLower(cfg.Format) != "json" {
		console = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	out := console
	if file != nil {
		out = zerolog.MultiLevelWriter(console, file)
	}

	zctx := zerolog.New(out).With()
	if cfg.Timestamp {
		zctx = zctx.Timestamp()
	}
	if cfg.Caller {
		zctx = zctx.Caller()
	}
	return zctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger. Used by tests.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Info starts an info event on the global logger
func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

// Error starts an error event on the global logger
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// Fatal logs and exits the process
func Fatal() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Fatal()
}
