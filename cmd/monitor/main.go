package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/thejerf/suture/v4"

	"github.com/rehanumarkhan/tele-monitor/internal/api"
	"github.com/rehanumarkhan/tele-monitor/internal/biz"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/conf"
	"github.com/rehanumarkhan/tele-monitor/internal/data"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/twitch"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/server"
	"github.com/rehanumarkhan/tele-monitor/internal/service"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.File = cfg.Log.File
	closer, err := logging.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	log := logging.Component("Main")
	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The Feishu websocket cannot be closed, so the client outlives restarts.
	var feishuClient *feishu.Client
	if cfg.HasSource(conf.SourceFeishu) || cfg.Notify.Backend == conf.BackendFeishu {
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	}

	for {
		log.Info().Strs("sources", cfg.Sources).Str("notify", cfg.Notify.Backend).Msg("starting monitor")
		action, err := run(ctx, cfg, feishuClient)
		if err != nil {
			log.Error().Err(err).Msg("monitor run failed")
		}
		if action != service.ActionRestart || ctx.Err() != nil {
			log.Info().Str("action", action.String()).Msg("monitor stopped")
			if err != nil {
				closer.Close()
				os.Exit(1)
			}
			return
		}
		log.Info().Msg("restarting monitor")
	}
}

// run builds every per-run component, serves until the run is cancelled and
// returns what the operator asked for.
func run(parent context.Context, cfg *conf.Config, feishuClient *feishu.Client) (service.Action, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	lifecycle := service.NewLifecycle(cancel)

	loc, err := cfg.Location()
	if err != nil {
		return service.ActionNone, err
	}
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return service.ActionNone, err
	}

	clients := data.Clients{Feishu: feishuClient}
	if cfg.HasSource(conf.SourceTwitch) {
		clients.Twitch = twitch.New(cfg.Twitch.Username, cfg.Twitch.OAuth, cfg.Twitch.Channels)
	}

	repos, err := data.NewRepositories(ctx, cfg, clients, loc, usecase.TrendChartTitle)
	if err != nil {
		return service.ActionNone, fmt.Errorf("create repositories: %w", err)
	}
	defer repos.Close()

	uc := biz.NewUsecases(biz.Repos{
		Chats:    repos.Chats,
		Notifier: repos.Notifier,
		OCR:      repos.OCR,
		Chart:    repos.Chart,
		MatchLog: repos.MatchLog,
		Archive:  repos.Archive,
		Events:   repos.Events,
	}, biz.Options{
		Keywords:            cfg.Monitor.Keywords,
		AlertLedgerCapacity: cfg.Monitor.AlertLedgerCapacity,
		NotificationChatID:  cfg.Notify.ChatID,
		Location:            loc,
		Cutoff:              cutoff,
		TrendWindow:         cfg.TrendWindow(),
	})

	queue := service.NewQueue(cfg.Monitor.QueueCapacity)
	defer queue.Close()

	commands := server.NewCommandHandler(uc.Keyword, uc.Report, repos.Chats, lifecycle, cfg.IsAdmin)
	ingest := server.NewIngestServer(ctx, queue, commands, uc.State.Processed)

	var keepAliveSender service.TextSender
	if feishuClient != nil {
		keepAliveSender = data.NewLarkNotifier(feishuClient)
	}

	services := []suture.Service{
		service.NewWorkerPool(queue, uc.Monitor, cfg.Monitor.Workers),
		service.NewSummaryScheduler(uc.Report),
		service.NewKeepAlive(repos.Chats, keepAliveSender, cfg.KeepAlive.ChatID, cfg.KeepAlive.Interval),
	}
	if clients.Feishu != nil && cfg.HasSource(conf.SourceFeishu) {
		services = append(services, server.NewFeishuService(clients.Feishu, ingest))
	}
	if clients.Twitch != nil {
		services = append(services, server.NewTwitchService(clients.Twitch, ingest))
	}
	if cfg.API.Addr != "" {
		services = append(services, api.NewServer(uc.Keyword, uc.Report, cfg.API.Addr))
	}

	sup := service.NewSupervisor("monitor", services...)
	err = sup.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return lifecycle.Action(), err
}
