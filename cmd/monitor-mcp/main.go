package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/mcp"
)

var version = "dev"

// This MCP server exposes keyword and report tools and relays every call to
// the monitor HTTP API at MONITOR_API_URL.
func main() {
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	_ = godotenv.Load()

	// stdout carries the MCP protocol, so logs go to stderr and the file only
	logCfg := logging.DefaultConfig()
	logCfg.Format = "json"
	logCfg.File = os.Getenv("LOG_FILE")
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logCfg.Level = lvl
	}
	closer, err := logging.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	log := logging.Component("MCP")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiURL := os.Getenv("MONITOR_API_URL")
	srv := mcp.NewServer(mcp.NewClient(apiURL), version)

	if *httpAddr != "" {
		log.Info().Str("addr", *httpAddr).Msg("serving MCP over HTTP")
		err = srv.RunHTTP(ctx, *httpAddr)
	} else {
		log.Info().Str("api", apiURL).Msg("serving MCP over stdio")
		err = srv.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		closer.Close()
		os.Exit(1)
	}
}
