package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rehanumarkhan/tele-monitor/internal/api"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
)

// MonitorAPI is the subset of the monitor API the tools call
type MonitorAPI interface {
	ListKeywords(ctx context.Context) ([]string, error)
	AddKeyword(ctx context.Context, keyword string) (string, error)
	RemoveKeyword(ctx context.Context, keyword string) (string, error)
	Report(ctx context.Context, kind, value string) (*api.DetailResponse, error)
	SendDailySummary(ctx context.Context) (*api.SummaryResponse, error)
	SendTrendReport(ctx context.Context) (*api.TrendResponse, error)
	Stats(ctx context.Context) (*usecase.Stats, error)
}

// Server exposes monitor administration as MCP tools
type Server struct {
	server *mcp.Server
	api    MonitorAPI
}

// NewServer creates a new MCP server backed by the monitor API
func NewServer(monitorAPI MonitorAPI, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "tele-monitor",
			Version: version,
		}, nil),
		api: monitorAPI,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves MCP over streamable HTTP
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) registerTools() {
	// Keyword management
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_add_keyword",
		Description: "Add a keyword to monitor. Matching is case-insensitive substring matching on message text and image text.",
	}, s.handleAddKeyword)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_remove_keyword",
		Description: "Stop monitoring a keyword.",
	}, s.handleRemoveKeyword)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_list_keywords",
		Description: "List monitored keywords in the order they are checked.",
	}, s.handleListKeywords)

	// Reports
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_report_by_keyword",
		Description: "Send every logged match for a keyword to the notification chat and return the entries.",
	}, s.handleReportByKeyword)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_report_by_date",
		Description: "Send every logged match on a day (YYYY-MM-DD, reporting timezone) to the notification chat and return the entries.",
	}, s.handleReportByDate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_report_by_chat",
		Description: "Send every logged match from a chat (by name, case-insensitive) to the notification chat and return the entries.",
	}, s.handleReportByChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_send_daily_summary",
		Description: "Send the pending daily summary now instead of waiting for the cutoff.",
	}, s.handleSendDailySummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_send_trend_report",
		Description: "Render the keyword trend chart for the trailing window and send it to the notification chat.",
	}, s.handleSendTrendReport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "monitor_get_stats",
		Description: "Get monitor counters: keywords, processed messages, pending summary, match log size.",
	}, s.handleGetStats)
}

// EmptyInput is the input of tools without arguments
type EmptyInput struct{}

// KeywordInput is the input of keyword tools
type KeywordInput struct {
	Keyword string `json:"keyword" jsonschema:"the keyword"`
}

// KeywordOutput is the result of keyword changes
type KeywordOutput struct {
	Success bool   `json:"success"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

// KeywordListOutput is the result of monitor_list_keywords
type KeywordListOutput struct {
	Keywords []string `json:"keywords"`
	Count    int      `json:"count"`
}

// DateInput is the input of monitor_report_by_date
type DateInput struct {
	Date string `json:"date" jsonschema:"the day in YYYY-MM-DD format"`
}

// ChatInput is the input of monitor_report_by_chat
type ChatInput struct {
	Chat string `json:"chat" jsonschema:"the chat title"`
}

func (s *Server) handleAddKeyword(ctx context.Context, _ *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, KeywordOutput, error) {
	if input.Keyword == "" {
		return nil, KeywordOutput{}, fmt.Errorf("keyword is required")
	}
	kw, err := s.api.AddKeyword(ctx, input.Keyword)
	if err != nil {
		return nil, KeywordOutput{}, err
	}
	return nil, KeywordOutput{
		Success: true,
		Keyword: kw,
		Message: fmt.Sprintf("Keyword '%s' added", kw),
	}, nil
}

func (s *Server) handleRemoveKeyword(ctx context.Context, _ *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, KeywordOutput, error) {
	if input.Keyword == "" {
		return nil, KeywordOutput{}, fmt.Errorf("keyword is required")
	}
	kw, err := s.api.RemoveKeyword(ctx, input.Keyword)
	if err != nil {
		return nil, KeywordOutput{}, err
	}
	return nil, KeywordOutput{
		Success: true,
		Keyword: kw,
		Message: fmt.Sprintf("Keyword '%s' removed", kw),
	}, nil
}

func (s *Server) handleListKeywords(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, KeywordListOutput, error) {
	keywords, err := s.api.ListKeywords(ctx)
	if err != nil {
		return nil, KeywordListOutput{}, err
	}
	if keywords == nil {
		keywords = []string{}
	}
	return nil, KeywordListOutput{Keywords: keywords, Count: len(keywords)}, nil
}

func (s *Server) handleReportByKeyword(ctx context.Context, _ *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, api.DetailResponse, error) {
	return s.report(ctx, "keyword", input.Keyword)
}

func (s *Server) handleReportByDate(ctx context.Context, _ *mcp.CallToolRequest, input DateInput) (*mcp.CallToolResult, api.DetailResponse, error) {
	return s.report(ctx, "date", input.Date)
}

func (s *Server) handleReportByChat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, api.DetailResponse, error) {
	return s.report(ctx, "chat", input.Chat)
}

func (s *Server) report(ctx context.Context, kind, value string) (*mcp.CallToolResult, api.DetailResponse, error) {
	if value == "" {
		return nil, api.DetailResponse{}, fmt.Errorf("%s is required", kind)
	}
	resp, err := s.api.Report(ctx, kind, value)
	if err != nil {
		return nil, api.DetailResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleSendDailySummary(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, api.SummaryResponse, error) {
	resp, err := s.api.SendDailySummary(ctx)
	if err != nil {
		return nil, api.SummaryResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleSendTrendReport(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, api.TrendResponse, error) {
	resp, err := s.api.SendTrendReport(ctx)
	if err != nil {
		return nil, api.TrendResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, usecase.Stats, error) {
	stats, err := s.api.Stats(ctx)
	if err != nil {
		return nil, usecase.Stats{}, err
	}
	return nil, *stats, nil
}
