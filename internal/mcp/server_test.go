package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/api"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
)

type mockMonitorAPI struct {
	keywords []string
	kind     string
	value    string
	err      error
}

func (m *mockMonitorAPI) ListKeywords(ctx context.Context) ([]string, error) {
	return m.keywords, m.err
}

func (m *mockMonitorAPI) AddKeyword(ctx context.Context, keyword string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.keywords = append(m.keywords, keyword)
	return keyword, nil
}

func (m *mockMonitorAPI) RemoveKeyword(ctx context.Context, keyword string) (string, error) {
	return keyword, m.err
}

func (m *mockMonitorAPI) Report(ctx context.Context, kind, value string) (*api.DetailResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.kind, m.value = kind, value
	return &api.DetailResponse{
		Kind:    kind,
		Value:   value,
		Sent:    true,
		Entries: []domain.LogEntry{{Keyword: "incident", Message: "an incident"}},
	}, nil
}

func (m *mockMonitorAPI) SendDailySummary(ctx context.Context) (*api.SummaryResponse, error) {
	return &api.SummaryResponse{Sent: true, Count: 3}, m.err
}

func (m *mockMonitorAPI) SendTrendReport(ctx context.Context) (*api.TrendResponse, error) {
	return &api.TrendResponse{Keywords: []string{"incident"}, Total: 4}, m.err
}

func (m *mockMonitorAPI) Stats(ctx context.Context) (*usecase.Stats, error) {
	return &usecase.Stats{Keywords: 2}, m.err
}

func TestServer_KeywordTools(t *testing.T) {
	ctx := context.Background()
	mock := &mockMonitorAPI{}
	s := NewServer(mock, "test")

	_, out, err := s.handleAddKeyword(ctx, nil, KeywordInput{Keyword: "incident"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Keyword 'incident' added", out.Message)

	_, list, err := s.handleListKeywords(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)

	_, out, err = s.handleRemoveKeyword(ctx, nil, KeywordInput{Keyword: "incident"})
	require.NoError(t, err)
	assert.Equal(t, "Keyword 'incident' removed", out.Message)

	_, _, err = s.handleAddKeyword(ctx, nil, KeywordInput{})
	assert.Error(t, err)
}

func TestServer_ListKeywordsNeverNull(t *testing.T) {
	s := NewServer(&mockMonitorAPI{}, "test")

	_, list, err := s.handleListKeywords(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.NotNil(t, list.Keywords)
	assert.Equal(t, 0, list.Count)
}

func TestServer_ReportTools(t *testing.T) {
	ctx := context.Background()
	mock := &mockMonitorAPI{}
	s := NewServer(mock, "test")

	tests := []struct {
		name  string
		call  func() error
		kind  string
		value string
	}{
		{"keyword", func() error {
			_, _, err := s.handleReportByKeyword(ctx, nil, KeywordInput{Keyword: "incident"})
			return err
		}, "keyword", "incident"},
		{"date", func() error {
			_, _, err := s.handleReportByDate(ctx, nil, DateInput{Date: "2024-03-05"})
			return err
		}, "date", "2024-03-05"},
		{"chat", func() error {
			_, _, err := s.handleReportByChat(ctx, nil, ChatInput{Chat: "Ops"})
			return err
		}, "chat", "Ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, tt.kind, mock.kind)
			assert.Equal(t, tt.value, mock.value)
		})
	}

	_, _, err := s.handleReportByDate(ctx, nil, DateInput{})
	assert.EqualError(t, err, "date is required")
}

func TestServer_SummaryTrendStats(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&mockMonitorAPI{}, "test")

	_, summary, err := s.handleSendDailySummary(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)

	_, trend, err := s.handleSendTrendReport(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, trend.Total)

	_, stats, err := s.handleGetStats(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keywords)
}

func TestServer_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&mockMonitorAPI{err: errors.New("api down")}, "test")

	_, _, err := s.handleReportByKeyword(ctx, nil, KeywordInput{Keyword: "x"})
	assert.EqualError(t, err, "api down")

	_, _, err = s.handleGetStats(ctx, nil, EmptyInput{})
	assert.EqualError(t, err, "api down")
}
