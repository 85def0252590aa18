package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/api"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/data"
)

type nopNotifier struct{ texts int }

func (n *nopNotifier) SendText(ctx context.Context, chatID, text string) error {
	n.texts++
	return nil
}

func (n *nopNotifier) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	return nil
}

type nopChart struct{}

func (nopChart) RenderTrend(ctx context.Context, m domain.TrendMatrix) ([]byte, error) {
	return []byte("png"), nil
}

// newAPIClient starts the real API handler and returns a client for it
func newAPIClient(t *testing.T, keywords ...string) (*Client, *usecase.State, *nopNotifier) {
	t.Helper()
	matchLog, err := data.NewMatchLogRepo(":memory:", time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = matchLog.Close() })

	state := usecase.NewState(keywords, 50)
	notifier := &nopNotifier{}
	reports := usecase.NewReportUsecase(notifier, matchLog, nopChart{}, nil, state, usecase.ReportConfig{
		Destination: "-100",
		Cutoff:      domain.DefaultCutoff(time.UTC),
	})
	srv := httptest.NewServer(api.NewServer(usecase.NewKeywordUsecase(state.Keywords), reports, ":0").Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL + "/"), state, notifier
}

func TestClient_Keywords(t *testing.T) {
	client, state, _ := newAPIClient(t, "incident")
	ctx := context.Background()

	kw, err := client.AddKeyword(ctx, "Server Down")
	require.NoError(t, err)
	assert.Equal(t, "server down", kw)

	keywords, err := client.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"incident", "server down"}, keywords)

	kw, err = client.RemoveKeyword(ctx, "server down")
	require.NoError(t, err)
	assert.Equal(t, "server down", kw)
	assert.Equal(t, []string{"incident"}, state.Keywords.Snapshot())

	_, err = client.AddKeyword(ctx, "incident")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, domain.ErrInvalidKeyword.Error(), apiErr.Message)
}

func TestClient_Reports(t *testing.T) {
	client, state, notifier := newAPIClient(t)
	ctx := context.Background()

	resp, err := client.Report(ctx, "keyword", "nothing")
	require.NoError(t, err)
	assert.False(t, resp.Sent)
	assert.Contains(t, resp.Message, "No messages found")

	_, err = client.Report(ctx, "date", "yesterday")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Invalid date format")

	state.Summary.Append("alert")
	summary, err := client.SendDailySummary(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Sent)
	assert.Equal(t, 1, summary.Count)

	trend, err := client.SendTrendReport(ctx)
	require.NoError(t, err)
	assert.True(t, trend.Empty)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingSummary)

	assert.Equal(t, 2, notifier.texts)
}

func TestClient_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultAPIURL, NewClient("").baseURL)
}
