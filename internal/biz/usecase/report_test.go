package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestReportByDate_NoEntries(t *testing.T) {
	h := newHarness()

	report, err := h.report.ByDate(context.Background(), "2024-01-01")
	require.NoError(t, err)
	assert.False(t, report.Sent)
	assert.Equal(t, "⚠️ *No messages found for date* `2024-01-01`.", report.Reply)
	assert.Empty(t, h.notifier.Texts())
}

func TestReportByDate_InvalidDate(t *testing.T) {
	h := newHarness()

	report, err := h.report.ByDate(context.Background(), "01/02/2024")
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Equal(t, "⚠️ *Invalid date format* `01/02/2024`. *Please use YYYY-MM-DD format.*", report.Reply)
}

func TestReportByDate_UsesReportingDay(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	late := testRecord("incident")
	late.Timestamp = time.Date(2024, 1, 1, 23, 30, 0, 0, testLoc)
	other := testRecord("outage")
	other.Timestamp = time.Date(2024, 1, 2, 0, 30, 0, 0, testLoc)
	require.NoError(t, h.matchLog.Append(ctx, late))
	require.NoError(t, h.matchLog.Append(ctx, other))

	report, err := h.report.ByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.True(t, report.Sent)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "incident", report.Entries[0].Keyword)
}

func TestReportByKeyword(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.matchLog.Append(ctx, testRecord("incident")))
	require.NoError(t, h.matchLog.Append(ctx, testRecord("outage")))

	report, err := h.report.ByKeyword(ctx, " INCIDENT ")
	require.NoError(t, err)
	assert.True(t, report.Sent)
	assert.Empty(t, report.Reply)

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.True(t, strings.HasPrefix(texts[0].Text, "🔍 *Report for keyword* `incident`:\n\n{"))
	assert.Contains(t, texts[0].Text, `"keyword": "incident"`)
	assert.Contains(t, texts[0].Text, `"message_link": "N/A"`)
	assert.NotContains(t, texts[0].Text, "outage")
}

func TestReportByKeyword_NoEntries(t *testing.T) {
	h := newHarness()

	report, err := h.report.ByKeyword(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, "⚠️ *No messages found for keyword* `ghost`.", report.Reply)
}

func TestReportByChat_CaseInsensitive(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.matchLog.Append(ctx, testRecord("incident")))

	report, err := h.report.ByChat(ctx, "OPS")
	require.NoError(t, err)
	assert.True(t, report.Sent)
	assert.Equal(t, "ops", report.Value)
	assert.Contains(t, h.notifier.Texts()[0].Text, "🏷️ *Report for chat* `ops`")
}

func TestReport_DeliveryFailure(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.matchLog.Append(ctx, testRecord("incident")))
	h.notifier.err = errDelivery

	report, err := h.report.ByKeyword(ctx, "incident")
	require.ErrorIs(t, err, errDelivery)
	assert.False(t, report.Sent)
}

func TestDailySummary_ForcedThenEmpty(t *testing.T) {
	h := newHarness()
	h.report.now = fixedNow(time.Date(2024, 1, 1, 10, 0, 0, 0, testLoc))
	ctx := context.Background()

	for _, a := range []string{"alert one", "alert two", "alert three"} {
		h.state.Summary.Append(a)
	}

	result, err := h.report.SendDailySummary(ctx, true)
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, 3, result.Count)

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "🗓️ *Daily Summary Report:*\n\nalert one\n\nalert two\n\nalert three", texts[0].Text)
	assert.Equal(t, 0, h.state.Summary.Len())

	second, err := h.report.SendDailySummary(ctx, true)
	require.NoError(t, err)
	assert.False(t, second.Sent)
	assert.Len(t, h.notifier.Texts(), 1, "empty buffer sends nothing")
}

func TestDailySummary_BeforeCutoffWaits(t *testing.T) {
	h := newHarness()
	h.report.now = fixedNow(time.Date(2024, 1, 1, 10, 0, 0, 0, testLoc))
	h.state.Summary.Append("pending")

	result, err := h.report.SendDailySummary(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, 13*time.Hour+59*time.Minute, result.Wait)
	assert.Equal(t, 1, h.state.Summary.Len())
}

func TestDailySummary_AtCutoffFlushesAndArchives(t *testing.T) {
	h := newHarness()
	h.report.now = fixedNow(time.Date(2024, 1, 1, 23, 59, 0, 0, testLoc))
	h.state.Summary.Append("pending")

	result, err := h.report.SendDailySummary(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, 24*time.Hour, result.Wait)
	assert.Contains(t, h.archive.objects, "summaries/2024-01-01T2359.md")
}

func TestDailySummary_FailedSendStillClearsBuffer(t *testing.T) {
	h := newHarness()
	h.report.now = fixedNow(time.Date(2024, 1, 1, 10, 0, 0, 0, testLoc))
	h.notifier.err = errDelivery
	h.state.Summary.Append("pending")

	result, err := h.report.SendDailySummary(context.Background(), true)
	require.ErrorIs(t, err, errDelivery)
	assert.False(t, result.Sent)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 0, h.state.Summary.Len())
}

func TestTrendReport_EmptyWindow(t *testing.T) {
	h := newHarness()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, testLoc)
	h.report.now = fixedNow(now)
	h.state.Trend.Record("incident", now.Add(-40*24*time.Hour))

	result, err := h.report.SendTrendReport(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Equal(t, 0, h.chart.calls)

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, NoTrendData, texts[0].Text)
}

func TestTrendReport_RendersOnce(t *testing.T) {
	h := newHarness()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, testLoc)
	h.report.now = fixedNow(now)

	h.state.Trend.Record("incident", now.Add(-time.Hour))
	h.state.Trend.Record("incident", now.Add(-25*time.Hour))
	h.state.Trend.Record("outage", now.Add(-2*time.Hour))
	h.state.Trend.Record("outage", now.Add(-45*24*time.Hour)) // outside the window

	result, err := h.report.SendTrendReport(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.Equal(t, 1, h.chart.calls)
	assert.Equal(t, 3, h.chart.last.Total())
	assert.Equal(t, []string{"incident", "outage"}, h.chart.last.Keywords)

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, TrendReportTitle, texts[0].Text)
	require.Len(t, h.notifier.images, 1)
	assert.Equal(t, TrendChartTitle, h.notifier.images[0].Caption)
	assert.Contains(t, h.archive.objects, "trends/2024-03-01T1200.png")
}

func TestTrendReport_ChartFailure(t *testing.T) {
	h := newHarness()
	h.chart.err = errors.New("no fonts")
	h.state.Trend.Record("incident", time.Now())

	_, err := h.report.SendTrendReport(context.Background())
	require.Error(t, err)
	assert.Empty(t, h.notifier.Texts())
}

func TestStats(t *testing.T) {
	h := newHarness("a", "b")
	h.report.now = fixedNow(time.Date(2024, 1, 1, 23, 0, 0, 0, testLoc))
	h.state.Processed.Claim("x")
	h.state.Summary.Append("s")
	require.NoError(t, h.matchLog.Append(context.Background(), testRecord("a")))

	stats, err := h.report.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keywords)
	assert.Equal(t, 1, stats.ProcessedIDs)
	assert.Equal(t, 1, stats.PendingSummary)
	assert.Equal(t, 1, stats.MatchLogEntries)
	assert.Equal(t, "59m0s", stats.NextSummaryIn)
}

func TestReportUsecase_DefaultWindow(t *testing.T) {
	h := newHarness()
	assert.Equal(t, domain.DefaultTrendWindow, h.report.cfg.TrendWindow)
}
