package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

func TestProcess_IncidentEndToEnd(t *testing.T) {
	h := newHarness("incident")
	ctx := context.Background()

	result, err := h.monitor.Process(ctx, textMessage("1", "An Incident occurred|table junk|"))
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	rec := result.Matches[0]
	assert.Equal(t, "incident", rec.Keyword)
	assert.Equal(t, domain.SourceText, rec.Source)
	assert.Equal(t, "an incident occurred", rec.Text)
	assert.Equal(t, "2024-01-01 12:00:00", rec.Date(), "timestamp converted to the reporting timezone")

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, testDestination, texts[0].ChatID)
	assert.Contains(t, texts[0].Text, "`incident` (from text)")
	assert.Contains(t, texts[0].Text, "✉️ *Message:* `an incident occurred`")

	assert.Equal(t, 1, h.state.Summary.Len())
	assert.Equal(t, 1, h.state.Trend.Len())
	assert.Len(t, h.matchLog.records, 1)
	assert.Len(t, h.events.published, 1)
}

func TestProcess_NoMatch(t *testing.T) {
	h := newHarness("incident")

	result, err := h.monitor.Process(context.Background(), textMessage("1", "all quiet"))
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Empty(t, h.notifier.Texts())
	assert.Equal(t, 0, h.state.Trend.Len())
}

func TestProcess_EmptyKeywordSetNeverMatches(t *testing.T) {
	h := newHarness()

	result, err := h.monitor.Process(context.Background(), textMessage("1", "anything at all"))
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestProcess_DuplicateIDProcessedOnce(t *testing.T) {
	h := newHarness("incident")
	ctx := context.Background()

	_, err := h.monitor.Process(ctx, textMessage("1", "incident one"))
	require.NoError(t, err)

	result, err := h.monitor.Process(ctx, textMessage("1", "incident one"))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Empty(t, result.Matches)

	assert.Len(t, h.notifier.Texts(), 1)
	assert.Equal(t, 1, h.state.Trend.Len())
	assert.Len(t, h.matchLog.records, 1)
}

func TestProcess_SameIDOnOtherSourceIsNotDuplicate(t *testing.T) {
	h := newHarness("incident")
	ctx := context.Background()

	first := textMessage("1", "incident")
	second := textMessage("1", "incident")
	second.Source = "twitch"

	_, err := h.monitor.Process(ctx, first)
	require.NoError(t, err)
	result, err := h.monitor.Process(ctx, second)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Len(t, result.Matches, 1)
}

func TestProcess_ConcurrentRedeliveryHasOneWinner(t *testing.T) {
	h := newHarness("incident")
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.monitor.Process(context.Background(), textMessage("same", "incident"))
		}()
	}
	wg.Wait()

	assert.Len(t, h.notifier.Texts(), 1)
	assert.Equal(t, 1, h.state.Trend.Len())
	assert.Equal(t, 1, h.state.Summary.Len())
}

func TestProcess_IdenticalAlertSuppressedButRecorded(t *testing.T) {
	h := newHarness("incident")
	ctx := context.Background()

	// Different ids, identical rendered alert.
	_, err := h.monitor.Process(ctx, textMessage("1", "incident"))
	require.NoError(t, err)
	_, err = h.monitor.Process(ctx, textMessage("2", "incident"))
	require.NoError(t, err)

	assert.Len(t, h.notifier.Texts(), 1, "second alert is suppressed")
	assert.Equal(t, 2, h.state.Trend.Len())
	assert.Equal(t, 2, h.state.Summary.Len())
	assert.Len(t, h.matchLog.records, 2)
}

func TestProcess_FirstKeywordWins(t *testing.T) {
	h := newHarness("disk", "full")

	result, err := h.monitor.Process(context.Background(), textMessage("1", "disk full"))
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "disk", result.Matches[0].Keyword)
	assert.Equal(t, 1, h.state.Trend.Len())
}

func TestProcess_SkipsNotificationChatAndBots(t *testing.T) {
	h := newHarness("incident")
	ctx := context.Background()

	fromSink := textMessage("1", "incident")
	fromSink.ChatID = testDestination
	result, err := h.monitor.Process(ctx, fromSink)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	fromBot := textMessage("2", "incident")
	fromBot.FromBot = true
	result, err = h.monitor.Process(ctx, fromBot)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	assert.Empty(t, h.notifier.Texts())
	assert.True(t, h.state.Processed.Seen(fromBot.Key()), "skipped messages are still claimed")
}

func TestProcess_ResolveFailureUsesFallbacks(t *testing.T) {
	h := newHarness("incident")
	h.chats.resolveErr = errors.New("lark timeout")

	msg := &domain.ChatMessage{Source: "feishu", ID: "1", Text: "incident"}
	result, err := h.monitor.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, domain.UnknownSender, result.Matches[0].SenderName)
	assert.Equal(t, domain.PrivateChat, result.Matches[0].ChatName)
	assert.Equal(t, domain.NoLink, result.Matches[0].Link)
}

func TestProcess_ImageMatch(t *testing.T) {
	h := newHarness("incident")
	h.ocr.text = "SERVER |cell| INCIDENT\n\nreport"

	msg := textMessage("1", "")
	msg.Media = &domain.Media{Data: []byte{0x89, 'P', 'N', 'G'}}

	result, err := h.monitor.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, domain.SourceImage, result.Matches[0].Source)
	assert.Equal(t, "server incident report", result.Matches[0].Text)
	assert.Equal(t, 0, h.chats.downloads, "inline media needs no download")

	texts := h.notifier.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0].Text, "(from image)")
	assert.NotContains(t, texts[0].Text, "Message:*")

	require.Len(t, h.notifier.images, 1)
	assert.Equal(t, repo.ImageCaption, h.notifier.images[0].Caption)
	assert.Equal(t, domain.ImageMatchedBody, h.matchLog.records[0].LogEntry().Message)
}

func TestProcess_TextAndImageBothMatch(t *testing.T) {
	h := newHarness("incident")
	h.ocr.text = "incident"
	h.chats.media = []byte("img")

	msg := textMessage("1", "incident")
	msg.Media = &domain.Media{Key: "img_v2_1"}

	result, err := h.monitor.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, 1, h.chats.downloads)
	assert.Equal(t, 2, h.state.Trend.Len())
}

func TestProcess_NotAnImageIsSkipped(t *testing.T) {
	h := newHarness("incident")
	h.ocr.err = fmt.Errorf("decode: %w", repo.ErrNotAnImage)

	msg := textMessage("1", "")
	msg.Media = &domain.Media{Data: []byte("%PDF-1.7")}

	result, err := h.monitor.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Empty(t, h.notifier.Texts())
}

func TestProcess_DownloadFailureKeepsTextMatch(t *testing.T) {
	h := newHarness("incident")
	h.chats.mediaErr = errors.New("resource expired")

	msg := textMessage("1", "incident in caption")
	msg.Media = &domain.Media{Key: "img_v2_1"}

	result, err := h.monitor.Process(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource expired")
	require.Len(t, result.Matches, 1)
	assert.Equal(t, domain.SourceText, result.Matches[0].Source)
	assert.Equal(t, 0, h.ocr.calls)
}

func TestProcess_NoOCRIgnoresMedia(t *testing.T) {
	h := newHarness("incident")
	h.monitor = NewMonitorUsecase(h.state, h.chats, nil, h.dispatch, testLoc, testDestination)

	msg := textMessage("1", "")
	msg.Media = &domain.Media{Key: "img"}

	result, err := h.monitor.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, h.chats.downloads)
}

func TestProcess_KeywordChangesApplyToLaterMessages(t *testing.T) {
	h := newHarness()
	kw := NewKeywordUsecase(h.state.Keywords)
	ctx := context.Background()

	result, err := h.monitor.Process(ctx, textMessage("1", "Outage in eu-west"))
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	_, ok := kw.Add("OUTAGE")
	require.True(t, ok)

	result, err = h.monitor.Process(ctx, textMessage("2", "Outage in eu-west"))
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.True(t, strings.Contains(h.notifier.Texts()[0].Text, "`outage`"))
}
