package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/data"
)

const (
	alertsChat = "-1001234"
	adminChat  = "oc_admin"
)

var testLoc = time.FixedZone("GST", 4*3600)

type mockNotifier struct {
	mu     sync.Mutex
	texts  []string
	images int
}

func (m *mockNotifier) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockNotifier) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images++
	return nil
}

func (m *mockNotifier) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

type mockChats struct {
	mu      sync.Mutex
	replies []string
}

func (m *mockChats) Source() string { return "feishu" }

func (m *mockChats) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.ChatTitle == "" {
		msg.ChatTitle = "Ops"
	}
	return nil
}

func (m *mockChats) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	return &domain.ChatInfo{ChatID: chatID, Name: "Ops"}, nil
}

func (m *mockChats) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	return nil, data.ErrMediaUnsupported
}

func (m *mockChats) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	return nil
}

func (m *mockChats) Ping(ctx context.Context) error { return nil }

func (m *mockChats) Replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replies...)
}

type mockChart struct{ calls int }

func (m *mockChart) RenderTrend(ctx context.Context, matrix domain.TrendMatrix) ([]byte, error) {
	m.calls++
	return []byte("png"), nil
}

type mockLifecycle struct {
	stopped, restarted bool
}

func (m *mockLifecycle) Stop()    { m.stopped = true }
func (m *mockLifecycle) Restart() { m.restarted = true }

type harness struct {
	state     *usecase.State
	notifier  *mockNotifier
	chats     *mockChats
	chart     *mockChart
	lifecycle *mockLifecycle
	monitor   *usecase.MonitorUsecase
	reports   *usecase.ReportUsecase
	commands  *CommandHandler
}

func newHarness(t *testing.T, keywords ...string) *harness {
	t.Helper()
	matchLog, err := data.NewMatchLogRepo(":memory:", testLoc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = matchLog.Close() })

	h := &harness{
		state:     usecase.NewState(keywords, 50),
		notifier:  &mockNotifier{},
		chats:     &mockChats{},
		chart:     &mockChart{},
		lifecycle: &mockLifecycle{},
	}
	cutoff := domain.DefaultCutoff(testLoc)
	dispatch := usecase.NewDispatchUsecase(h.notifier, alertsChat, h.state, matchLog, nil)
	h.monitor = usecase.NewMonitorUsecase(h.state, h.chats, nil, dispatch, testLoc, alertsChat)
	h.reports = usecase.NewReportUsecase(h.notifier, matchLog, h.chart, nil, h.state, usecase.ReportConfig{
		Destination: alertsChat,
		Cutoff:      cutoff,
	})
	h.commands = NewCommandHandler(
		usecase.NewKeywordUsecase(h.state.Keywords),
		h.reports,
		h.chats,
		h.lifecycle,
		func(id string) bool { return id == adminChat },
	)
	return h
}

func adminMsg(text string) *domain.ChatMessage {
	return &domain.ChatMessage{Source: "feishu", ID: "cmd", ChatID: adminChat, Text: text}
}
