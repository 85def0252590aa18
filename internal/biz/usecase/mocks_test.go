package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// Mock implementations

type sentText struct {
	ChatID string
	Text   string
}

type sentImage struct {
	ChatID  string
	Image   []byte
	Caption string
}

type mockNotifier struct {
	mu       sync.Mutex
	texts    []sentText
	images   []sentImage
	err      error
	imageErr error
}

func (m *mockNotifier) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.texts = append(m.texts, sentText{ChatID: chatID, Text: text})
	return nil
}

func (m *mockNotifier) SendImage(ctx context.Context, chatID string, image []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.imageErr != nil {
		return m.imageErr
	}
	m.images = append(m.images, sentImage{ChatID: chatID, Image: image, Caption: caption})
	return nil
}

func (m *mockNotifier) Texts() []sentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentText(nil), m.texts...)
}

type mockMatchLog struct {
	mu        sync.Mutex
	records   []*domain.MatchRecord
	appendErr error
}

func (m *mockMatchLog) Append(ctx context.Context, rec *domain.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockMatchLog) filter(keep func(*domain.MatchRecord) bool) []*domain.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.MatchRecord
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockMatchLog) ByKeyword(ctx context.Context, keyword string) ([]*domain.MatchRecord, error) {
	return m.filter(func(r *domain.MatchRecord) bool { return r.Keyword == keyword }), nil
}

func (m *mockMatchLog) ByDate(ctx context.Context, day string) ([]*domain.MatchRecord, error) {
	return m.filter(func(r *domain.MatchRecord) bool { return strings.HasPrefix(r.Date(), day) }), nil
}

func (m *mockMatchLog) ByChat(ctx context.Context, name string) ([]*domain.MatchRecord, error) {
	return m.filter(func(r *domain.MatchRecord) bool { return strings.ToLower(r.ChatName) == name }), nil
}

func (m *mockMatchLog) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *mockMatchLog) Close() error {
	return nil
}

type mockChatRepo struct {
	mu         sync.Mutex
	resolveErr error
	media      []byte
	mediaErr   error
	downloads  int
	replies    []string
}

func (m *mockChatRepo) Source() string { return "mock" }

func (m *mockChatRepo) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	return m.resolveErr
}

func (m *mockChatRepo) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	return &domain.ChatInfo{ChatID: chatID, Name: chatID}, nil
}

func (m *mockChatRepo) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	if m.mediaErr != nil {
		return nil, m.mediaErr
	}
	return m.media, nil
}

func (m *mockChatRepo) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	return nil
}

func (m *mockChatRepo) Ping(ctx context.Context) error { return nil }

type mockOCR struct {
	text  string
	err   error
	calls int
}

func (m *mockOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockChart struct {
	calls int
	last  domain.TrendMatrix
	err   error
}

func (m *mockChart) RenderTrend(ctx context.Context, matrix domain.TrendMatrix) ([]byte, error) {
	m.calls++
	m.last = matrix
	if m.err != nil {
		return nil, m.err
	}
	return []byte("png"), nil
}

type mockArchive struct {
	objects map[string][]byte
}

func (m *mockArchive) Put(ctx context.Context, name, contentType string, body []byte) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[name] = body
	return nil
}

type mockEvents struct {
	mu        sync.Mutex
	published []*domain.MatchRecord
}

func (m *mockEvents) PublishMatch(ctx context.Context, rec *domain.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, rec)
	return nil
}

func (m *mockEvents) Close() error { return nil }

var errDelivery = errors.New("telegram unavailable")

var testLoc = time.FixedZone("GST", 4*3600)

const testDestination = "-1001234"

// harness wires usecases over mocks
type harness struct {
	state    *State
	notifier *mockNotifier
	matchLog *mockMatchLog
	chats    *mockChatRepo
	ocr      *mockOCR
	chart    *mockChart
	archive  *mockArchive
	events   *mockEvents
	dispatch *DispatchUsecase
	monitor  *MonitorUsecase
	report   *ReportUsecase
}

func newHarness(keywords ...string) *harness {
	h := &harness{
		state:    NewState(keywords, 0),
		notifier: &mockNotifier{},
		matchLog: &mockMatchLog{},
		chats:    &mockChatRepo{},
		ocr:      &mockOCR{},
		chart:    &mockChart{},
		archive:  &mockArchive{},
		events:   &mockEvents{},
	}
	h.dispatch = NewDispatchUsecase(h.notifier, testDestination, h.state, h.matchLog, h.events)
	h.monitor = NewMonitorUsecase(h.state, h.chats, h.ocr, h.dispatch, testLoc, testDestination)
	h.report = NewReportUsecase(h.notifier, h.matchLog, h.chart, h.archive, h.state, ReportConfig{
		Destination: testDestination,
		Cutoff:      domain.DefaultCutoff(testLoc),
	})
	return h
}

func textMessage(id, text string) *domain.ChatMessage {
	return &domain.ChatMessage{
		Source:         "feishu",
		ID:             id,
		ChatID:         "oc_ops",
		ChatTitle:      "Ops",
		ChatType:       domain.ChatTypeGroup,
		SenderUsername: "alice",
		Text:           text,
		SentAt:         time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}
