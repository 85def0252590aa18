package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/infra/feishu"
)

func TestChatRouter_RoutesBySource(t *testing.T) {
	lark := &mockLarkAPI{info: &feishu.ChatInfo{Name: "Ops", ChatType: "group"}}
	tw := &mockTwitchAPI{connected: true}
	router := NewChatRouter(NewLarkRepo(lark), NewTwitchRepo(tw))

	twMsg := &domain.ChatMessage{Source: "twitch", ChatID: "ops"}
	require.NoError(t, router.Resolve(context.Background(), twMsg))
	assert.Equal(t, "#ops", twMsg.ChatTitle)
	assert.Equal(t, 0, lark.infoCalls)

	require.NoError(t, router.Reply(context.Background(), twMsg, "pong"))
	assert.Equal(t, []string{"pong"}, tw.said["ops"])

	fsMsg := &domain.ChatMessage{Source: "feishu", ChatID: "oc_1"}
	require.NoError(t, router.Resolve(context.Background(), fsMsg))
	assert.Equal(t, "Ops", fsMsg.ChatTitle)
}

func TestChatRouter_UnknownSource(t *testing.T) {
	router := NewChatRouter(NewTwitchRepo(&mockTwitchAPI{}))

	err := router.Resolve(context.Background(), &domain.ChatMessage{Source: "irc"})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestChatRouter_PingJoinsFailures(t *testing.T) {
	router := NewChatRouter(NewLarkRepo(&mockLarkAPI{}), NewTwitchRepo(&mockTwitchAPI{connected: false}))

	err := router.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twitch")
}
