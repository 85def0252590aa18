package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle_FirstRequestWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lc := NewLifecycle(cancel)

	assert.True(t, lc.Running())
	lc.Restart()
	lc.Stop()

	assert.Equal(t, ActionRestart, lc.Action())
	assert.False(t, lc.Running())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "stop", ActionStop.String())
	assert.Equal(t, "restart", ActionRestart.String())
	assert.Equal(t, "none", ActionNone.String())
}
