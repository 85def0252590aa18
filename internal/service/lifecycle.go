package service

import (
	"context"
	"sync"
)

// Action is what the process does after a run ends
type Action int

const (
	ActionNone    Action = iota // run ended by signal or error
	ActionStop                  // /stopbot
	ActionRestart               // /restartbot
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionRestart:
		return "restart"
	default:
		return "none"
	}
}

// Lifecycle ends the current run on request and remembers why
type Lifecycle struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	action Action
}

// NewLifecycle creates a lifecycle that cancels the run with cancel
func NewLifecycle(cancel context.CancelFunc) *Lifecycle {
	return &Lifecycle{cancel: cancel}
}

// Stop ends the run and the process
func (l *Lifecycle) Stop() {
	l.end(ActionStop)
}

// Restart ends the run so that a fresh one is built
func (l *Lifecycle) Restart() {
	l.end(ActionRestart)
}

func (l *Lifecycle) end(action Action) {
	l.mu.Lock()
	if l.action == ActionNone {
		l.action = action
	}
	l.mu.Unlock()
	l.cancel()
}

// Action returns the requested action, first request wins
func (l *Lifecycle) Action() Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.action
}

// Running reports whether no stop or restart has been requested
func (l *Lifecycle) Running() bool {
	return l.Action() == ActionNone
}
