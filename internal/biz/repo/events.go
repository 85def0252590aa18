package repo

import (
	"context"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// EventPublisher fans match records out to other consumers
type EventPublisher interface {
	PublishMatch(ctx context.Context, rec *domain.MatchRecord) error
	Close() error
}
