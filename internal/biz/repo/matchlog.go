package repo

import (
	"context"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// MatchLogRepo is the detailed-message log: one row per match, append only.
type MatchLogRepo interface {
	Append(ctx context.Context, rec *domain.MatchRecord) error

	// ByKeyword returns entries with exactly this keyword, oldest first
	ByKeyword(ctx context.Context, keyword string) ([]*domain.MatchRecord, error)

	// ByDate returns entries whose reporting date is day (YYYY-MM-DD)
	ByDate(ctx context.Context, day string) ([]*domain.MatchRecord, error)

	// ByChat returns entries whose chat name equals name, case-insensitively
	ByChat(ctx context.Context, name string) ([]*domain.MatchRecord, error)

	// Count returns the number of entries
	Count(ctx context.Context) (int, error)

	Close() error
}
