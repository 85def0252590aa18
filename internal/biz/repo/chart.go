package repo

import (
	"context"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
)

// ChartRepo renders trend matrices
type ChartRepo interface {
	// RenderTrend returns a PNG line chart of the matrix
	RenderTrend(ctx context.Context, m domain.TrendMatrix) ([]byte, error)
}
