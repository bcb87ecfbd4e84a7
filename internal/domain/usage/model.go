package usage

import (
	"context"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// Record is the hourly rollup of observed upstream usage for a platform
type Record struct {
	Platform    platform.Platform `json:"platform"`
	WindowStart time.Time         `json:"window_start"`
	CallCount   int               `json:"call_count"`
	PercentUsed float64           `json:"percent_used"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Repository persists usage rollups keyed by (platform, window_start)
type Repository interface {
	// Upsert inserts the rollup or updates the existing row for the same window
	Upsert(ctx context.Context, r *Record) error

	// ListSince returns rollups for a platform from since onwards, oldest first
	ListSince(ctx context.Context, p platform.Platform, since time.Time) ([]*Record, error)
}
