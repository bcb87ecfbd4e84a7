package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/domain/usage"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
)

type usageRow struct {
	Platform    string  `db:"platform"`
	WindowStart string  `db:"window_start"`
	CallCount   int     `db:"call_count"`
	PercentUsed float64 `db:"percent_used"`
	UpdatedAt   string  `db:"updated_at"`
}

// UsageRepository stores hourly usage rollups
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *sqlx.DB) usage.Repository {
	return &UsageRepository{db: db}
}

// Upsert writes the rollup in a single statement keyed on (platform, window_start)
func (r *UsageRepository) Upsert(ctx context.Context, rec *usage.Record) error {
	query := r.db.Rebind(`
		INSERT INTO platform_usage (platform, window_start, call_count, percent_used, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (platform, window_start) DO UPDATE SET
			call_count = excluded.call_count,
			percent_used = excluded.percent_used,
			updated_at = excluded.updated_at
	`)

	_, err := r.db.ExecContext(ctx, query,
		string(rec.Platform), formatTime(rec.WindowStart), rec.CallCount, rec.PercentUsed, formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return errors.DatabaseError("Failed to upsert usage", err)
	}
	return nil
}

// ListSince returns a platform's rollups from since onwards, oldest first
func (r *UsageRepository) ListSince(ctx context.Context, p platform.Platform, since time.Time) ([]*usage.Record, error) {
	query := r.db.Rebind(`
		SELECT platform, window_start, call_count, percent_used, updated_at
		FROM platform_usage WHERE platform = ? AND window_start >= ?
		ORDER BY window_start ASC
	`)

	var rows []usageRow
	if err := r.db.SelectContext(ctx, &rows, query, string(p), formatTime(since)); err != nil {
		return nil, errors.DatabaseError("Failed to list usage", err)
	}

	records := make([]*usage.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, &usage.Record{
			Platform:    platform.Platform(row.Platform),
			WindowStart: parseTime(row.WindowStart),
			CallCount:   row.CallCount,
			PercentUsed: row.PercentUsed,
			UpdatedAt:   parseTime(row.UpdatedAt),
		})
	}
	return records, nil
}
