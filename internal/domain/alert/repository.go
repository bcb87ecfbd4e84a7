package alert

import (
	"context"
	"time"
)

// Repository is the append-mostly alert store the monitoring core writes to
type Repository interface {
	// Insert appends a new alert and returns its ID
	Insert(ctx context.Context, a *Alert) (int64, error)

	// ListSince returns alerts created at or after since, newest first
	ListSince(ctx context.Context, since time.Time, filter Filter) ([]*Alert, error)

	// GetByID retrieves an alert by ID
	GetByID(ctx context.Context, id int64) (*Alert, error)

	// UpdateStatus moves an alert through its operator lifecycle
	UpdateStatus(ctx context.Context, id int64, status string) error
}
