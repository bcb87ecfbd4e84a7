package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
)

type alertRow struct {
	ID                  int64           `db:"id"`
	Platform            string          `db:"platform"`
	AlertType           string          `db:"alert_type"`
	Severity            string          `db:"severity"`
	Status              string          `db:"status"`
	Message             string          `db:"message"`
	Details             string          `db:"details"`
	RateLimitPercentage sql.NullFloat64 `db:"rate_limit_percentage"`
	ActionTaken         sql.NullString  `db:"action_taken"`
	NotifiedUsers       string          `db:"notified_users"`
	CreatedAt           string          `db:"created_at"`
}

func (r alertRow) toAlert() *alert.Alert {
	a := &alert.Alert{
		ID:            r.ID,
		Platform:      platform.Platform(r.Platform),
		AlertType:     r.AlertType,
		Severity:      r.Severity,
		Status:        r.Status,
		Message:       r.Message,
		NotifiedUsers: []int64{},
		CreatedAt:     parseTime(r.CreatedAt),
	}
	if r.Details != "" {
		_ = json.Unmarshal([]byte(r.Details), &a.Details)
	}
	if r.NotifiedUsers != "" {
		_ = json.Unmarshal([]byte(r.NotifiedUsers), &a.NotifiedUsers)
	}
	if r.RateLimitPercentage.Valid {
		a.RateLimitPercentage = alert.Float(r.RateLimitPercentage.Float64)
	}
	if r.ActionTaken.Valid {
		a.ActionTaken = alert.String(r.ActionTaken.String)
	}
	return a
}

const alertColumns = `id, platform, alert_type, severity, status, message, details,
	rate_limit_percentage, action_taken, notified_users, created_at`

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) alert.Repository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Insert(ctx context.Context, a *alert.Alert) (int64, error) {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return 0, errors.Internal("Failed to encode alert details", err)
	}
	if a.Details == nil {
		details = []byte("{}")
	}
	notified, err := json.Marshal(a.NotifiedUsers)
	if err != nil {
		return 0, errors.Internal("Failed to encode notified users", err)
	}
	if a.NotifiedUsers == nil {
		notified = []byte("[]")
	}

	var pct sql.NullFloat64
	if a.RateLimitPercentage != nil {
		pct = sql.NullFloat64{Float64: *a.RateLimitPercentage, Valid: true}
	}
	var action sql.NullString
	if a.ActionTaken != nil {
		action = sql.NullString{String: *a.ActionTaken, Valid: true}
	}

	query := r.db.Rebind(`
		INSERT INTO monitoring_alerts (platform, alert_type, severity, status, message, details,
			rate_limit_percentage, action_taken, notified_users, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err = r.db.QueryRowxContext(ctx, query,
		string(a.Platform), a.AlertType, a.Severity, a.Status, a.Message, string(details),
		pct, action, string(notified), formatTime(a.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, errors.DatabaseError("Failed to create alert", err)
	}

	return id, nil
}

func (r *AlertRepository) ListSince(ctx context.Context, since time.Time, filter alert.Filter) ([]*alert.Alert, error) {
	where := []string{"created_at >= ?"}
	args := []interface{}{formatTime(since)}

	if filter.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, string(filter.Platform))
	}
	if filter.AlertType != "" {
		where = append(where, "alert_type = ?")
		args = append(args, filter.AlertType)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := r.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM monitoring_alerts WHERE %s ORDER BY created_at DESC, id DESC
	`, alertColumns, strings.Join(where, " AND ")))

	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError("Failed to list alerts", err)
	}

	alerts := make([]*alert.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, row.toAlert())
	}
	return alerts, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM monitoring_alerts WHERE id = ?`, alertColumns))

	var row alertRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}

	return row.toAlert(), nil
}

func (r *AlertRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := r.db.Rebind(`UPDATE monitoring_alerts SET status = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.DatabaseError("Failed to update alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert")
	}

	return nil
}
