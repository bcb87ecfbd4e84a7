package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
)

// AlertService writes monitoring alerts and serves them to operators
type AlertService struct {
	repo          alert.Repository
	notifyUserIDs []int64
	clock         clock.Clock
	logger        *logger.Logger
}

// NewAlertService creates a new alert service. notifyUserIDs are attached to
// every critical alert.
func NewAlertService(repo alert.Repository, notifyUserIDs []int64, clk clock.Clock, log *logger.Logger) *AlertService {
	return &AlertService{
		repo:          repo,
		notifyUserIDs: notifyUserIDs,
		clock:         clk,
		logger:        log,
	}
}

// Record persists an alert. A failed write is logged and dropped so the
// monitoring pipeline keeps running; the return value reports whether the
// alert was stored.
func (s *AlertService) Record(ctx context.Context, a *alert.Alert) bool {
	a.Status = alert.StatusNew
	a.CreatedAt = s.clock.Now()
	a.NotifiedUsers = []int64{}
	if a.Severity == alert.SeverityCritical && len(s.notifyUserIDs) > 0 {
		a.NotifiedUsers = append(a.NotifiedUsers, s.notifyUserIDs...)
	}

	id, err := s.repo.Insert(ctx, a)
	if err != nil {
		metrics.RecordAlertWriteFailure()
		s.logger.WithFields(map[string]interface{}{
			"platform":   a.Platform,
			"alert_type": a.AlertType,
			"severity":   a.Severity,
		}).ErrorWithErr(err, "Failed to persist alert")
		return false
	}
	a.ID = id

	metrics.RecordAlert(string(a.Platform), a.AlertType, a.Severity)
	s.logger.WithFields(map[string]interface{}{
		"alert_id":   id,
		"platform":   a.Platform,
		"alert_type": a.AlertType,
		"severity":   a.Severity,
	}).Info("Alert created")

	return true
}

// Recent returns alerts created within the trailing window
func (s *AlertService) Recent(ctx context.Context, window time.Duration) ([]*alert.Alert, error) {
	return s.repo.ListSince(ctx, s.clock.Now().Add(-window), alert.Filter{})
}

// List returns alerts created since the given time matching filter
func (s *AlertService) List(ctx context.Context, since time.Time, filter alert.Filter) ([]*alert.Alert, error) {
	return s.repo.ListSince(ctx, since, filter)
}

// GetByID retrieves a single alert
func (s *AlertService) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus performs an operator status transition
func (s *AlertService) UpdateStatus(ctx context.Context, id int64, status string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !alert.ValidTransition(a.Status, status) {
		return errors.BadRequest(fmt.Sprintf("cannot move alert from %s to %s", a.Status, status))
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update alert status")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
		"status":   status,
	}).Info("Alert status updated")

	return nil
}
