package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	apperrors "github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/testutil"
)

func TestAlertService_Record(t *testing.T) {
	clk := testutil.NewClock()
	log := logger.New(logger.Config{Level: "error", Format: "json"})

	tests := []struct {
		name         string
		severity     string
		wantNotified int
	}{
		{name: "critical alert notifies users", severity: alert.SeverityCritical, wantNotified: 2},
		{name: "warning alert notifies nobody", severity: alert.SeverityWarning, wantNotified: 0},
		{name: "info alert notifies nobody", severity: alert.SeverityInfo, wantNotified: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockAlertRepository()
			service := NewAlertService(repo, []int64{7, 9}, clk, log)

			a := &alert.Alert{
				Platform:  platform.Twitter,
				AlertType: alert.TypeRateLimit,
				Severity:  tt.severity,
				Message:   "twitter rate limit at 95.0%",
			}
			if !service.Record(context.Background(), a) {
				t.Fatal("Record() = false, want true")
			}

			if a.ID == 0 {
				t.Error("expected alert ID to be set")
			}
			if a.Status != alert.StatusNew {
				t.Errorf("Status = %q, want %q", a.Status, alert.StatusNew)
			}
			if !a.CreatedAt.Equal(testutil.Epoch) {
				t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, testutil.Epoch)
			}
			if a.NotifiedUsers == nil {
				t.Error("NotifiedUsers should be an empty slice, not nil")
			}
			if len(a.NotifiedUsers) != tt.wantNotified {
				t.Errorf("len(NotifiedUsers) = %d, want %d", len(a.NotifiedUsers), tt.wantNotified)
			}
			if len(repo.Alerts) != 1 {
				t.Errorf("expected 1 stored alert, got %d", len(repo.Alerts))
			}
		})
	}
}

func TestAlertService_Record_WriteFailureIsSwallowed(t *testing.T) {
	repo := testutil.NewMockAlertRepository()
	repo.InsertError = errors.New("disk full")
	service := NewAlertService(repo, nil, testutil.NewClock(), logger.Nop())

	ok := service.Record(context.Background(), &alert.Alert{
		Platform:  platform.Facebook,
		AlertType: alert.TypeSpamFlag,
		Severity:  alert.SeverityCritical,
	})
	if ok {
		t.Error("Record() = true, want false on insert failure")
	}
	if len(repo.Alerts) != 0 {
		t.Errorf("expected no stored alerts, got %d", len(repo.Alerts))
	}
}

func TestAlertService_Recent(t *testing.T) {
	clk := testutil.NewClock()
	repo := testutil.NewMockAlertRepository()
	service := NewAlertService(repo, nil, clk, logger.Nop())
	ctx := context.Background()

	service.Record(ctx, &alert.Alert{Platform: platform.Twitter, AlertType: alert.TypeRateLimit, Severity: alert.SeverityWarning})
	clk.Advance(25 * time.Hour)
	service.Record(ctx, &alert.Alert{Platform: platform.LinkedIn, AlertType: alert.TypeRateLimit, Severity: alert.SeverityWarning})

	recent, err := service.Recent(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent alert, got %d", len(recent))
	}
	if recent[0].Platform != platform.LinkedIn {
		t.Errorf("Platform = %q, want linkedin", recent[0].Platform)
	}
}

func TestAlertService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		wantCode string
	}{
		{name: "acknowledge new alert", from: alert.StatusNew, to: alert.StatusAcknowledged},
		{name: "resolve new alert", from: alert.StatusNew, to: alert.StatusResolved},
		{name: "resolve acknowledged alert", from: alert.StatusAcknowledged, to: alert.StatusResolved},
		{name: "reopen resolved alert", from: alert.StatusResolved, to: alert.StatusNew, wantCode: apperrors.ErrCodeBadRequest},
		{name: "acknowledge resolved alert", from: alert.StatusResolved, to: alert.StatusAcknowledged, wantCode: apperrors.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockAlertRepository()
			service := NewAlertService(repo, nil, testutil.NewClock(), logger.Nop())
			ctx := context.Background()

			a := &alert.Alert{Platform: platform.YouTube, AlertType: alert.TypePolicyChange, Severity: alert.SeverityInfo}
			service.Record(ctx, a)
			repo.Alerts[a.ID].Status = tt.from

			err := service.UpdateStatus(ctx, a.ID, tt.to)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("UpdateStatus() error = %v, want code %s", err, tt.wantCode)
				}
				if repo.Alerts[a.ID].Status != tt.from {
					t.Errorf("status changed to %q on rejected transition", repo.Alerts[a.ID].Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
			if repo.Alerts[a.ID].Status != tt.to {
				t.Errorf("Status = %q, want %q", repo.Alerts[a.ID].Status, tt.to)
			}
		})
	}
}

func TestAlertService_UpdateStatus_NotFound(t *testing.T) {
	service := NewAlertService(testutil.NewMockAlertRepository(), nil, testutil.NewClock(), logger.Nop())

	err := service.UpdateStatus(context.Background(), 42, alert.StatusResolved)
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("UpdateStatus() error = %v, want not found", err)
	}
}
