package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/compliance"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/queue"
	"github.com/pratik-mahalle/ratewatch/internal/testutil"
)

type coordinatorFixture struct {
	coordinator *MonitorCoordinator
	tracker     *ActivityTracker
	alerts      *testutil.MockAlertRepository
	usage       *testutil.MockUsageRepository
	queue       *queue.MemoryQueue
	clock       *clock.Manual
}

func newCoordinatorFixture(platforms []platform.Platform, opts ...ComplianceOption) *coordinatorFixture {
	clk := testutil.NewClock()
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	alertRepo := testutil.NewMockAlertRepository()
	usageRepo := testutil.NewMockUsageRepository()
	q := queue.NewMemoryQueue(clk)

	alerts := NewAlertService(alertRepo, []int64{1}, clk, log)
	tracker := NewActivityTracker(alerts, clk, log)
	engine := NewComplianceEngine(platforms, alerts, clk, log, opts...)

	return &coordinatorFixture{
		coordinator: NewMonitorCoordinator(platforms, tracker, engine, alerts, q, usageRepo, clk, log),
		tracker:     tracker,
		alerts:      alertRepo,
		usage:       usageRepo,
		queue:       q,
		clock:       clk,
	}
}

func graphHeaders(callCount string) map[string]string {
	return map[string]string{"x-app-usage": `{"call_count":` + callCount + `,"total_cputime":1,"total_time":1}`}
}

func TestMonitorCoordinator_ProcessAPIResponse_Throttle(t *testing.T) {
	f := newCoordinatorFixture(platform.All())
	ctx := context.Background()

	result := f.coordinator.ProcessAPIResponse(ctx, platform.Instagram, graphHeaders("78"))

	if result.Action != platform.ActionThrottle {
		t.Errorf("Action = %v, want throttle", result.Action)
	}
	if result.State != platform.StateThrottled {
		t.Errorf("State = %v, want throttled", result.State)
	}
	if result.CallsLastHour != 1 {
		t.Errorf("CallsLastHour = %d, want 1", result.CallsLastHour)
	}
	if result.Sample == nil || result.Sample.PercentUsed != 78 {
		t.Fatalf("Sample = %+v, want 78%% usage", result.Sample)
	}

	if n := len(f.alerts.Alerts); n != 1 {
		t.Fatalf("expected 1 alert, got %d", n)
	}
	if n := f.alerts.Count(alert.Filter{AlertType: alert.TypeRateLimit, Severity: alert.SeverityWarning}); n != 1 {
		t.Errorf("warning rate_limit alerts = %d, want 1", n)
	}

	records, _ := f.usage.ListSince(ctx, platform.Instagram, testutil.Epoch.Add(-time.Hour))
	if len(records) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(records))
	}
	if !records[0].WindowStart.Equal(testutil.Epoch.Truncate(time.Hour)) {
		t.Errorf("WindowStart = %v", records[0].WindowStart)
	}
	if records[0].PercentUsed != 78 {
		t.Errorf("PercentUsed = %v, want 78", records[0].PercentUsed)
	}
}

func TestMonitorCoordinator_ProcessAPIResponse_NoSignal(t *testing.T) {
	f := newCoordinatorFixture(platform.All())

	result := f.coordinator.ProcessAPIResponse(context.Background(), platform.YouTube, map[string]string{"content-type": "application/json"})

	if result.Sample != nil {
		t.Errorf("expected no sample, got %+v", result.Sample)
	}
	if result.Action != platform.ActionNormal || result.State != platform.StateNormal {
		t.Errorf("result = %v/%v, want normal/normal", result.Action, result.State)
	}
	if got := f.tracker.CallsLastHour(platform.YouTube); got != 1 {
		t.Errorf("call should still be tracked, got %d", got)
	}
	if len(f.alerts.Alerts) != 0 || len(f.usage.Records) != 0 {
		t.Error("expected no alerts and no usage records")
	}
}

func TestMonitorCoordinator_StateOnlyEscalates(t *testing.T) {
	f := newCoordinatorFixture(platform.All())
	ctx := context.Background()

	steps := []struct {
		percent string
		want    platform.ControlState
	}{
		{"80", platform.StateThrottled},
		{"92", platform.StatePaused},
		{"40", platform.StatePaused},
		{"76", platform.StatePaused},
		{"100", platform.StateStopped},
		{"10", platform.StateStopped},
	}

	for _, s := range steps {
		result := f.coordinator.ProcessAPIResponse(ctx, platform.Facebook, graphHeaders(s.percent))
		if result.State != s.want {
			t.Errorf("after %s%%: State = %v, want %v", s.percent, result.State, s.want)
		}
	}
	if !f.coordinator.IsHalted(platform.Facebook) {
		t.Error("facebook should be halted")
	}

	prev := f.coordinator.Resume(platform.Facebook)
	if prev != platform.StateStopped {
		t.Errorf("Resume() = %v, want stopped", prev)
	}
	if got := f.coordinator.State(platform.Facebook); got != platform.StateNormal {
		t.Errorf("State after resume = %v, want normal", got)
	}
	if f.coordinator.IsHalted(platform.Facebook) {
		t.Error("facebook should not be halted after resume")
	}
}

func TestMonitorCoordinator_HandleSpamFlag(t *testing.T) {
	f := newCoordinatorFixture(platform.All())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		opts := job.EnqueueOptions{}
		if i == 2 {
			opts.Delay = time.Minute
		}
		if _, err := f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{
			Platform: platform.WhatsApp,
			JobType:  job.JobTypePlatformMonitor,
		}, opts); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if _, err := f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{
		Platform: platform.Twitter,
		JobType:  job.JobTypePlatformMonitor,
	}, job.EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	removed := f.coordinator.HandleSpamFlag(ctx, platform.WhatsApp, "368", "Temporarily blocked for policy violations")
	if removed != 3 {
		t.Errorf("HandleSpamFlag() removed %d, want 3", removed)
	}

	remaining, _ := f.queue.ListJobs(ctx)
	for _, j := range remaining {
		if j.Payload.Platform == platform.WhatsApp {
			t.Errorf("whatsapp job %s survived the emergency stop", j.ID)
		}
	}
	if len(remaining) != 1 {
		t.Errorf("expected the twitter job to remain, got %d jobs", len(remaining))
	}

	criticalWhatsApp := alert.Filter{Platform: platform.WhatsApp, Severity: alert.SeverityCritical}
	if n := f.alerts.Count(criticalWhatsApp); n != 1 {
		t.Errorf("critical alerts after first spam flag = %d, want 1", n)
	}
	if got := f.coordinator.State(platform.WhatsApp); got != platform.StateStopped {
		t.Errorf("State = %v, want stopped", got)
	}

	if again := f.coordinator.HandleSpamFlag(ctx, platform.WhatsApp, "368", "Temporarily blocked for policy violations"); again != 0 {
		t.Errorf("second HandleSpamFlag() removed %d, want 0", again)
	}
	if n := f.alerts.Count(criticalWhatsApp); n != 2 {
		t.Errorf("critical alerts after second spam flag = %d, want 2", n)
	}
}

func TestMonitorCoordinator_MonitorPlatform(t *testing.T) {
	f := newCoordinatorFixture(
		[]platform.Platform{platform.Twitter},
		WithPolicyChecker(testutil.StubPolicyChecker{Failing: map[platform.Platform]bool{platform.Twitter: true}}),
	)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		f.tracker.TrackCall(platform.Twitter)
	}

	status := f.coordinator.MonitorPlatform(ctx, platform.Twitter)
	if status.ActivityLevel != platform.LevelMedium {
		t.Errorf("ActivityLevel = %v, want medium", status.ActivityLevel)
	}
	if status.CallsLastHour != 12 {
		t.Errorf("CallsLastHour = %d, want 12", status.CallsLastHour)
	}
	if !status.NextCheckTime.Equal(testutil.Epoch.Add(5 * time.Minute)) {
		t.Errorf("NextCheckTime = %v", status.NextCheckTime)
	}
	if status.ComplianceStatus != compliance.StatusNonCompliant {
		t.Errorf("ComplianceStatus = %q, want non_compliant", status.ComplianceStatus)
	}
	if status.RateLimitPercentage != nil {
		t.Errorf("RateLimitPercentage = %v, want nil before any sample", *status.RateLimitPercentage)
	}
	if n := f.alerts.Count(alert.Filter{AlertType: alert.TypePolicyViolation}); n != 2 {
		t.Errorf("policy violation alerts = %d, want 2", n)
	}
}

func TestMonitorCoordinator_MonitorAllPlatforms(t *testing.T) {
	platforms := []platform.Platform{platform.Facebook, platform.LinkedIn, platform.TikTok}
	f := newCoordinatorFixture(platforms)

	statuses := f.coordinator.MonitorAllPlatforms(context.Background())
	if len(statuses) != len(platforms) {
		t.Fatalf("expected %d statuses, got %d", len(platforms), len(statuses))
	}
	for i, s := range statuses {
		if s.Platform != platforms[i] {
			t.Errorf("statuses[%d].Platform = %q, want %q", i, s.Platform, platforms[i])
		}
		if s.ComplianceStatus != compliance.StatusCompliant {
			t.Errorf("%s ComplianceStatus = %q", s.Platform, s.ComplianceStatus)
		}
	}
}

type risingPredictor struct{}

func (risingPredictor) PredictNextLevel(p platform.Platform, current platform.ActivityLevel) platform.ActivityLevel {
	if current < platform.LevelCritical {
		return current + 1
	}
	return current
}

func TestMonitorCoordinator_GetSlidingScaleSchedule(t *testing.T) {
	f := newCoordinatorFixture([]platform.Platform{platform.Facebook, platform.Twitter})
	for i := 0; i < 60; i++ {
		f.tracker.TrackCall(platform.Twitter)
	}

	schedule := f.coordinator.GetSlidingScaleSchedule()
	if len(schedule) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(schedule))
	}
	if schedule[0].ActivityLevel != platform.LevelIdle || schedule[0].CurrentInterval != 24*time.Hour {
		t.Errorf("facebook entry = %+v", schedule[0])
	}
	if schedule[1].ActivityLevel != platform.LevelHigh || schedule[1].CurrentInterval != time.Minute {
		t.Errorf("twitter entry = %+v", schedule[1])
	}
	if schedule[1].NextLevel != schedule[1].ActivityLevel {
		t.Errorf("default predictor should keep the level, got %v", schedule[1].NextLevel)
	}

	f.coordinator.SetPredictor(risingPredictor{})
	schedule = f.coordinator.GetSlidingScaleSchedule()
	if schedule[1].NextLevel != platform.LevelCritical || schedule[1].NextInterval != 10*time.Second {
		t.Errorf("twitter prediction = %v/%v, want critical/10s", schedule[1].NextLevel, schedule[1].NextInterval)
	}
}

func TestMonitorCoordinator_GetDashboardData(t *testing.T) {
	f := newCoordinatorFixture(
		[]platform.Platform{platform.Facebook, platform.Instagram, platform.Twitter},
		WithPolicyChecker(testutil.StubPolicyChecker{Failing: map[platform.Platform]bool{platform.Instagram: true}}),
	)
	ctx := context.Background()

	f.coordinator.ProcessAPIResponse(ctx, platform.Facebook, graphHeaders("95"))
	f.tracker.TrackCall(platform.Twitter)
	alertsBefore := len(f.alerts.Alerts)

	data, err := f.coordinator.GetDashboardData(ctx)
	if err != nil {
		t.Fatalf("GetDashboardData() error = %v", err)
	}

	if len(data.Platforms) != 3 || len(data.Schedule) != 3 {
		t.Fatalf("expected 3 platforms and 3 schedule entries, got %d and %d", len(data.Platforms), len(data.Schedule))
	}
	if data.Summary.ComplianceIssues != 1 {
		t.Errorf("ComplianceIssues = %d, want 1", data.Summary.ComplianceIssues)
	}
	if data.Summary.ActivePlatforms != 2 {
		t.Errorf("ActivePlatforms = %d, want 2", data.Summary.ActivePlatforms)
	}
	if data.Summary.CriticalAlerts != 1 {
		t.Errorf("CriticalAlerts = %d, want 1", data.Summary.CriticalAlerts)
	}
	if len(data.RecentAlerts) != alertsBefore {
		t.Errorf("RecentAlerts = %d, want %d", len(data.RecentAlerts), alertsBefore)
	}
	if data.Platforms[0].RateLimitPercentage == nil || *data.Platforms[0].RateLimitPercentage != 95 {
		t.Errorf("facebook RateLimitPercentage = %v, want 95", data.Platforms[0].RateLimitPercentage)
	}
	if data.ComplianceReport.Platforms != 3 {
		t.Errorf("ComplianceReport.Platforms = %d, want 3", data.ComplianceReport.Platforms)
	}

	if len(f.alerts.Alerts) != alertsBefore {
		t.Errorf("dashboard recorded %d new alerts", len(f.alerts.Alerts)-alertsBefore)
	}
}

func TestMonitorCoordinator_GetDashboardData_Empty(t *testing.T) {
	f := newCoordinatorFixture([]platform.Platform{platform.LinkedIn})

	data, err := f.coordinator.GetDashboardData(context.Background())
	if err != nil {
		t.Fatalf("GetDashboardData() error = %v", err)
	}
	if data.RecentAlerts == nil {
		t.Error("RecentAlerts should be an empty slice")
	}
	if data.Summary != (DashboardSummary{}) {
		t.Errorf("Summary = %+v, want zero", data.Summary)
	}
}

func TestMonitorCoordinator_GetDashboardData_AlertStoreDown(t *testing.T) {
	f := newCoordinatorFixture([]platform.Platform{platform.Facebook, platform.Twitter})
	ctx := context.Background()

	f.tracker.TrackCall(platform.Twitter)
	f.alerts.ListError = errors.New("store down")

	data, err := f.coordinator.GetDashboardData(ctx)
	if err != nil {
		t.Fatalf("GetDashboardData() error = %v, want nil", err)
	}
	if data.RecentAlerts == nil || len(data.RecentAlerts) != 0 {
		t.Errorf("RecentAlerts = %v, want empty slice", data.RecentAlerts)
	}
	if len(data.Platforms) != 2 || len(data.Schedule) != 2 {
		t.Errorf("expected 2 platforms and 2 schedule entries, got %d and %d", len(data.Platforms), len(data.Schedule))
	}
	if data.Summary.ActivePlatforms != 1 {
		t.Errorf("ActivePlatforms = %d, want 1", data.Summary.ActivePlatforms)
	}
	if data.Summary.CriticalAlerts != 0 {
		t.Errorf("CriticalAlerts = %d, want 0", data.Summary.CriticalAlerts)
	}
	if data.ComplianceReport.Platforms != 2 {
		t.Errorf("ComplianceReport.Platforms = %d, want 2", data.ComplianceReport.Platforms)
	}
}
