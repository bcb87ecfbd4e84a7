package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/queue"
	"github.com/pratik-mahalle/ratewatch/internal/testutil"
)

type fakeLevels struct {
	mu     sync.Mutex
	levels map[platform.Platform]platform.ActivityLevel
}

func (f *fakeLevels) ActivityLevel(p platform.Platform) platform.ActivityLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[p]
}

func (f *fakeLevels) set(p platform.Platform, l platform.ActivityLevel) {
	f.mu.Lock()
	f.levels[p] = l
	f.mu.Unlock()
}

type fakeGate map[platform.Platform]bool

func (g fakeGate) IsHalted(p platform.Platform) bool { return g[p] }

type schedulerFixture struct {
	scheduler *JobScheduler
	levels    *fakeLevels
	queue     *queue.MemoryQueue
	clock     *clock.Manual
}

func newSchedulerFixture(cfg SchedulerConfig, gate PlatformGate) *schedulerFixture {
	clk := testutil.NewClock()
	levels := &fakeLevels{levels: make(map[platform.Platform]platform.ActivityLevel)}
	q := queue.NewMemoryQueue(clk)
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return &schedulerFixture{
		scheduler: NewJobScheduler(cfg, q, levels, gate, clk, log),
		levels:    levels,
		queue:     q,
		clock:     clk,
	}
}

func (f *schedulerFixture) jobsFor(t *testing.T, jobType job.JobType, p platform.Platform) []*job.Job {
	t.Helper()
	jobs, err := f.queue.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	var out []*job.Job
	for _, j := range jobs {
		if j.Payload.JobType == jobType && j.Payload.Platform == p {
			out = append(out, j)
		}
	}
	return out
}

func (f *schedulerFixture) monitorTimer(t *testing.T, p platform.Platform) TimerSnapshot {
	t.Helper()
	for _, ts := range f.scheduler.Timers() {
		if ts.JobType == job.JobTypePlatformMonitor && ts.Platform == p {
			return ts
		}
	}
	t.Fatalf("no platform monitor timer for %s", p)
	return TimerSnapshot{}
}

func TestJobScheduler_Start(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.Facebook, platform.Twitter},
		EnableRateLimitMonitoring: true,
		EnableCompliance:          true,
	}, nil)
	f.levels.set(platform.Twitter, platform.LevelHigh)

	if err := f.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	timers := f.scheduler.Timers()
	// two platform monitors, compliance and dashboard
	if len(timers) != 4 {
		t.Fatalf("expected 4 timers, got %d", len(timers))
	}

	fb := f.monitorTimer(t, platform.Facebook)
	if fb.Interval != 24*time.Hour || !fb.DueAt.Equal(testutil.Epoch.Add(24*time.Hour)) {
		t.Errorf("facebook timer = %+v", fb)
	}
	tw := f.monitorTimer(t, platform.Twitter)
	if tw.Interval != time.Minute || !tw.DueAt.Equal(testutil.Epoch.Add(time.Minute)) {
		t.Errorf("twitter timer = %+v", tw)
	}

	// fixed-cadence families are due at start
	if n := f.scheduler.Tick(context.Background()); n != 2 {
		t.Errorf("Tick() = %d, want 2", n)
	}
	if len(f.jobsFor(t, job.JobTypeComplianceCheck, "")) != 1 {
		t.Error("expected a compliance check job")
	}
	if len(f.jobsFor(t, job.JobTypeDashboardReport, "")) != 1 {
		t.Error("expected a dashboard report job")
	}
}

func TestJobScheduler_Start_InvalidCron(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		EnableCompliance:   true,
		ComplianceSchedule: "every tuesday",
	}, nil)

	if err := f.scheduler.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestJobScheduler_ConvergesOnActivityChange(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.Twitter},
		EnableRateLimitMonitoring: true,
	}, nil)
	ctx := context.Background()
	f.levels.set(platform.Twitter, platform.LevelLow)

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := f.monitorTimer(t, platform.Twitter).Interval; got != time.Hour {
		t.Fatalf("initial interval = %v, want 1h", got)
	}

	f.levels.set(platform.Twitter, platform.LevelCritical)
	f.clock.Advance(time.Hour)
	f.scheduler.Tick(ctx)

	jobs := f.jobsFor(t, job.JobTypePlatformMonitor, platform.Twitter)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 monitor job, got %d", len(jobs))
	}
	if jobs[0].Payload.ActivityLevel != platform.LevelLow {
		t.Errorf("job level = %v, want the level the timer was armed with", jobs[0].Payload.ActivityLevel)
	}

	timer := f.monitorTimer(t, platform.Twitter)
	if timer.Interval != 10*time.Second {
		t.Errorf("interval after convergence = %v, want 10s", timer.Interval)
	}
	if timer.ActivityLevel != platform.LevelCritical {
		t.Errorf("level after convergence = %v, want critical", timer.ActivityLevel)
	}

	f.clock.Advance(10 * time.Second)
	f.scheduler.Tick(ctx)
	if n := len(f.jobsFor(t, job.JobTypePlatformMonitor, platform.Twitter)); n != 2 {
		t.Errorf("expected 2 monitor jobs after the next 10s firing, got %d", n)
	}
}

func TestJobScheduler_Observe(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.LinkedIn},
		EnableRateLimitMonitoring: true,
	}, nil)
	if err := f.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	f.clock.Advance(time.Minute)
	f.scheduler.Observe(platform.LinkedIn, platform.LevelMedium)

	timer := f.monitorTimer(t, platform.LinkedIn)
	if timer.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", timer.Interval)
	}
	if !timer.DueAt.Equal(testutil.Epoch.Add(6 * time.Minute)) {
		t.Errorf("DueAt = %v, want epoch+6m", timer.DueAt)
	}

	// same level leaves the timer alone
	f.clock.Advance(time.Minute)
	f.scheduler.Observe(platform.LinkedIn, platform.LevelMedium)
	if got := f.monitorTimer(t, platform.LinkedIn).DueAt; !got.Equal(timer.DueAt) {
		t.Errorf("DueAt moved to %v", got)
	}
}

func TestJobScheduler_SkipsHaltedPlatforms(t *testing.T) {
	gate := fakeGate{platform.WhatsApp: true}
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.WhatsApp, platform.Instagram},
		EnableRateLimitMonitoring: true,
	}, gate)
	ctx := context.Background()

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.clock.Advance(24 * time.Hour)
	f.scheduler.Tick(ctx)

	if n := len(f.jobsFor(t, job.JobTypePlatformMonitor, platform.WhatsApp)); n != 0 {
		t.Errorf("halted platform got %d jobs", n)
	}
	if n := len(f.jobsFor(t, job.JobTypePlatformMonitor, platform.Instagram)); n != 1 {
		t.Errorf("instagram got %d jobs, want 1", n)
	}

	// the halted timer keeps running so a resumed platform picks up again
	timer := f.monitorTimer(t, platform.WhatsApp)
	if !timer.DueAt.After(f.clock.Now()) {
		t.Errorf("halted timer was not re-armed: %v", timer.DueAt)
	}
}

func TestJobScheduler_IdempotentFiring(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.TikTok},
		EnableRateLimitMonitoring: true,
	}, nil)
	ctx := context.Background()

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	due := f.monitorTimer(t, platform.TikTok).DueAt
	key := job.IdempotencyKey(job.JobTypePlatformMonitor, platform.TikTok, due)

	// an earlier scheduler instance already enqueued this firing
	if _, err := f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{
		Platform:       platform.TikTok,
		JobType:        job.JobTypePlatformMonitor,
		DueAt:          due,
		IdempotencyKey: key,
	}, job.EnqueueOptions{JobID: key}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	f.clock.Set(due)
	f.scheduler.Tick(ctx)

	jobs := f.jobsFor(t, job.JobTypePlatformMonitor, platform.TikTok)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job after duplicate firing, got %d", len(jobs))
	}
	if jobs[0].ID != key {
		t.Errorf("job ID = %q, want %q", jobs[0].ID, key)
	}
}

func TestJobScheduler_Triggers(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 []platform.Platform{platform.Twitter},
		EnableRateLimitMonitoring: true,
	}, nil)
	ctx := context.Background()
	f.levels.set(platform.Twitter, platform.LevelHigh)

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := f.monitorTimer(t, platform.Twitter)

	tests := []struct {
		name       string
		trigger    func() (*job.Job, error)
		wantPrefix string
	}{
		{"platform monitor", func() (*job.Job, error) { return f.scheduler.TriggerPlatformMonitor(ctx, platform.Twitter) }, "manual-platform_monitor-twitter-"},
		{"compliance check", func() (*job.Job, error) { return f.scheduler.TriggerComplianceCheck(ctx) }, "manual-compliance_check-all-"},
		{"policy change detection", func() (*job.Job, error) { return f.scheduler.TriggerPolicyChangeDetection(ctx) }, "manual-policy_change_detection-all-"},
		{"dashboard report", func() (*job.Job, error) { return f.scheduler.TriggerDashboardReport(ctx) }, "manual-dashboard_report-all-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := tt.trigger()
			if err != nil {
				t.Fatalf("trigger error = %v", err)
			}
			if !strings.HasPrefix(j.ID, tt.wantPrefix) {
				t.Errorf("ID = %q, want prefix %q", j.ID, tt.wantPrefix)
			}
			if !job.IsManual(j.ID) || !j.Payload.Manual {
				t.Error("job should be marked manual")
			}
			if j.State != job.StateWaiting {
				t.Errorf("State = %q, want waiting", j.State)
			}
		})
	}

	after := f.monitorTimer(t, platform.Twitter)
	if !after.DueAt.Equal(before.DueAt) || after.Interval != before.Interval {
		t.Errorf("manual trigger disturbed the schedule: %+v -> %+v", before, after)
	}
}

func TestJobScheduler_StopAll(t *testing.T) {
	f := newSchedulerFixture(SchedulerConfig{
		Platforms:                 platform.All(),
		EnableRateLimitMonitoring: true,
	}, nil)
	ctx := context.Background()

	if err := f.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.scheduler.Tick(ctx)
	queued, _ := f.queue.ListJobs(ctx)

	f.scheduler.StopAll()
	f.scheduler.StopAll()

	if n := len(f.scheduler.Timers()); n != 0 {
		t.Errorf("expected no timers after StopAll, got %d", n)
	}
	f.clock.Advance(48 * time.Hour)
	if n := f.scheduler.Tick(ctx); n != 0 {
		t.Errorf("Tick() after StopAll = %d, want 0", n)
	}

	remaining, _ := f.queue.ListJobs(ctx)
	if len(remaining) != len(queued) {
		t.Errorf("StopAll touched queued jobs: %d -> %d", len(queued), len(remaining))
	}

	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after StopAll")
	}
}
