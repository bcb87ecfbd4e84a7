package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
)

// ActivityLevels reports a platform's current activity level
type ActivityLevels interface {
	ActivityLevel(p platform.Platform) platform.ActivityLevel
}

// PlatformGate reports whether scheduled work for a platform is halted
type PlatformGate interface {
	IsHalted(p platform.Platform) bool
}

// SchedulerConfig selects which job families run and how often
type SchedulerConfig struct {
	Platforms                   []platform.Platform
	EnableRateLimitMonitoring   bool
	EnableCompliance            bool
	EnablePolicyChangeDetection bool
	// Cron expressions; empty means job.DefaultSchedules
	ComplianceSchedule string
	PolicySchedule     string
	DashboardSchedule  string
	// TickInterval is how often Run evaluates the timer table
	TickInterval time.Duration
}

type timerKey struct {
	platform platform.Platform
	jobType  job.JobType
}

// timer is one row of the schedule table. Sliding-scale rows carry a level
// and interval; fixed-cadence rows carry a cron schedule.
type timer struct {
	platform platform.Platform
	jobType  job.JobType
	level    platform.ActivityLevel
	interval time.Duration
	schedule cron.Schedule
	dueAt    time.Time
}

// TimerSnapshot is a read-only view of one scheduled timer
type TimerSnapshot struct {
	Platform      platform.Platform      `json:"platform,omitempty"`
	JobType       job.JobType            `json:"job_type"`
	ActivityLevel platform.ActivityLevel `json:"activity_level"`
	Interval      time.Duration          `json:"interval,omitempty"`
	DueAt         time.Time              `json:"due_at"`
}

// firing is a timer that came due on a tick
type firing struct {
	jobType  job.JobType
	platform platform.Platform
	level    platform.ActivityLevel
	dueAt    time.Time
}

// JobScheduler keeps one timer per (platform, job type) and turns due timers
// into queued jobs. The table is recomputed on a single central tick.
type JobScheduler struct {
	cfg    SchedulerConfig
	queue  job.Queue
	levels ActivityLevels
	gate   PlatformGate
	clock  clock.Clock
	logger *logger.Logger

	mu      sync.Mutex
	timers  map[timerKey]*timer
	running bool
	stop    chan struct{}
}

// NewJobScheduler creates a new scheduler. gate may be nil.
func NewJobScheduler(cfg SchedulerConfig, queue job.Queue, levels ActivityLevels, gate PlatformGate, clk clock.Clock, log *logger.Logger) *JobScheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.ComplianceSchedule == "" {
		cfg.ComplianceSchedule = job.DefaultSchedules[job.JobTypeComplianceCheck]
	}
	if cfg.PolicySchedule == "" {
		cfg.PolicySchedule = job.DefaultSchedules[job.JobTypePolicyChangeDetection]
	}
	if cfg.DashboardSchedule == "" {
		cfg.DashboardSchedule = job.DefaultSchedules[job.JobTypeDashboardReport]
	}
	return &JobScheduler{
		cfg:    cfg,
		queue:  queue,
		levels: levels,
		gate:   gate,
		clock:  clk,
		logger: log,
		timers: make(map[timerKey]*timer),
	}
}

// Start arms every enabled timer. Fixed-cadence families are due immediately
// so operators get a fresh signal on deploy; platform monitors are armed at
// the interval of their current activity level.
func (s *JobScheduler) Start(ctx context.Context) error {
	fixed := []struct {
		jobType job.JobType
		expr    string
		enabled bool
	}{
		{job.JobTypeComplianceCheck, s.cfg.ComplianceSchedule, s.cfg.EnableCompliance},
		{job.JobTypePolicyChangeDetection, s.cfg.PolicySchedule, s.cfg.EnablePolicyChangeDetection},
		{job.JobTypeDashboardReport, s.cfg.DashboardSchedule, true},
	}

	schedules := make(map[job.JobType]cron.Schedule, len(fixed))
	for _, f := range fixed {
		if !f.enabled {
			continue
		}
		sched, err := cron.ParseStandard(f.expr)
		if err != nil {
			return fmt.Errorf("invalid cron schedule for %s: %w", f.jobType, err)
		}
		schedules[f.jobType] = sched
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.cfg.EnableRateLimitMonitoring {
		for _, p := range s.cfg.Platforms {
			level := s.levels.ActivityLevel(p)
			interval := platform.RecommendedInterval(level)
			s.timers[timerKey{p, job.JobTypePlatformMonitor}] = &timer{
				platform: p,
				jobType:  job.JobTypePlatformMonitor,
				level:    level,
				interval: interval,
				dueAt:    now.Add(interval),
			}
		}
	}
	for jobType, sched := range schedules {
		s.timers[timerKey{jobType: jobType}] = &timer{
			jobType:  jobType,
			schedule: sched,
			dueAt:    now,
		}
	}

	s.running = true
	s.stop = make(chan struct{})
	metrics.SetScheduledTimers(len(s.timers))

	s.logger.WithFields(map[string]interface{}{
		"timers":    len(s.timers),
		"platforms": len(s.cfg.Platforms),
	}).Info("Job scheduler started")

	return nil
}

// Run ticks the schedule until ctx is done or StopAll is called
func (s *JobScheduler) Run(ctx context.Context) {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop == nil {
		return
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Tick fires every due timer and re-arms it. A platform monitor timer re-reads
// the platform's activity level on each firing and adopts the new interval
// when the level moved. It returns the number of jobs enqueued.
func (s *JobScheduler) Tick(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	var due []firing
	for _, t := range s.timers {
		if t.dueAt.After(now) {
			continue
		}
		due = append(due, firing{
			jobType:  t.jobType,
			platform: t.platform,
			level:    t.level,
			dueAt:    t.dueAt,
		})
		s.rearm(t, now)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].dueAt.Equal(due[j].dueAt) {
			return due[i].dueAt.Before(due[j].dueAt)
		}
		return due[i].platform < due[j].platform
	})

	enqueued := 0
	for _, f := range due {
		if f.jobType.IsPerPlatform() && s.gate != nil && s.gate.IsHalted(f.platform) {
			s.logger.WithFields(map[string]interface{}{
				"platform": f.platform,
				"job_type": f.jobType,
			}).Warn("Platform halted, skipping scheduled job")
			continue
		}
		payload := job.ScheduledJob{
			Platform:       f.platform,
			JobType:        f.jobType,
			ActivityLevel:  f.level,
			DueAt:          f.dueAt,
			IdempotencyKey: job.IdempotencyKey(f.jobType, f.platform, f.dueAt),
		}
		if _, err := s.enqueue(ctx, payload, payload.IdempotencyKey, "scheduled"); err == nil {
			enqueued++
		}
	}

	return enqueued
}

// rearm computes a fired timer's next due time. Callers hold s.mu.
func (s *JobScheduler) rearm(t *timer, now time.Time) {
	if t.schedule != nil {
		t.dueAt = t.schedule.Next(now)
		return
	}

	if current := s.levels.ActivityLevel(t.platform); current != t.level {
		s.logger.WithFields(map[string]interface{}{
			"platform": t.platform,
			"from":     t.level.String(),
			"to":       current.String(),
		}).Info("Activity level changed, adjusting check interval")
		t.level = current
		t.interval = platform.RecommendedInterval(current)
	}
	t.dueAt = now.Add(t.interval)
}

// Observe feeds the activity level seen after a platform check back into the
// schedule. A changed level re-arms the timer from now.
func (s *JobScheduler) Observe(p platform.Platform, level platform.ActivityLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[timerKey{p, job.JobTypePlatformMonitor}]
	if !ok || t.level == level {
		return
	}
	t.level = level
	t.interval = platform.RecommendedInterval(level)
	t.dueAt = s.clock.Now().Add(t.interval)

	s.logger.WithFields(map[string]interface{}{
		"platform": p,
		"level":    level.String(),
		"interval": t.interval.String(),
	}).Debug("Platform monitor rescheduled")
}

// StopAll cancels every timer and stops Run. Jobs already on the queue are
// left alone. Calling it more than once is a no-op.
func (s *JobScheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers = make(map[timerKey]*timer)
	metrics.SetScheduledTimers(0)
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)

	s.logger.Info("Job scheduler stopped")
}

// Timers returns a snapshot of the schedule table
func (s *JobScheduler) Timers() []TimerSnapshot {
	s.mu.Lock()
	out := make([]TimerSnapshot, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, TimerSnapshot{
			Platform:      t.platform,
			JobType:       t.jobType,
			ActivityLevel: t.level,
			Interval:      t.interval,
			DueAt:         t.dueAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JobType != out[j].JobType {
			return out[i].JobType < out[j].JobType
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// TriggerPlatformMonitor enqueues an immediate check for one platform
func (s *JobScheduler) TriggerPlatformMonitor(ctx context.Context, p platform.Platform) (*job.Job, error) {
	return s.trigger(ctx, job.JobTypePlatformMonitor, p)
}

// TriggerComplianceCheck enqueues an immediate compliance check
func (s *JobScheduler) TriggerComplianceCheck(ctx context.Context) (*job.Job, error) {
	return s.trigger(ctx, job.JobTypeComplianceCheck, "")
}

// TriggerPolicyChangeDetection enqueues an immediate policy change scan
func (s *JobScheduler) TriggerPolicyChangeDetection(ctx context.Context) (*job.Job, error) {
	return s.trigger(ctx, job.JobTypePolicyChangeDetection, "")
}

// TriggerDashboardReport enqueues an immediate dashboard report
func (s *JobScheduler) TriggerDashboardReport(ctx context.Context) (*job.Job, error) {
	return s.trigger(ctx, job.JobTypeDashboardReport, "")
}

// trigger bypasses the timer table; the schedule is not disturbed
func (s *JobScheduler) trigger(ctx context.Context, jobType job.JobType, p platform.Platform) (*job.Job, error) {
	scope := string(p)
	if scope == "" {
		scope = "all"
	}
	now := s.clock.Now()

	payload := job.ScheduledJob{
		Platform: p,
		JobType:  jobType,
		DueAt:    now,
		Manual:   true,
	}
	if p != "" {
		payload.ActivityLevel = s.levels.ActivityLevel(p)
	}
	id := fmt.Sprintf("%s%s-%s-%s", job.ManualPrefix, jobType, scope, uuid.New().String())
	payload.IdempotencyKey = id

	return s.enqueue(ctx, payload, id, "manual")
}

func (s *JobScheduler) enqueue(ctx context.Context, payload job.ScheduledJob, id, origin string) (*job.Job, error) {
	j, err := s.queue.Enqueue(ctx, payload.JobType.String(), payload, job.EnqueueOptions{JobID: id})
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"job_id":   id,
			"job_type": payload.JobType,
			"platform": payload.Platform,
		}).ErrorWithErr(err, "Failed to enqueue job")
		return nil, err
	}

	metrics.RecordJobEnqueued(payload.JobType.String(), origin)
	s.logger.WithFields(map[string]interface{}{
		"job_id":   j.ID,
		"job_type": payload.JobType,
		"platform": payload.Platform,
		"origin":   origin,
	}).Debug("Job enqueued")

	return j, nil
}
