package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/compliance"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/domain/usage"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
)

// dashboardAlertWindow is how far back the dashboard looks for alerts
const dashboardAlertWindow = 24 * time.Hour

// MonitoringStatus is the per-platform result of a monitoring pass
type MonitoringStatus struct {
	Platform            platform.Platform      `json:"platform"`
	ActivityLevel       platform.ActivityLevel `json:"activity_level"`
	CallsLastHour       int                    `json:"calls_last_hour"`
	RateLimitPercentage *float64               `json:"rate_limit_percentage"`
	NextCheckTime       time.Time              `json:"next_check_time"`
	ComplianceStatus    string                 `json:"compliance_status"`
	LastComplianceCheck time.Time              `json:"last_compliance_check"`
	State               platform.ControlState  `json:"state"`
}

// SlidingScaleSchedule describes a platform's self-adjusting check cadence
type SlidingScaleSchedule struct {
	Platform        platform.Platform      `json:"platform"`
	ActivityLevel   platform.ActivityLevel `json:"activity_level"`
	CurrentInterval time.Duration          `json:"current_interval"`
	NextLevel       platform.ActivityLevel `json:"next_level"`
	NextInterval    time.Duration          `json:"next_interval"`
	TransitionTime  time.Time              `json:"transition_time"`
}

// DashboardSummary holds the dashboard's headline counters
type DashboardSummary struct {
	ActivePlatforms  int `json:"active_platforms"`
	CriticalAlerts   int `json:"critical_alerts"`
	ComplianceIssues int `json:"compliance_issues"`
}

// DashboardData is the operator-facing snapshot
type DashboardData struct {
	GeneratedAt      time.Time              `json:"generated_at"`
	Platforms        []MonitoringStatus     `json:"platforms"`
	Schedule         []SlidingScaleSchedule `json:"schedule"`
	RecentAlerts     []*alert.Alert         `json:"recent_alerts"`
	ComplianceReport compliance.Report      `json:"compliance_report"`
	Summary          DashboardSummary       `json:"summary"`
}

// IngestResult is what ProcessAPIResponse learned from one upstream response
type IngestResult struct {
	Platform      platform.Platform        `json:"platform"`
	CallsLastHour int                      `json:"calls_last_hour"`
	Sample        *RateLimitSample         `json:"sample,omitempty"`
	Action        platform.ThresholdAction `json:"action"`
	State         platform.ControlState    `json:"state"`
}

// ActivityPredictor forecasts a platform's next activity level
type ActivityPredictor interface {
	PredictNextLevel(p platform.Platform, current platform.ActivityLevel) platform.ActivityLevel
}

// CurrentLevelPredictor assumes activity stays where it is
type CurrentLevelPredictor struct{}

// PredictNextLevel returns current unchanged
func (CurrentLevelPredictor) PredictNextLevel(p platform.Platform, current platform.ActivityLevel) platform.ActivityLevel {
	return current
}

// MonitorCoordinator decides what should happen to each platform and is the
// only component that cancels queued work.
type MonitorCoordinator struct {
	platforms []platform.Platform
	tracker   *ActivityTracker
	engine    *ComplianceEngine
	alerts    *AlertService
	queue     job.Queue
	usage     usage.Repository
	predictor ActivityPredictor
	clock     clock.Clock
	logger    *logger.Logger

	mu      sync.RWMutex
	states  map[platform.Platform]platform.ControlState
	samples map[platform.Platform]*RateLimitSample
}

// NewMonitorCoordinator creates a new coordinator. usageRepo may be nil when
// usage rollups are not persisted.
func NewMonitorCoordinator(
	platforms []platform.Platform,
	tracker *ActivityTracker,
	engine *ComplianceEngine,
	alerts *AlertService,
	queue job.Queue,
	usageRepo usage.Repository,
	clk clock.Clock,
	log *logger.Logger,
) *MonitorCoordinator {
	return &MonitorCoordinator{
		platforms: platforms,
		tracker:   tracker,
		engine:    engine,
		alerts:    alerts,
		queue:     queue,
		usage:     usageRepo,
		predictor: CurrentLevelPredictor{},
		clock:     clk,
		logger:    log,
		states:    make(map[platform.Platform]platform.ControlState),
		samples:   make(map[platform.Platform]*RateLimitSample),
	}
}

// SetPredictor replaces the activity predictor used by GetSlidingScaleSchedule
func (c *MonitorCoordinator) SetPredictor(p ActivityPredictor) {
	if p == nil {
		p = CurrentLevelPredictor{}
	}
	c.predictor = p
}

// Platforms returns the monitored platforms
func (c *MonitorCoordinator) Platforms() []platform.Platform {
	return c.platforms
}

// State returns the platform's control state
func (c *MonitorCoordinator) State(p platform.Platform) platform.ControlState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[p]
}

// IsHalted reports whether scheduled work for the platform must not run
func (c *MonitorCoordinator) IsHalted(p platform.Platform) bool {
	return c.State(p) == platform.StateStopped
}

// escalate raises the platform's state and never lowers it
func (c *MonitorCoordinator) escalate(p platform.Platform, to platform.ControlState) platform.ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.states[p]
	if to <= from {
		return from
	}
	c.states[p] = to

	c.logger.WithFields(map[string]interface{}{
		"platform": p,
		"from":     from.String(),
		"to":       to.String(),
	}).Warn("Platform control state escalated")
	return to
}

// Resume returns a platform to NORMAL. This is the only way down the ladder.
func (c *MonitorCoordinator) Resume(p platform.Platform) platform.ControlState {
	c.mu.Lock()
	prev := c.states[p]
	delete(c.states, p)
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"platform": p,
		"from":     prev.String(),
	}).Info("Platform resumed by operator")
	return prev
}

func (c *MonitorCoordinator) lastSample(p platform.Platform) *RateLimitSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.samples[p]
}

func (c *MonitorCoordinator) buildStatus(p platform.Platform, policies compliance.PolicyCheckResult) MonitoringStatus {
	calls := c.tracker.CallsLastHour(p)
	level := platform.LevelForCallsPerHour(calls)

	status := MonitoringStatus{
		Platform:            p,
		ActivityLevel:       level,
		CallsLastHour:       calls,
		NextCheckTime:       c.tracker.NextCheckTime(level),
		ComplianceStatus:    compliance.StatusCompliant,
		LastComplianceCheck: policies.CheckedAt,
		State:               c.State(p),
	}
	if !policies.Compliant {
		status.ComplianceStatus = compliance.StatusNonCompliant
	}
	if s := c.lastSample(p); s != nil {
		status.RateLimitPercentage = alert.Float(s.PercentUsed)
	}
	return status
}

// MonitorPlatform runs one monitoring pass for a platform. Policy violations
// found during the pass are recorded as alerts.
func (c *MonitorCoordinator) MonitorPlatform(ctx context.Context, p platform.Platform) MonitoringStatus {
	status := c.buildStatus(p, c.engine.CheckPlatformPolicies(ctx, p))

	c.logger.WithFields(map[string]interface{}{
		"platform":   p,
		"level":      status.ActivityLevel.String(),
		"calls":      status.CallsLastHour,
		"compliance": status.ComplianceStatus,
	}).Debug("Platform monitored")

	return status
}

// PlatformStatus builds a platform's status without recording anything
func (c *MonitorCoordinator) PlatformStatus(ctx context.Context, p platform.Platform) MonitoringStatus {
	return c.buildStatus(p, c.engine.EvaluatePlatformPolicies(ctx, p))
}

// fanOut runs fn for every platform concurrently, preserving platform order
func (c *MonitorCoordinator) fanOut(ctx context.Context, fn func(context.Context, platform.Platform) MonitoringStatus) []MonitoringStatus {
	statuses := make([]MonitoringStatus, len(c.platforms))

	var g errgroup.Group
	for i, p := range c.platforms {
		i, p := i, p
		g.Go(func() error {
			statuses[i] = fn(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// MonitorAllPlatforms runs a monitoring pass for every platform in parallel
func (c *MonitorCoordinator) MonitorAllPlatforms(ctx context.Context) []MonitoringStatus {
	return c.fanOut(ctx, c.MonitorPlatform)
}

// GetSlidingScaleSchedule returns the current and predicted cadence per platform
func (c *MonitorCoordinator) GetSlidingScaleSchedule() []SlidingScaleSchedule {
	schedules := make([]SlidingScaleSchedule, 0, len(c.platforms))
	for _, p := range c.platforms {
		level := c.tracker.ActivityLevel(p)
		next := c.predictor.PredictNextLevel(p, level)
		schedules = append(schedules, SlidingScaleSchedule{
			Platform:        p,
			ActivityLevel:   level,
			CurrentInterval: platform.RecommendedInterval(level),
			NextLevel:       next,
			NextInterval:    platform.RecommendedInterval(next),
			TransitionTime:  c.tracker.NextCheckTime(level),
		})
	}
	return schedules
}

// ProcessAPIResponse is the ingestion point external API clients call after
// every upstream request.
func (c *MonitorCoordinator) ProcessAPIResponse(ctx context.Context, p platform.Platform, headers map[string]string) IngestResult {
	c.tracker.TrackCall(p)

	result := IngestResult{
		Platform:      p,
		CallsLastHour: c.tracker.CallsLastHour(p),
		Action:        platform.ActionNormal,
	}

	sample := c.tracker.ParsePlatformHeaders(p, headers)
	if sample == nil {
		result.State = c.State(p)
		return result
	}
	result.Sample = sample

	c.mu.Lock()
	c.samples[p] = sample
	c.mu.Unlock()

	details := map[string]interface{}{
		"calls_last_hour": sample.CallsPerHour,
		"headers":         sample.RawHeaderData,
	}
	result.Action = c.tracker.CheckThresholds(ctx, p, sample.PercentUsed, details)
	result.State = c.escalate(p, platform.StateFor(result.Action))

	c.recordUsage(ctx, sample)

	return result
}

// recordUsage upserts the hourly rollup; failures are logged only
func (c *MonitorCoordinator) recordUsage(ctx context.Context, s *RateLimitSample) {
	if c.usage == nil {
		return
	}
	rec := &usage.Record{
		Platform:    s.Platform,
		WindowStart: s.Timestamp.Truncate(time.Hour),
		CallCount:   s.CallsPerHour,
		PercentUsed: s.PercentUsed,
		UpdatedAt:   s.Timestamp,
	}
	if err := c.usage.Upsert(ctx, rec); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"platform": s.Platform,
		}).ErrorWithErr(err, "Failed to record usage rollup")
	}
}

// HandleSpamFlag records the incident and then performs the emergency stop:
// every waiting, active or delayed job for the platform is removed. Calling it
// again is safe and returns zero removals.
func (c *MonitorCoordinator) HandleSpamFlag(ctx context.Context, p platform.Platform, errorCode, errorMessage string) int {
	c.engine.HandleSpamFlag(ctx, p, errorCode, errorMessage)
	c.escalate(p, platform.StateStopped)
	return c.emergencyStop(ctx, p)
}

func (c *MonitorCoordinator) emergencyStop(ctx context.Context, p platform.Platform) int {
	jobs, err := c.queue.ListJobs(ctx, job.PendingStates...)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"platform": p,
		}).ErrorWithErr(err, "Emergency stop could not list queued jobs")
		return 0
	}

	removed := 0
	for _, j := range jobs {
		if j.Payload.Platform != p {
			continue
		}
		if err := c.queue.RemoveJob(ctx, j); err != nil {
			c.logger.WithFields(map[string]interface{}{
				"platform": p,
				"job_id":   j.ID,
			}).ErrorWithErr(err, "Failed to remove job during emergency stop")
			continue
		}
		removed++
	}

	metrics.RecordJobsCancelled(string(p), removed)
	c.logger.WithFields(map[string]interface{}{
		"platform": p,
		"removed":  removed,
	}).Warn("Emergency stop completed")

	return removed
}

// GetDashboardData assembles the operator snapshot. Its sub-queries are
// independent and run concurrently; nothing is written.
func (c *MonitorCoordinator) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	data := &DashboardData{GeneratedAt: c.clock.Now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.Platforms = c.fanOut(gctx, c.PlatformStatus)
		return nil
	})
	g.Go(func() error {
		data.Schedule = c.GetSlidingScaleSchedule()
		return nil
	})
	g.Go(func() error {
		alerts, err := c.alerts.Recent(gctx, dashboardAlertWindow)
		if err != nil {
			// RecentAlerts stays empty; the rest of the snapshot is still returned
			c.logger.ErrorWithErr(err, "Dashboard could not load recent alerts")
			return nil
		}
		data.RecentAlerts = alerts
		return nil
	})
	g.Go(func() error {
		data.ComplianceReport = c.engine.GenerateComplianceReport(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if data.RecentAlerts == nil {
		data.RecentAlerts = []*alert.Alert{}
	}

	for _, s := range data.Platforms {
		if s.ActivityLevel != platform.LevelIdle {
			data.Summary.ActivePlatforms++
		}
		if s.ComplianceStatus == compliance.StatusNonCompliant {
			data.Summary.ComplianceIssues++
		}
	}
	for _, a := range data.RecentAlerts {
		if a.Severity == alert.SeverityCritical {
			data.Summary.CriticalAlerts++
		}
	}

	return data, nil
}
