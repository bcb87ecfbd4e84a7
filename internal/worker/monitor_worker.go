package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/ratewatch/internal/domain/compliance"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/ratewatch/internal/services"
)

// Defaults for Config
const (
	DefaultConcurrency         = 5
	DefaultExecutionsPerMinute = 30
	DefaultPollInterval        = time.Second
)

// Config controls the worker pool
type Config struct {
	Concurrency         int
	ExecutionsPerMinute int
	PollInterval        time.Duration
}

// MonitorWorker consumes monitoring jobs from the queue
type MonitorWorker struct {
	queue       job.Queue
	coordinator *services.MonitorCoordinator
	engine      *services.ComplianceEngine
	scheduler   *services.JobScheduler
	limiter     *rate.Limiter
	cfg         Config
	logger      *logger.Logger
}

// NewMonitorWorker creates a new worker pool. scheduler may be nil, in which
// case no activity feedback is sent after platform checks.
func NewMonitorWorker(
	queue job.Queue,
	coordinator *services.MonitorCoordinator,
	engine *services.ComplianceEngine,
	scheduler *services.JobScheduler,
	cfg Config,
	log *logger.Logger,
) *MonitorWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ExecutionsPerMinute <= 0 {
		cfg.ExecutionsPerMinute = DefaultExecutionsPerMinute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &MonitorWorker{
		queue:       queue,
		coordinator: coordinator,
		engine:      engine,
		scheduler:   scheduler,
		limiter:     newExecutionLimiter(cfg.ExecutionsPerMinute),
		cfg:         cfg,
		logger:      log,
	}
}

// newExecutionLimiter spaces executions evenly so that no 60s window holds
// more than perMinute of them
func newExecutionLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Start runs the pool until ctx is cancelled
func (w *MonitorWorker) Start(ctx context.Context) {
	w.logger.WithFields(map[string]interface{}{
		"concurrency":           w.cfg.Concurrency,
		"executions_per_minute": w.cfg.ExecutionsPerMinute,
	}).Info("Starting monitor worker")

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	w.logger.Info("Monitor worker stopped")
}

func (w *MonitorWorker) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// drain everything ready before sleeping
		for {
			processed, err := w.ProcessNext(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.WithFields(map[string]interface{}{
					"worker": id,
				}).ErrorWithErr(err, "Failed to process job")
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// ProcessNext waits for an execution slot, then claims one ready job and runs
// it. It reports whether a job was claimed. Handler errors mark the job failed
// and are returned.
func (w *MonitorWorker) ProcessNext(ctx context.Context) (bool, error) {
	// jobs stay queued, and removable, until a slot is free
	if err := w.limiter.Wait(ctx); err != nil {
		return false, err
	}

	j, err := w.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if j == nil {
		return false, nil
	}

	start := time.Now()
	result, runErr := w.Process(ctx, j)
	duration := time.Since(start)

	fields := map[string]interface{}{
		"job_id":      j.ID,
		"job_type":    j.Payload.JobType,
		"platform":    j.Payload.Platform,
		"duration_ms": duration.Milliseconds(),
	}

	if runErr != nil {
		metrics.RecordJobProcessed(j.Payload.JobType.String(), string(job.StateFailed), duration)
		w.logger.WithFields(fields).ErrorWithErr(runErr, "Job failed")
		if err := w.queue.Fail(ctx, j, runErr); err != nil {
			w.logger.WithFields(fields).ErrorWithErr(err, "Failed to mark job failed")
		}
		return true, runErr
	}

	metrics.RecordJobProcessed(j.Payload.JobType.String(), string(job.StateCompleted), duration)
	w.logger.WithFields(fields).Debug("Job completed")
	if err := w.queue.Complete(ctx, j, result); err != nil {
		w.logger.WithFields(fields).ErrorWithErr(err, "Failed to mark job completed")
		return true, err
	}
	return true, nil
}

// Process dispatches a job to the operation for its type
func (w *MonitorWorker) Process(ctx context.Context, j *job.Job) (*job.JobResult, error) {
	switch j.Payload.JobType {
	case job.JobTypePlatformMonitor:
		return w.monitorPlatform(ctx, j.Payload.Platform)
	case job.JobTypeComplianceCheck:
		return w.checkCompliance(ctx, j.Payload.Platform), nil
	case job.JobTypePolicyChangeDetection:
		changes := w.engine.DetectPolicyChanges(ctx)
		return &job.JobResult{
			Success:     true,
			IssuesFound: len(changes),
			Details:     map[string]interface{}{"changes": changes},
		}, nil
	case job.JobTypeDashboardReport:
		data, err := w.coordinator.GetDashboardData(ctx)
		if err != nil {
			return nil, err
		}
		return &job.JobResult{
			Success:     true,
			IssuesFound: data.Summary.ComplianceIssues,
			Details: map[string]interface{}{
				"active_platforms":  data.Summary.ActivePlatforms,
				"critical_alerts":   data.Summary.CriticalAlerts,
				"compliance_issues": data.Summary.ComplianceIssues,
			},
		}, nil
	default:
		return nil, errors.UnknownJobType(j.Payload.JobType.String())
	}
}

func (w *MonitorWorker) monitorPlatform(ctx context.Context, p platform.Platform) (*job.JobResult, error) {
	if !p.IsValid() {
		return nil, errors.UnknownPlatform(string(p))
	}

	if w.coordinator.IsHalted(p) {
		w.logger.WithFields(map[string]interface{}{
			"platform": p,
		}).Warn("Platform stopped, skipping monitor job")
		return &job.JobResult{
			Success: true,
			Details: map[string]interface{}{"skipped": "platform stopped"},
		}, nil
	}

	status := w.coordinator.MonitorPlatform(ctx, p)
	if w.scheduler != nil {
		w.scheduler.Observe(p, status.ActivityLevel)
	}

	issues := 0
	if status.ComplianceStatus == compliance.StatusNonCompliant {
		issues = 1
	}
	return &job.JobResult{
		Success:     true,
		IssuesFound: issues,
		Details: map[string]interface{}{
			"activity_level":    status.ActivityLevel.String(),
			"calls_last_hour":   status.CallsLastHour,
			"compliance_status": status.ComplianceStatus,
			"state":             status.State.String(),
		},
	}, nil
}

// checkCompliance runs every regulation and the platform policy lists. A job
// scoped to one platform checks only that platform.
func (w *MonitorWorker) checkCompliance(ctx context.Context, p platform.Platform) *job.JobResult {
	var target *platform.Platform
	platforms := w.coordinator.Platforms()
	if p != "" {
		target = &p
		platforms = []platform.Platform{p}
	}

	issues := 0
	for _, reg := range compliance.Regulations() {
		for _, r := range w.engine.CheckRegulationCompliance(ctx, reg, target) {
			if !r.Compliant {
				issues++
			}
		}
	}
	violations := 0
	for _, pl := range platforms {
		violations += len(w.engine.CheckPlatformPolicies(ctx, pl).Violations)
	}

	return &job.JobResult{
		Success:     true,
		IssuesFound: issues + violations,
		Details: map[string]interface{}{
			"regulation_issues": issues,
			"policy_violations": violations,
		},
	}
}
