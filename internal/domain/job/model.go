package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// JobType represents the families of monitoring work
type JobType string

const (
	JobTypePlatformMonitor       JobType = "platform_monitor"
	JobTypeComplianceCheck       JobType = "compliance_check"
	JobTypePolicyChangeDetection JobType = "policy_change_detection"
	JobTypeDashboardReport       JobType = "dashboard_report"
)

// ManualPrefix marks jobs enqueued by an operator rather than a timer
const ManualPrefix = "manual-"

// DefaultSchedules are the cron expressions of the fixed-cadence job families.
// Platform monitor jobs follow the activity sliding scale instead.
var DefaultSchedules = map[JobType]string{
	JobTypeComplianceCheck:       "0 9 * * *",   // Daily at 9 AM
	JobTypePolicyChangeDetection: "0 */6 * * *", // Every 6 hours
	JobTypeDashboardReport:       "0 * * * *",   // Hourly
}

// ScheduledJob is the payload placed on the work queue
type ScheduledJob struct {
	Platform       platform.Platform      `json:"platform,omitempty"`
	JobType        JobType                `json:"job_type"`
	ActivityLevel  platform.ActivityLevel `json:"activity_level"`
	DueAt          time.Time              `json:"due_at"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Manual         bool                   `json:"manual,omitempty"`
}

// State is the lifecycle state of a queued job
type State string

const (
	StateWaiting   State = "waiting"
	StateDelayed   State = "delayed"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// PendingStates are the states an emergency stop clears
var PendingStates = []State{StateWaiting, StateActive, StateDelayed}

// IsTerminal checks if the state is completed or failed
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is a queue entry wrapping a ScheduledJob
type Job struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Payload    ScheduledJob `json:"payload"`
	State      State        `json:"state"`
	DueAt      time.Time    `json:"due_at"`
	Attempts   int          `json:"attempts"`
	Error      string       `json:"error,omitempty"`
	Result     *JobResult   `json:"result,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// JobResult represents the result of a job execution
type JobResult struct {
	Success     bool                   `json:"success"`
	IssuesFound int                    `json:"issues_found,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// IsValid checks if the job type is known
func (jt JobType) IsValid() bool {
	switch jt {
	case JobTypePlatformMonitor, JobTypeComplianceCheck,
		JobTypePolicyChangeDetection, JobTypeDashboardReport:
		return true
	default:
		return false
	}
}

// String returns the string representation of the job type
func (jt JobType) String() string {
	return string(jt)
}

// IsPerPlatform reports whether the job family runs one timer per platform
func (jt JobType) IsPerPlatform() bool {
	return jt == JobTypePlatformMonitor
}

// IdempotencyKey builds the natural key of a scheduled firing
func IdempotencyKey(jobType JobType, p platform.Platform, dueAt time.Time) string {
	scope := string(p)
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("%s:%s:%d", jobType, scope, dueAt.Unix())
}

// IsManual reports whether a job ID carries the manual trigger prefix
func IsManual(id string) bool {
	return strings.HasPrefix(id, ManualPrefix)
}
