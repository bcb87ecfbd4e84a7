package client

import "time"

// HealthResponse represents the health probe payload
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Queue    string `json:"queue,omitempty"`
}

// Alert represents a rate-limit, compliance, policy or spam alert
type Alert struct {
	ID                  int64                  `json:"id"`
	Platform            string                 `json:"platform"`
	AlertType           string                 `json:"alertType"`
	Severity            string                 `json:"severity"` // critical, warning, info
	Status              string                 `json:"status"`   // new, acknowledged, resolved
	Message             string                 `json:"message"`
	Details             map[string]interface{} `json:"details,omitempty"`
	RateLimitPercentage *float64               `json:"rateLimitPercentage,omitempty"`
	ActionTaken         *string                `json:"actionTaken,omitempty"`
	NotifiedUsers       []int64                `json:"notifiedUsers"`
	CreatedAt           time.Time              `json:"createdAt"`
}

// AlertSummary counts alerts in a window by severity and type
type AlertSummary struct {
	Total    int            `json:"total"`
	Critical int            `json:"critical"`
	Warning  int            `json:"warning"`
	Info     int            `json:"info"`
	ByType   map[string]int `json:"byType"`
}

// PlatformStatus is the read-only monitoring status of one platform
type PlatformStatus struct {
	Platform            string    `json:"platform"`
	ActivityLevel       string    `json:"activity_level"`
	CallsLastHour       int       `json:"calls_last_hour"`
	RateLimitPercentage *float64  `json:"rate_limit_percentage"`
	NextCheckTime       time.Time `json:"next_check_time"`
	ComplianceStatus    string    `json:"compliance_status"`
	LastComplianceCheck time.Time `json:"last_compliance_check"`
	State               string    `json:"state"`
}

// ScheduleEntry is one platform's sliding-scale interval and predicted transition
type ScheduleEntry struct {
	Platform        string        `json:"platform"`
	ActivityLevel   string        `json:"activity_level"`
	CurrentInterval time.Duration `json:"current_interval"`
	NextLevel       string        `json:"next_level"`
	NextInterval    time.Duration `json:"next_interval"`
	TransitionTime  time.Time     `json:"transition_time"`
}

// Timer is one live scheduler timer
type Timer struct {
	Platform      string        `json:"platform,omitempty"`
	JobType       string        `json:"job_type"`
	ActivityLevel string        `json:"activity_level"`
	Interval      time.Duration `json:"interval,omitempty"`
	DueAt         time.Time     `json:"due_at"`
}

// Schedule combines the sliding-scale view with the live timer table
type Schedule struct {
	SlidingScale []ScheduleEntry `json:"slidingScale"`
	Timers       []Timer         `json:"timers"`
}

// ComplianceResult is one regulation evaluated against one platform
type ComplianceResult struct {
	Timestamp        time.Time `json:"timestamp"`
	Regulation       string    `json:"regulation"`
	Platform         string    `json:"platform"`
	Compliant        bool      `json:"compliant"`
	Issues           []string  `json:"issues"`
	Recommendations  []string  `json:"recommendations"`
	EvaluationErrors []string  `json:"evaluation_errors,omitempty"`
}

// ComplianceReport aggregates every regulation against every platform
type ComplianceReport struct {
	GeneratedAt     time.Time          `json:"generated_at"`
	Regulations     int                `json:"regulations"`
	Platforms       int                `json:"platforms"`
	CriticalIssues  int                `json:"critical_issues"`
	Recommendations []string           `json:"recommendations"`
	Results         []ComplianceResult `json:"results"`
}

// RecentAlert is an alert as embedded in the dashboard snapshot
type RecentAlert struct {
	ID                  int64     `json:"id"`
	Platform            string    `json:"platform"`
	AlertType           string    `json:"alert_type"`
	Severity            string    `json:"severity"`
	Status              string    `json:"status"`
	Message             string    `json:"message"`
	RateLimitPercentage *float64  `json:"rate_limit_percentage,omitempty"`
	ActionTaken         *string   `json:"action_taken,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// DashboardSummary holds the headline dashboard counters
type DashboardSummary struct {
	ActivePlatforms  int `json:"active_platforms"`
	CriticalAlerts   int `json:"critical_alerts"`
	ComplianceIssues int `json:"compliance_issues"`
}

// Dashboard is the aggregated operator snapshot
type Dashboard struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Platforms        []PlatformStatus `json:"platforms"`
	Schedule         []ScheduleEntry  `json:"schedule"`
	RecentAlerts     []RecentAlert    `json:"recent_alerts"`
	ComplianceReport ComplianceReport `json:"compliance_report"`
	Summary          DashboardSummary `json:"summary"`
}

// RateLimitSample is a parsed rate-limit reading
type RateLimitSample struct {
	Platform      string            `json:"platform"`
	CallCount     int               `json:"call_count"`
	CallsPerHour  int               `json:"calls_per_hour"`
	PercentUsed   float64           `json:"percent_used"`
	Timestamp     time.Time         `json:"timestamp"`
	RawHeaderData map[string]string `json:"raw_header_data"`
}

// IngestResult reports how the engine reacted to one upstream response
type IngestResult struct {
	Platform      string           `json:"platform"`
	CallsLastHour int              `json:"calls_last_hour"`
	Sample        *RateLimitSample `json:"sample,omitempty"`
	Action        string           `json:"action"`
	State         string           `json:"state"`
}

// SpamFlagResult reports the outcome of an emergency stop
type SpamFlagResult struct {
	Platform    string `json:"platform"`
	JobsRemoved int    `json:"jobsRemoved"`
	State       string `json:"state"`
}

// ResumeResult reports a platform's state change after resume
type ResumeResult struct {
	Platform      string `json:"platform"`
	PreviousState string `json:"previousState"`
	State         string `json:"state"`
}

// Job represents a queued monitoring job
type Job struct {
	ID         string     `json:"id"`
	JobType    string     `json:"jobType"`
	Platform   string     `json:"platform,omitempty"`
	State      string     `json:"state"`
	Manual     bool       `json:"manual"`
	DueAt      time.Time  `json:"dueAt"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// ListOptions contains common pagination options
type ListOptions struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}
