package alert

import (
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// Alert is a persisted incident record surfaced to operators
type Alert struct {
	ID                  int64                  `json:"id"`
	Platform            platform.Platform      `json:"platform"`
	AlertType           string                 `json:"alert_type"`
	Severity            string                 `json:"severity"`
	Status              string                 `json:"status"`
	Message             string                 `json:"message"`
	Details             map[string]interface{} `json:"details,omitempty"`
	RateLimitPercentage *float64               `json:"rate_limit_percentage,omitempty"`
	ActionTaken         *string                `json:"action_taken,omitempty"`
	NotifiedUsers       []int64                `json:"notified_users"`
	CreatedAt           time.Time              `json:"created_at"`
}

// Alert types
const (
	TypeRateLimit       = "rate_limit"
	TypeComplianceIssue = "compliance_issue"
	TypePolicyViolation = "policy_violation"
	TypePolicyChange    = "policy_change"
	TypeSpamFlag        = "spam_flag"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert status. Transitions are new -> acknowledged -> resolved and are
// made by operators, never by the monitoring core.
const (
	StatusNew          = "new"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// Actions recorded on rate-limit and spam alerts
const (
	ActionThrottled = "throttled"
	ActionPaused    = "paused"
	ActionStopped   = "stopped"
)

// Filter contains alert filtering options
type Filter struct {
	Platform  platform.Platform
	AlertType string
	Severity  string
	Status    string
}

// Matches reports whether a satisfies the filter
func (f Filter) Matches(a *Alert) bool {
	if f.Platform != "" && a.Platform != f.Platform {
		return false
	}
	if f.AlertType != "" && a.AlertType != f.AlertType {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// ValidTransition reports whether an operator may move an alert from one status to another
func ValidTransition(from, to string) bool {
	switch from {
	case StatusNew:
		return to == StatusAcknowledged || to == StatusResolved
	case StatusAcknowledged:
		return to == StatusResolved
	default:
		return false
	}
}

// Float returns a pointer to v, for the optional percentage field
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, for the optional action field
func String(s string) *string { return &s }
