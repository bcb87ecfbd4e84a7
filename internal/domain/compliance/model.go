package compliance

import (
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// Regulation identifies a regulatory framework in the static catalog
type Regulation string

// Regulations
const (
	RegulationGDPR    Regulation = "GDPR"
	RegulationCCPA    Regulation = "CCPA"
	RegulationCOPPA   Regulation = "COPPA"
	RegulationCANSPAM Regulation = "CAN-SPAM"
	RegulationFTC     Regulation = "FTC"
	RegulationDSA     Regulation = "DSA"
)

// Requirement is a read-only catalog entry
type Requirement struct {
	Regulation     Regulation `json:"regulation"`
	Requirement    string     `json:"requirement"`
	Recommendation string     `json:"recommendation"`
}

// Enforcement describes what happens when a policy rule fails
type Enforcement string

const (
	// EnforcementBlocking failures are violations that risk account suspension
	EnforcementBlocking Enforcement = "blocking"
	// EnforcementAdvisory failures are warnings
	EnforcementAdvisory Enforcement = "advisory"
)

// PolicyRule is a platform-specific policy entry
type PolicyRule struct {
	ID          string            `json:"id"`
	Platform    platform.Platform `json:"platform"`
	Description string            `json:"description"`
	Enforcement Enforcement       `json:"enforcement"`
}

// CheckResult is the outcome of evaluating one regulation against one platform
type CheckResult struct {
	Timestamp       time.Time         `json:"timestamp"`
	Regulation      Regulation        `json:"regulation"`
	Platform        platform.Platform `json:"platform"`
	Compliant       bool              `json:"compliant"`
	Issues          []string          `json:"issues"`
	Recommendations []string          `json:"recommendations"`
	// EvaluationErrors lists requirements whose check could not be completed.
	// They are not counted as met.
	EvaluationErrors []string `json:"evaluation_errors,omitempty"`
}

// PolicyCheckResult is the outcome of evaluating a platform's policy list
type PolicyCheckResult struct {
	Platform   platform.Platform `json:"platform"`
	Compliant  bool              `json:"compliant"`
	Violations []string          `json:"violations"`
	Warnings   []string          `json:"warnings"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Impact levels for policy changes
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// PolicyChange is a detected external policy or terms-of-service change
type PolicyChange struct {
	Platform       platform.Platform `json:"platform"`
	ChangeType     string            `json:"change_type"`
	ChangeDate     time.Time         `json:"change_date"`
	Summary        string            `json:"summary"`
	ImpactLevel    string            `json:"impact_level"`
	ActionRequired bool              `json:"action_required"`
}

// Report aggregates regulation checks across all platforms
type Report struct {
	GeneratedAt     time.Time     `json:"generated_at"`
	Regulations     int           `json:"regulations"`
	Platforms       int           `json:"platforms"`
	CriticalIssues  int           `json:"critical_issues"`
	Recommendations []string      `json:"recommendations"`
	Results         []CheckResult `json:"results"`
}

// Compliance status strings used in monitoring status records
const (
	StatusCompliant    = "compliant"
	StatusNonCompliant = "non_compliant"
)
