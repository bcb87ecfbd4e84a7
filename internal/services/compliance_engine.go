package services

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/compliance"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
)

// ComplianceEngine evaluates the regulation and policy catalogs and records
// spam-flag incidents
type ComplianceEngine struct {
	platforms    []platform.Platform
	requirements compliance.RequirementChecker
	policies     compliance.PolicyChecker
	detector     compliance.PolicyChangeDetector
	alerts       *AlertService
	clock        clock.Clock
	logger       *logger.Logger
}

// ComplianceOption customises a ComplianceEngine
type ComplianceOption func(*ComplianceEngine)

// WithRequirementChecker replaces the optimistic requirement checker
func WithRequirementChecker(c compliance.RequirementChecker) ComplianceOption {
	return func(e *ComplianceEngine) { e.requirements = c }
}

// WithPolicyChecker replaces the optimistic policy checker
func WithPolicyChecker(c compliance.PolicyChecker) ComplianceOption {
	return func(e *ComplianceEngine) { e.policies = c }
}

// WithPolicyChangeDetector wires an upstream policy change detector
func WithPolicyChangeDetector(d compliance.PolicyChangeDetector) ComplianceOption {
	return func(e *ComplianceEngine) { e.detector = d }
}

// NewComplianceEngine creates a compliance engine over the given platforms
func NewComplianceEngine(platforms []platform.Platform, alerts *AlertService, clk clock.Clock, log *logger.Logger, opts ...ComplianceOption) *ComplianceEngine {
	e := &ComplianceEngine{
		platforms:    platforms,
		requirements: compliance.OptimisticChecker{},
		policies:     compliance.OptimisticChecker{},
		detector:     compliance.NoopDetector{},
		alerts:       alerts,
		clock:        clk,
		logger:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// targets returns the single platform when given, otherwise all platforms
func (e *ComplianceEngine) targets(p *platform.Platform) []platform.Platform {
	if p != nil {
		return []platform.Platform{*p}
	}
	return e.platforms
}

// EvaluateRegulation checks a regulation against platforms without recording anything
func (e *ComplianceEngine) EvaluateRegulation(ctx context.Context, reg compliance.Regulation, p *platform.Platform) []compliance.CheckResult {
	requirements := compliance.Requirements(reg)
	targets := e.targets(p)
	results := make([]compliance.CheckResult, 0, len(targets))

	for _, target := range targets {
		result := compliance.CheckResult{
			Timestamp:       e.clock.Now(),
			Regulation:      reg,
			Platform:        target,
			Issues:          []string{},
			Recommendations: []string{},
		}

		for _, req := range requirements {
			met, err := e.requirements.CheckRequirement(ctx, target, req)
			if err != nil {
				e.logger.WithFields(map[string]interface{}{
					"regulation":  reg,
					"platform":    target,
					"requirement": req.Requirement,
				}).ErrorWithErr(err, "Requirement evaluation failed")
				result.EvaluationErrors = append(result.EvaluationErrors, req.Requirement)
				continue
			}
			if !met {
				result.Issues = append(result.Issues, req.Requirement)
				result.Recommendations = append(result.Recommendations, req.Recommendation)
			}
		}

		result.Compliant = len(result.Issues) == 0 && len(result.EvaluationErrors) == 0
		results = append(results, result)
	}

	return results
}

// CheckRegulationCompliance evaluates a regulation for one platform, or all
// platforms when p is nil, and records a warning alert per non-compliant result
func (e *ComplianceEngine) CheckRegulationCompliance(ctx context.Context, reg compliance.Regulation, p *platform.Platform) []compliance.CheckResult {
	results := e.EvaluateRegulation(ctx, reg, p)

	for _, r := range results {
		if r.Compliant {
			continue
		}
		e.alerts.Record(ctx, &alert.Alert{
			Platform:  r.Platform,
			AlertType: alert.TypeComplianceIssue,
			Severity:  alert.SeverityWarning,
			Message:   fmt.Sprintf("%s compliance issues on %s", reg, r.Platform),
			Details: map[string]interface{}{
				"regulation":        string(reg),
				"issues":            r.Issues,
				"recommendations":   r.Recommendations,
				"evaluation_errors": r.EvaluationErrors,
			},
		})
	}

	return results
}

// EvaluatePlatformPolicies checks a platform's policy list without recording anything
func (e *ComplianceEngine) EvaluatePlatformPolicies(ctx context.Context, p platform.Platform) compliance.PolicyCheckResult {
	result := compliance.PolicyCheckResult{
		Platform:   p,
		Violations: []string{},
		Warnings:   []string{},
		CheckedAt:  e.clock.Now(),
	}

	for _, rule := range compliance.PolicyRules(p) {
		ok, err := e.policies.CheckPolicy(ctx, p, rule)
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"platform": p,
				"rule":     rule.ID,
			}).ErrorWithErr(err, "Policy evaluation failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: could not be evaluated", rule.Description))
			continue
		}
		if ok {
			continue
		}
		if rule.Enforcement == compliance.EnforcementBlocking {
			result.Violations = append(result.Violations, rule.Description)
		} else {
			result.Warnings = append(result.Warnings, rule.Description)
		}
	}

	result.Compliant = len(result.Violations) == 0
	return result
}

// CheckPlatformPolicies evaluates a platform's policy list and records a
// critical alert for each violation as soon as it is found
func (e *ComplianceEngine) CheckPlatformPolicies(ctx context.Context, p platform.Platform) compliance.PolicyCheckResult {
	result := e.EvaluatePlatformPolicies(ctx, p)

	for _, violation := range result.Violations {
		e.alerts.Record(ctx, &alert.Alert{
			Platform:  p,
			AlertType: alert.TypePolicyViolation,
			Severity:  alert.SeverityCritical,
			Message:   fmt.Sprintf("%s policy violation: %s", p, violation),
			Details: map[string]interface{}{
				"violation": violation,
				"warnings":  result.Warnings,
			},
		})
	}

	return result
}

// DetectPolicyChanges asks the wired detector for upstream changes and records
// the ones that need action. No detector means no changes.
func (e *ComplianceEngine) DetectPolicyChanges(ctx context.Context) []compliance.PolicyChange {
	changes, err := e.detector.DetectChanges(ctx)
	if err != nil {
		e.logger.ErrorWithErr(err, "Policy change detection failed")
		return []compliance.PolicyChange{}
	}
	if changes == nil {
		return []compliance.PolicyChange{}
	}

	for _, c := range changes {
		if !c.ActionRequired {
			continue
		}
		severity := alert.SeverityWarning
		if c.ImpactLevel == compliance.ImpactHigh {
			severity = alert.SeverityCritical
		}
		e.alerts.Record(ctx, &alert.Alert{
			Platform:  c.Platform,
			AlertType: alert.TypePolicyChange,
			Severity:  severity,
			Message:   fmt.Sprintf("%s policy change: %s", c.Platform, c.Summary),
			Details: map[string]interface{}{
				"change_type":  c.ChangeType,
				"change_date":  c.ChangeDate,
				"impact_level": c.ImpactLevel,
			},
		})
	}

	e.logger.WithFields(map[string]interface{}{
		"changes": len(changes),
	}).Info("Policy change detection completed")

	return changes
}

// HandleSpamFlag records a spam-flag incident. It does not touch scheduled
// work; stopping the platform is the coordinator's job.
func (e *ComplianceEngine) HandleSpamFlag(ctx context.Context, p platform.Platform, errorCode, errorMessage string) {
	e.logger.WithFields(map[string]interface{}{
		"platform":      p,
		"error_code":    errorCode,
		"error_message": errorMessage,
	}).Error("Platform flagged account activity as spam")

	e.alerts.Record(ctx, &alert.Alert{
		Platform:    p,
		AlertType:   alert.TypeSpamFlag,
		Severity:    alert.SeverityCritical,
		Message:     fmt.Sprintf("%s flagged activity as spam (%s): %s", p, errorCode, errorMessage),
		ActionTaken: alert.String(alert.ActionStopped),
		Details: map[string]interface{}{
			"error_code":    errorCode,
			"error_message": errorMessage,
		},
	})
}

// GenerateComplianceReport evaluates every regulation against every platform
func (e *ComplianceEngine) GenerateComplianceReport(ctx context.Context) compliance.Report {
	regulations := compliance.Regulations()
	report := compliance.Report{
		GeneratedAt:     e.clock.Now(),
		Regulations:     len(regulations),
		Platforms:       len(e.platforms),
		Recommendations: []string{},
		Results:         []compliance.CheckResult{},
	}

	seen := make(map[string]bool)
	for _, reg := range regulations {
		for _, r := range e.EvaluateRegulation(ctx, reg, nil) {
			report.Results = append(report.Results, r)
			if !r.Compliant {
				report.CriticalIssues++
			}
			for _, rec := range r.Recommendations {
				if !seen[rec] {
					seen[rec] = true
					report.Recommendations = append(report.Recommendations, rec)
				}
			}
		}
	}

	return report
}
