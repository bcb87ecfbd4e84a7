package compliance

import (
	"context"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// RequirementChecker decides whether a platform meets one regulatory requirement
type RequirementChecker interface {
	CheckRequirement(ctx context.Context, p platform.Platform, req Requirement) (bool, error)
}

// PolicyChecker decides whether a platform currently satisfies one policy rule
type PolicyChecker interface {
	CheckPolicy(ctx context.Context, p platform.Platform, rule PolicyRule) (bool, error)
}

// PolicyChangeDetector looks for upstream policy or terms changes
type PolicyChangeDetector interface {
	DetectChanges(ctx context.Context) ([]PolicyChange, error)
}

// OptimisticChecker passes every requirement and policy rule. It is the
// default until a real rule engine is wired in.
type OptimisticChecker struct{}

// CheckRequirement always reports the requirement as met
func (OptimisticChecker) CheckRequirement(ctx context.Context, p platform.Platform, req Requirement) (bool, error) {
	return true, nil
}

// CheckPolicy always reports the rule as satisfied
func (OptimisticChecker) CheckPolicy(ctx context.Context, p platform.Platform, rule PolicyRule) (bool, error) {
	return true, nil
}

// NoopDetector reports no policy changes
type NoopDetector struct{}

// DetectChanges returns an empty result
func (NoopDetector) DetectChanges(ctx context.Context) ([]PolicyChange, error) {
	return nil, nil
}
