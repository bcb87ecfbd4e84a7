package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/compliance"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/domain/usage"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
)

// MockAlertRepository is a mock implementation of alert.Repository
type MockAlertRepository struct {
	mu          sync.Mutex
	Alerts      map[int64]*alert.Alert
	NextID      int64
	InsertError error
	ListError   error
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{
		Alerts: make(map[int64]*alert.Alert),
		NextID: 1,
	}
}

func (m *MockAlertRepository) Insert(ctx context.Context, a *alert.Alert) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	id := m.NextID
	m.NextID++
	c := *a
	c.ID = id
	m.Alerts[id] = &c
	return id, nil
}

func (m *MockAlertRepository) ListSince(ctx context.Context, since time.Time, filter alert.Filter) ([]*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*alert.Alert
	for _, a := range m.Alerts {
		if a.CreatedAt.Before(since) || !filter.Matches(a) {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alerts[id]
	if !ok {
		return nil, errors.NotFound("Alert")
	}
	c := *a
	return &c, nil
}

func (m *MockAlertRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alerts[id]
	if !ok {
		return errors.NotFound("Alert")
	}
	a.Status = status
	return nil
}

// Count returns how many stored alerts match filter
func (m *MockAlertRepository) Count(filter alert.Filter) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.Alerts {
		if filter.Matches(a) {
			n++
		}
	}
	return n
}

// MockUsageRepository is a mock implementation of usage.Repository
type MockUsageRepository struct {
	mu          sync.Mutex
	Records     map[string]*usage.Record
	UpsertError error
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{Records: make(map[string]*usage.Record)}
}

func usageKey(p platform.Platform, windowStart time.Time) string {
	return fmt.Sprintf("%s|%d", p, windowStart.Unix())
}

func (m *MockUsageRepository) Upsert(ctx context.Context, r *usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	c := *r
	m.Records[usageKey(r.Platform, r.WindowStart)] = &c
	return nil
}

func (m *MockUsageRepository) ListSince(ctx context.Context, p platform.Platform, since time.Time) ([]*usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*usage.Record
	for _, r := range m.Records {
		if r.Platform == p && !r.WindowStart.Before(since) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowStart.Before(out[j].WindowStart) })
	return out, nil
}

// StubPolicyChecker fails every blocking rule for the platforms in Failing
type StubPolicyChecker struct {
	Failing map[platform.Platform]bool
	Err     error
}

func (s StubPolicyChecker) CheckPolicy(ctx context.Context, p platform.Platform, rule compliance.PolicyRule) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	if s.Failing[p] && rule.Enforcement == compliance.EnforcementBlocking {
		return false, nil
	}
	return true, nil
}

// StubRequirementChecker fails every requirement for the platforms in Failing
type StubRequirementChecker struct {
	Failing map[platform.Platform]bool
	Err     error
}

func (s StubRequirementChecker) CheckRequirement(ctx context.Context, p platform.Platform, req compliance.Requirement) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return !s.Failing[p], nil
}

// StubDetector returns fixed policy changes
type StubDetector struct {
	Changes []compliance.PolicyChange
	Err     error
}

func (s StubDetector) DetectChanges(ctx context.Context) ([]compliance.PolicyChange, error) {
	return s.Changes, s.Err
}
