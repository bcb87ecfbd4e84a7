package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
)

// RateLimitSample is a snapshot derived from a single upstream response
type RateLimitSample struct {
	Platform      platform.Platform `json:"platform"`
	CallCount     int               `json:"call_count"`
	CallsPerHour  int               `json:"calls_per_hour"`
	PercentUsed   float64           `json:"percent_used"`
	Timestamp     time.Time         `json:"timestamp"`
	RawHeaderData map[string]string `json:"raw_header_data"`
}

// ActivityMetrics summarises the current activity of one platform
type ActivityMetrics struct {
	Platform            platform.Platform      `json:"platform"`
	CallsLastHour       int                    `json:"calls_last_hour"`
	Level               platform.ActivityLevel `json:"level"`
	RecommendedInterval time.Duration          `json:"recommended_interval"`
	NextCheckTime       time.Time              `json:"next_check_time"`
}

// callLedger holds call timestamps within the trailing window, oldest first
type callLedger struct {
	mu    sync.Mutex
	calls []time.Time
}

// prune drops entries older than the window ending at now
func (l *callLedger) prune(now time.Time) {
	cutoff := now.Add(-platform.CallWindow)
	i := sort.Search(len(l.calls), func(i int) bool {
		return !l.calls[i].Before(cutoff)
	})
	if i > 0 {
		l.calls = append(l.calls[:0:0], l.calls[i:]...)
	}
}

func (l *callLedger) add(t time.Time) {
	n := len(l.calls)
	if n == 0 || !t.Before(l.calls[n-1]) {
		l.calls = append(l.calls, t)
		return
	}
	i := sort.Search(n, func(i int) bool { return l.calls[i].After(t) })
	l.calls = append(l.calls, time.Time{})
	copy(l.calls[i+1:], l.calls[i:])
	l.calls[i] = t
}

// ActivityTracker turns per-platform call history into cadence decisions
type ActivityTracker struct {
	alerts  *AlertService
	parsers map[platform.Platform]headerParser
	clock   clock.Clock
	logger  *logger.Logger

	mu      sync.RWMutex
	ledgers map[platform.Platform]*callLedger
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(alerts *AlertService, clk clock.Clock, log *logger.Logger) *ActivityTracker {
	return &ActivityTracker{
		alerts:  alerts,
		parsers: defaultHeaderParsers(),
		clock:   clk,
		logger:  log,
		ledgers: make(map[platform.Platform]*callLedger),
	}
}

func (t *ActivityTracker) ledger(p platform.Platform) *callLedger {
	t.mu.RLock()
	l, ok := t.ledgers[p]
	t.mu.RUnlock()
	if ok {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok = t.ledgers[p]; !ok {
		l = &callLedger{}
		t.ledgers[p] = l
	}
	return l
}

// TrackCall records one upstream call for the platform at the current time
func (t *ActivityTracker) TrackCall(p platform.Platform) {
	now := t.clock.Now()
	l := t.ledger(p)

	l.mu.Lock()
	l.prune(now)
	l.add(now)
	count := len(l.calls)
	l.mu.Unlock()

	metrics.RecordTrackedCall(string(p))
	metrics.SetActivityLevel(string(p), int(platform.LevelForCallsPerHour(count)))
}

// CallsLastHour counts calls within the trailing hour
func (t *ActivityTracker) CallsLastHour(p platform.Platform) int {
	now := t.clock.Now()
	l := t.ledger(p)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(now)
	return len(l.calls)
}

// ActivityLevel returns the platform's current activity level
func (t *ActivityTracker) ActivityLevel(p platform.Platform) platform.ActivityLevel {
	return platform.LevelForCallsPerHour(t.CallsLastHour(p))
}

// RecommendedInterval returns the check interval for a level
func (t *ActivityTracker) RecommendedInterval(level platform.ActivityLevel) time.Duration {
	return platform.RecommendedInterval(level)
}

// NextCheckTime returns when a platform at level should next be checked
func (t *ActivityTracker) NextCheckTime(level platform.ActivityLevel) time.Time {
	return t.clock.Now().Add(platform.RecommendedInterval(level))
}

// GetActivityMetrics returns the activity summary for a platform
func (t *ActivityTracker) GetActivityMetrics(p platform.Platform) ActivityMetrics {
	calls := t.CallsLastHour(p)
	level := platform.LevelForCallsPerHour(calls)
	return ActivityMetrics{
		Platform:            p,
		CallsLastHour:       calls,
		Level:               level,
		RecommendedInterval: platform.RecommendedInterval(level),
		NextCheckTime:       t.NextCheckTime(level),
	}
}

// CheckThresholds maps percentUsed onto a threshold action. Every non-normal
// action is recorded as an alert before returning.
func (t *ActivityTracker) CheckThresholds(ctx context.Context, p platform.Platform, percentUsed float64, details map[string]interface{}) platform.ThresholdAction {
	action := platform.ActionForUsage(percentUsed)
	metrics.SetRateLimitUsage(string(p), percentUsed)
	if action == platform.ActionNormal {
		return action
	}

	var (
		severity = alert.SeverityCritical
		taken    string
		message  string
	)
	switch action {
	case platform.ActionStop:
		taken = alert.ActionStopped
		message = fmt.Sprintf("%s rate limit exhausted at %.1f%%, stopping API calls", p, percentUsed)
	case platform.ActionPause:
		taken = alert.ActionPaused
		message = fmt.Sprintf("%s rate limit at %.1f%%, pausing API calls", p, percentUsed)
	default:
		severity = alert.SeverityWarning
		taken = alert.ActionThrottled
		message = fmt.Sprintf("%s rate limit at %.1f%%, throttling API calls", p, percentUsed)
	}

	if details == nil {
		details = map[string]interface{}{}
	}

	t.alerts.Record(ctx, &alert.Alert{
		Platform:            p,
		AlertType:           alert.TypeRateLimit,
		Severity:            severity,
		Message:             message,
		Details:             details,
		RateLimitPercentage: alert.Float(percentUsed),
		ActionTaken:         alert.String(taken),
	})

	metrics.RecordThresholdAction(string(p), action.String())
	t.logger.WithFields(map[string]interface{}{
		"platform":     p,
		"percent_used": percentUsed,
		"action":       action.String(),
	}).Warn("Rate limit threshold crossed")

	return action
}

// ParsePlatformHeaders extracts a rate-limit sample from response headers.
// It returns nil when the platform has no parser or the headers carry no signal.
func (t *ActivityTracker) ParsePlatformHeaders(p platform.Platform, headers map[string]string) *RateLimitSample {
	parse, ok := t.parsers[p]
	if !ok {
		return nil
	}

	percent, raw, ok := parse(headers)
	if !ok {
		return nil
	}

	calls := t.CallsLastHour(p)
	return &RateLimitSample{
		Platform:      p,
		CallCount:     calls,
		CallsPerHour:  calls,
		PercentUsed:   percent,
		Timestamp:     t.clock.Now(),
		RawHeaderData: raw,
	}
}
