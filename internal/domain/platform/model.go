package platform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Platform identifies an external integration
type Platform string

// Supported platforms
const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	WhatsApp  Platform = "whatsapp"
	LinkedIn  Platform = "linkedin"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
)

// All returns the fixed list of monitored platforms
func All() []Platform {
	return []Platform{Facebook, Instagram, Twitter, WhatsApp, LinkedIn, TikTok, YouTube}
}

// IsValid checks if the platform is one of the known integrations
func (p Platform) IsValid() bool {
	switch p {
	case Facebook, Instagram, Twitter, WhatsApp, LinkedIn, TikTok, YouTube:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// Parse converts a string into a Platform
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// ActivityLevel is a discretized call-volume tier
type ActivityLevel int

// Activity levels, ordered by call volume
const (
	LevelIdle ActivityLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = [...]string{"idle", "low", "medium", "high", "critical"}

func (l ActivityLevel) String() string {
	if l < LevelIdle || l > LevelCritical {
		return "unknown"
	}
	return levelNames[l]
}

// MarshalJSON encodes the level by name
func (l ActivityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name
func (l *ActivityLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range levelNames {
		if name == s {
			*l = ActivityLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown activity level %q", s)
}

// ThresholdAction is the response to a rate-limit percentage
type ThresholdAction int

// Threshold actions, ordered by severity
const (
	ActionNormal ThresholdAction = iota
	ActionThrottle
	ActionPause
	ActionStop
)

var actionNames = [...]string{"normal", "throttle", "pause", "stop"}

func (a ThresholdAction) String() string {
	if a < ActionNormal || a > ActionStop {
		return "unknown"
	}
	return actionNames[a]
}

// MarshalJSON encodes the action by name
func (a ThresholdAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// ControlState is the per-platform operating state driven by threshold
// actions and spam flags. It only ever moves up the ladder on its own.
type ControlState int

// Control states
const (
	StateNormal ControlState = iota
	StateThrottled
	StatePaused
	StateStopped
)

var stateNames = [...]string{"normal", "throttled", "paused", "stopped"}

func (s ControlState) String() string {
	if s < StateNormal || s > StateStopped {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalJSON encodes the state by name
func (s ControlState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// StateFor maps a threshold action onto the control state it implies
func StateFor(a ThresholdAction) ControlState {
	switch a {
	case ActionStop:
		return StateStopped
	case ActionPause:
		return StatePaused
	case ActionThrottle:
		return StateThrottled
	default:
		return StateNormal
	}
}

// Rate-limit thresholds in percent of quota
const (
	ThrottleThreshold = 75.0
	PauseThreshold    = 90.0
	StopThreshold     = 100.0
)

// CallWindow is the sliding window over which calls are counted
const CallWindow = time.Hour

// LevelForCallsPerHour maps a call count onto its activity level.
// Breakpoints: 0 idle, 1-10 low, 11-50 medium, 51-150 high, >150 critical.
func LevelForCallsPerHour(callsPerHour int) ActivityLevel {
	switch {
	case callsPerHour <= 0:
		return LevelIdle
	case callsPerHour <= 10:
		return LevelLow
	case callsPerHour <= 50:
		return LevelMedium
	case callsPerHour <= 150:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// RecommendedInterval returns how often a platform at level should be checked
func RecommendedInterval(level ActivityLevel) time.Duration {
	switch level {
	case LevelIdle:
		return 24 * time.Hour
	case LevelLow:
		return time.Hour
	case LevelMedium:
		return 5 * time.Minute
	case LevelHigh:
		return time.Minute
	case LevelCritical:
		return 10 * time.Second
	default:
		return time.Hour
	}
}

// ActionForUsage compares percentUsed against the thresholds, most severe first
func ActionForUsage(percentUsed float64) ThresholdAction {
	switch {
	case percentUsed >= StopThreshold:
		return ActionStop
	case percentUsed >= PauseThreshold:
		return ActionPause
	case percentUsed >= ThrottleThreshold:
		return ActionThrottle
	default:
		return ActionNormal
	}
}
