package platform

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLevelForCallsPerHour(t *testing.T) {
	tests := []struct {
		calls int
		want  ActivityLevel
	}{
		{0, LevelIdle},
		{1, LevelLow},
		{10, LevelLow},
		{11, LevelMedium},
		{50, LevelMedium},
		{51, LevelHigh},
		{150, LevelHigh},
		{151, LevelCritical},
		{10000, LevelCritical},
	}

	for _, tt := range tests {
		if got := LevelForCallsPerHour(tt.calls); got != tt.want {
			t.Errorf("LevelForCallsPerHour(%d) = %v, want %v", tt.calls, got, tt.want)
		}
	}
}

func TestRecommendedInterval(t *testing.T) {
	tests := []struct {
		level ActivityLevel
		want  time.Duration
	}{
		{LevelIdle, 24 * time.Hour},
		{LevelLow, time.Hour},
		{LevelMedium, 5 * time.Minute},
		{LevelHigh, time.Minute},
		{LevelCritical, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := RecommendedInterval(tt.level); got != tt.want {
				t.Errorf("RecommendedInterval(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestRecommendedInterval_ShrinksWithActivity(t *testing.T) {
	for l := LevelIdle; l < LevelCritical; l++ {
		if RecommendedInterval(l) <= RecommendedInterval(l+1) {
			t.Errorf("interval for %v should be longer than for %v", l, l+1)
		}
	}
}

func TestActionForUsage(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    ThresholdAction
	}{
		{"well below", 10, ActionNormal},
		{"just below throttle", 74.9, ActionNormal},
		{"at throttle", 75, ActionThrottle},
		{"between throttle and pause", 78, ActionThrottle},
		{"at pause", 90, ActionPause},
		{"between pause and stop", 95, ActionPause},
		{"at stop", 100, ActionStop},
		{"over quota", 130, ActionStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActionForUsage(tt.percent); got != tt.want {
				t.Errorf("ActionForUsage(%v) = %v, want %v", tt.percent, got, tt.want)
			}
		})
	}
}

func TestStateFor(t *testing.T) {
	tests := map[ThresholdAction]ControlState{
		ActionNormal:   StateNormal,
		ActionThrottle: StateThrottled,
		ActionPause:    StatePaused,
		ActionStop:     StateStopped,
	}
	for action, want := range tests {
		if got := StateFor(action); got != want {
			t.Errorf("StateFor(%v) = %v, want %v", action, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"twitter", Twitter, false},
		{" WhatsApp ", WhatsApp, false},
		{"myspace", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAll_AreValid(t *testing.T) {
	all := All()
	if len(all) != 7 {
		t.Fatalf("expected 7 platforms, got %d", len(all))
	}
	for _, p := range all {
		if !p.IsValid() {
			t.Errorf("%q should be valid", p)
		}
	}
}

func TestActivityLevel_JSON(t *testing.T) {
	data, err := json.Marshal(LevelCritical)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"critical"` {
		t.Errorf("Marshal() = %s", data)
	}

	var l ActivityLevel
	if err := json.Unmarshal([]byte(`"medium"`), &l); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if l != LevelMedium {
		t.Errorf("Unmarshal() = %v, want medium", l)
	}

	if err := json.Unmarshal([]byte(`"frantic"`), &l); err == nil {
		t.Error("expected error for unknown level")
	}
}
