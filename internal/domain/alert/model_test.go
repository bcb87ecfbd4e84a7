package alert

import "testing"

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusNew, StatusAcknowledged, true},
		{StatusNew, StatusResolved, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAcknowledged, StatusNew, false},
		{StatusResolved, StatusAcknowledged, false},
		{StatusResolved, StatusNew, false},
		{StatusNew, StatusNew, false},
	}

	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFilter_Matches(t *testing.T) {
	a := &Alert{Platform: "twitter", AlertType: TypeRateLimit, Severity: SeverityCritical, Status: StatusNew}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"platform match", Filter{Platform: "twitter"}, true},
		{"platform mismatch", Filter{Platform: "facebook"}, false},
		{"type and severity", Filter{AlertType: TypeRateLimit, Severity: SeverityCritical}, true},
		{"severity mismatch", Filter{Severity: SeverityWarning}, false},
		{"status mismatch", Filter{Status: StatusResolved}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(a); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
