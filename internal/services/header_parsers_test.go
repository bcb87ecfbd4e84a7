package services

import (
	"testing"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

func TestHeaderParsers(t *testing.T) {
	parsers := defaultHeaderParsers()

	tests := []struct {
		name        string
		platform    platform.Platform
		headers     map[string]string
		wantPercent float64
		wantOK      bool
	}{
		{
			name:        "app usage takes highest field",
			platform:    platform.Facebook,
			headers:     map[string]string{"x-app-usage": `{"call_count":12,"total_cputime":40,"total_time":33}`},
			wantPercent: 40,
			wantOK:      true,
		},
		{
			name:     "business usage beats app usage",
			platform: platform.Instagram,
			headers: map[string]string{
				"X-App-Usage":               `{"call_count":10,"total_cputime":5,"total_time":5}`,
				"X-Business-Use-Case-Usage": `{"1234":[{"type":"instagram","call_count":91,"total_cputime":3,"total_time":4}]}`,
			},
			wantPercent: 91,
			wantOK:      true,
		},
		{
			name:     "malformed app usage ignored",
			platform: platform.WhatsApp,
			headers:  map[string]string{"x-app-usage": "not json"},
			wantOK:   false,
		},
		{
			name:        "twitter limit and remaining",
			platform:    platform.Twitter,
			headers:     map[string]string{"x-rate-limit-limit": "300", "x-rate-limit-remaining": "75"},
			wantPercent: 75,
			wantOK:      true,
		},
		{
			name:        "negative remaining clamps to exhausted",
			platform:    platform.Twitter,
			headers:     map[string]string{"x-rate-limit-limit": "300", "x-rate-limit-remaining": "-4"},
			wantPercent: 100,
			wantOK:      true,
		},
		{
			name:     "twitter missing remaining",
			platform: platform.Twitter,
			headers:  map[string]string{"x-rate-limit-limit": "300"},
			wantOK:   false,
		},
		{
			name:     "zero limit has no signal",
			platform: platform.LinkedIn,
			headers:  map[string]string{"x-ratelimit-limit": "0", "x-ratelimit-remaining": "0"},
			wantOK:   false,
		},
		{
			name:        "linkedin generic headers",
			platform:    platform.LinkedIn,
			headers:     map[string]string{"X-RateLimit-Limit": "1000", "X-RateLimit-Remaining": "100"},
			wantPercent: 90,
			wantOK:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parse, ok := parsers[tt.platform]
			if !ok {
				t.Fatalf("no parser for %s", tt.platform)
			}
			percent, raw, ok := parse(tt.headers)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if percent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", percent, tt.wantPercent)
			}
			if len(raw) == 0 {
				t.Error("expected raw headers to be captured")
			}
		})
	}
}

func TestHeaderParsers_NoSignalPlatforms(t *testing.T) {
	parsers := defaultHeaderParsers()
	for _, p := range []platform.Platform{platform.TikTok, platform.YouTube} {
		if _, ok := parsers[p]; ok {
			t.Errorf("%s should have no header parser", p)
		}
	}
}
