package validator

import (
	"strings"
	"testing"

	"github.com/pratik-mahalle/ratewatch/internal/api/dto"
)

func TestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:  "valid spam flag",
			input: &dto.SpamFlagRequest{ErrorCode: "368", ErrorMessage: "blocked"},
		},
		{
			name:      "missing error code",
			input:     &dto.SpamFlagRequest{ErrorMessage: "blocked"},
			wantField: "errorCode",
			wantTag:   "required",
			wantMsg:   "errorCode is required",
		},
		{
			name:      "error code too long",
			input:     &dto.SpamFlagRequest{ErrorCode: strings.Repeat("x", 101)},
			wantField: "errorCode",
			wantTag:   "max",
			wantMsg:   "errorCode must be at most 100 characters long",
		},
		{
			name:      "unknown job type",
			input:     &dto.TriggerRequest{JobType: "reticulate_splines"},
			wantField: "jobType",
			wantTag:   "oneof",
			wantMsg:   "jobType must be one of [platform_monitor compliance_check policy_change_detection dashboard_report]",
		},
		{
			name:      "bad alert status",
			input:     &dto.UpdateAlertStatusRequest{Status: "new"},
			wantField: "status",
			wantTag:   "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.input)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("Validate() = %+v, want no errors", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %+v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField || errs[0].Tag != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", errs[0].Field, errs[0].Tag, tt.wantField, tt.wantTag)
			}
			if tt.wantMsg != "" && errs[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
