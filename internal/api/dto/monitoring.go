package dto

import (
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
)

// IngestRequest carries the headers of one upstream API response
type IngestRequest struct {
	Headers map[string]string `json:"headers"`
}

// SpamFlagRequest reports that a platform flagged activity as spam
type SpamFlagRequest struct {
	ErrorCode    string `json:"errorCode" validate:"required,max=100"`
	ErrorMessage string `json:"errorMessage" validate:"max=1000"`
}

// SpamFlagResponse reports the outcome of an emergency stop
type SpamFlagResponse struct {
	Platform    string `json:"platform"`
	JobsRemoved int    `json:"jobsRemoved"`
	State       string `json:"state"`
}

// ResumeResponse reports a platform's state change after resume
type ResumeResponse struct {
	Platform      string `json:"platform"`
	PreviousState string `json:"previousState"`
	State         string `json:"state"`
}

// TriggerRequest selects a manual job
type TriggerRequest struct {
	JobType  string `json:"jobType" validate:"required,oneof=platform_monitor compliance_check policy_change_detection dashboard_report"`
	Platform string `json:"platform,omitempty"`
}

// JobDTO represents a queued job in API responses
type JobDTO struct {
	ID         string     `json:"id"`
	JobType    string     `json:"jobType"`
	Platform   string     `json:"platform,omitempty"`
	State      string     `json:"state"`
	Manual     bool       `json:"manual"`
	DueAt      time.Time  `json:"dueAt"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// NewJobDTO maps a queued job onto its API form
func NewJobDTO(j *job.Job) JobDTO {
	return JobDTO{
		ID:         j.ID,
		JobType:    string(j.Payload.JobType),
		Platform:   string(j.Payload.Platform),
		State:      string(j.State),
		Manual:     j.Payload.Manual || job.IsManual(j.ID),
		DueAt:      j.DueAt,
		Attempts:   j.Attempts,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
	}
}
