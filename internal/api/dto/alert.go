package dto

import (
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
)

// AlertDTO represents an alert in API responses
// Uses camelCase for frontend compatibility
type AlertDTO struct {
	ID                  int64                  `json:"id"`
	Platform            string                 `json:"platform"`
	AlertType           string                 `json:"alertType"`
	Severity            string                 `json:"severity"`
	Status              string                 `json:"status"`
	Message             string                 `json:"message"`
	Details             map[string]interface{} `json:"details,omitempty"`
	RateLimitPercentage *float64               `json:"rateLimitPercentage,omitempty"`
	ActionTaken         *string                `json:"actionTaken,omitempty"`
	NotifiedUsers       []int64                `json:"notifiedUsers"`
	CreatedAt           time.Time              `json:"createdAt"`
}

// NewAlertDTO maps a domain alert onto its API form
func NewAlertDTO(a *alert.Alert) AlertDTO {
	return AlertDTO{
		ID:                  a.ID,
		Platform:            string(a.Platform),
		AlertType:           a.AlertType,
		Severity:            a.Severity,
		Status:              a.Status,
		Message:             a.Message,
		Details:             a.Details,
		RateLimitPercentage: a.RateLimitPercentage,
		ActionTaken:         a.ActionTaken,
		NotifiedUsers:       a.NotifiedUsers,
		CreatedAt:           a.CreatedAt,
	}
}

// UpdateAlertStatusRequest represents an operator status transition
type UpdateAlertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=acknowledged resolved"`
}

// AlertSummaryDTO represents alert counts over a window
type AlertSummaryDTO struct {
	Total    int            `json:"total"`
	Critical int            `json:"critical"`
	Warning  int            `json:"warning"`
	Info     int            `json:"info"`
	ByType   map[string]int `json:"byType"`
}
