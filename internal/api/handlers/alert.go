package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/ratewatch/internal/api/dto"
	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/utils"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/validator"
	"github.com/pratik-mahalle/ratewatch/internal/services"
)

// defaultAlertWindow is used when the since parameter is absent
const defaultAlertWindow = 24 * time.Hour

type AlertHandler struct {
	service   *services.AlertService
	logger    *logger.Logger
	validator *validator.Validator
}

func NewAlertHandler(service *services.AlertService, log *logger.Logger, val *validator.Validator) *AlertHandler {
	return &AlertHandler{service: service, logger: log, validator: val}
}

// since parses the since query parameter as a duration ("6h") or RFC3339 time
func since(r *http.Request, now time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return now.Add(-defaultAlertWindow), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (h *AlertHandler) listAlerts(w http.ResponseWriter, r *http.Request) ([]*alert.Alert, bool) {
	from, err := since(r, time.Now())
	if err != nil {
		utils.WriteError(w, errors.BadRequest("since must be a duration or RFC3339 time"))
		return nil, false
	}

	q := r.URL.Query()
	filter := alert.Filter{
		AlertType: q.Get("type"),
		Severity:  q.Get("severity"),
		Status:    q.Get("status"),
	}
	if raw := q.Get("platform"); raw != "" {
		p, err := platform.Parse(raw)
		if err != nil {
			utils.WriteError(w, errors.UnknownPlatform(raw))
			return nil, false
		}
		filter.Platform = p
	}

	alerts, err := h.service.List(r.Context(), from, filter)
	if err != nil {
		utils.WriteErr(w, err, "Failed to list alerts")
		return nil, false
	}
	return alerts, true
}

// List returns alerts created within a window, newest first
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, ok := h.listAlerts(w, r)
	if !ok {
		return
	}

	params := utils.ParsePaginationParams(r)
	start, end := params.Window(len(alerts))

	dtos := make([]dto.AlertDTO, 0, end-start)
	for _, a := range alerts[start:end] {
		dtos = append(dtos, dto.NewAlertDTO(a))
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(dtos, params.Page, params.PageSize, int64(len(alerts))))
}

// Summary counts alerts in the window by severity and type
func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	alerts, ok := h.listAlerts(w, r)
	if !ok {
		return
	}

	summary := dto.AlertSummaryDTO{Total: len(alerts), ByType: map[string]int{}}
	for _, a := range alerts {
		switch a.Severity {
		case alert.SeverityCritical:
			summary.Critical++
		case alert.SeverityWarning:
			summary.Warning++
		default:
			summary.Info++
		}
		summary.ByType[a.AlertType]++
	}

	utils.WriteSuccess(w, http.StatusOK, summary)
}

// Get returns a single alert by ID
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid alert ID"))
		return
	}

	a, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		utils.WriteErr(w, err, "Failed to get alert")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewAlertDTO(a))
}

// UpdateStatus acknowledges or resolves an alert
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid alert ID"))
		return
	}

	var req dto.UpdateAlertStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, req.Status); err != nil {
		utils.WriteErr(w, err, "Failed to update alert")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert updated", map[string]interface{}{
		"id":     id,
		"status": req.Status,
	})
}
