package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/ratewatch/internal/api/dto"
	"github.com/pratik-mahalle/ratewatch/internal/api/middleware"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/utils"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/validator"
	"github.com/pratik-mahalle/ratewatch/internal/services"
)

// MonitoringHandler exposes the monitoring engine to operators and to API
// client wrappers reporting upstream responses
type MonitoringHandler struct {
	coordinator *services.MonitorCoordinator
	engine      *services.ComplianceEngine
	scheduler   *services.JobScheduler
	logger      *logger.Logger
	validator   *validator.Validator
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(
	coordinator *services.MonitorCoordinator,
	engine *services.ComplianceEngine,
	scheduler *services.JobScheduler,
	log *logger.Logger,
	val *validator.Validator,
) *MonitoringHandler {
	return &MonitoringHandler{
		coordinator: coordinator,
		engine:      engine,
		scheduler:   scheduler,
		logger:      log,
		validator:   val,
	}
}

// Dashboard returns the aggregated operator snapshot
func (h *MonitoringHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.coordinator.GetDashboardData(r.Context())
	if err != nil {
		utils.WriteErr(w, err, "Failed to build dashboard")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, data)
}

// Platforms returns the read-only status of every platform
func (h *MonitoringHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	platforms := h.coordinator.Platforms()
	statuses := make([]services.MonitoringStatus, 0, len(platforms))
	for _, p := range platforms {
		statuses = append(statuses, h.coordinator.PlatformStatus(r.Context(), p))
	}
	utils.WriteSuccess(w, http.StatusOK, statuses)
}

// Platform returns the read-only status of one platform
func (h *MonitoringHandler) Platform(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, h.coordinator.PlatformStatus(r.Context(), p))
}

// Schedule returns the sliding-scale schedule and the live timer table
func (h *MonitoringHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"slidingScale": h.coordinator.GetSlidingScaleSchedule(),
		"timers":       h.scheduler.Timers(),
	})
}

// Ingest records one upstream API response for a platform
func (h *MonitoringHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r)
	if !ok {
		return
	}

	var req dto.IngestRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result := h.coordinator.ProcessAPIResponse(r.Context(), p, req.Headers)
	middleware.AddLogField(w, "platform", p)
	middleware.AddLogField(w, "action", result.Action.String())

	utils.WriteSuccess(w, http.StatusOK, result)
}

// SpamFlag records a spam flag and performs the emergency stop
func (h *MonitoringHandler) SpamFlag(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r)
	if !ok {
		return
	}

	var req dto.SpamFlagRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	removed := h.coordinator.HandleSpamFlag(r.Context(), p, req.ErrorCode, req.ErrorMessage)

	utils.WriteSuccess(w, http.StatusOK, dto.SpamFlagResponse{
		Platform:    string(p),
		JobsRemoved: removed,
		State:       h.coordinator.State(p).String(),
	})
}

// Resume returns a throttled, paused or stopped platform to normal
func (h *MonitoringHandler) Resume(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r)
	if !ok {
		return
	}

	prev := h.coordinator.Resume(p)

	utils.WriteSuccess(w, http.StatusOK, dto.ResumeResponse{
		Platform:      string(p),
		PreviousState: prev.String(),
		State:         h.coordinator.State(p).String(),
	})
}

// Trigger enqueues a manual job outside the timer schedule
func (h *MonitoringHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req dto.TriggerRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	var (
		j   *job.Job
		err error
	)
	switch job.JobType(req.JobType) {
	case job.JobTypePlatformMonitor:
		p, perr := platform.Parse(req.Platform)
		if perr != nil {
			utils.WriteError(w, errors.UnknownPlatform(req.Platform))
			return
		}
		j, err = h.scheduler.TriggerPlatformMonitor(r.Context(), p)
	case job.JobTypeComplianceCheck:
		j, err = h.scheduler.TriggerComplianceCheck(r.Context())
	case job.JobTypePolicyChangeDetection:
		j, err = h.scheduler.TriggerPolicyChangeDetection(r.Context())
	case job.JobTypeDashboardReport:
		j, err = h.scheduler.TriggerDashboardReport(r.Context())
	default:
		utils.WriteError(w, errors.UnknownJobType(req.JobType))
		return
	}
	if err != nil {
		utils.WriteError(w, errors.QueueError("Failed to enqueue job", err))
		return
	}

	utils.WriteSuccess(w, http.StatusAccepted, dto.NewJobDTO(j))
}

// ComplianceReport evaluates every regulation against every platform
func (h *MonitoringHandler) ComplianceReport(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.engine.GenerateComplianceReport(r.Context()))
}
