package handlers

import (
	"net/http"
	"strings"

	"github.com/pratik-mahalle/ratewatch/internal/api/dto"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/utils"
)

// JobHandler handles job queue inspection requests
type JobHandler struct {
	queue  job.Queue
	logger *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(queue job.Queue, log *logger.Logger) *JobHandler {
	return &JobHandler{
		queue:  queue,
		logger: log,
	}
}

// ListJobs handles GET /api/v1/jobs?state=waiting,active
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var states []job.State
	if raw := r.URL.Query().Get("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			states = append(states, job.State(strings.TrimSpace(s)))
		}
	}
	platformFilter := r.URL.Query().Get("platform")

	jobs, err := h.queue.ListJobs(r.Context(), states...)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list jobs")
		utils.WriteError(w, errors.QueueError("Failed to list jobs", err))
		return
	}

	out := make([]dto.JobDTO, 0, len(jobs))
	for _, j := range jobs {
		if platformFilter != "" && string(j.Payload.Platform) != platformFilter {
			continue
		}
		out = append(out, dto.NewJobDTO(j))
	}

	utils.WriteSuccess(w, http.StatusOK, out)
}
