package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowanvale/leadwatch/internal/jobview"
	"github.com/rowanvale/leadwatch/internal/lifecycle"
	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/ternarybob/arbor"
)

// JobViewHandler serves derived job views and lifecycle action dispatch.
type JobViewHandler struct {
	manager    *jobview.Manager
	controller *lifecycle.Controller
	jobSource  JobSource
	logger     arbor.ILogger
}

// JobSource fetches a job snapshot directly, used when an action arrives
// before the view's first poll has landed.
type JobSource interface {
	GetJob(ctx context.Context, jobID int) (*models.Job, error)
}

func NewJobViewHandler(manager *jobview.Manager, controller *lifecycle.Controller, jobSource JobSource, logger arbor.ILogger) *JobViewHandler {
	return &JobViewHandler{
		manager:    manager,
		controller: controller,
		jobSource:  jobSource,
		logger:     logger,
	}
}

// ViewHandler returns the derived snapshot for a job, lazily starting its
// poll loop. Responds 202 until the first poll has produced a snapshot.
// GET /api/jobs/{id}/view
func (h *JobViewHandler) ViewHandler(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	view := h.manager.GetOrCreate(jobID)
	view.Touch()

	snap, ready := view.Snapshot()
	if !ready {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"ready": false, "job_id": jobID})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// CloseViewHandler tears down a job view explicitly.
// DELETE /api/jobs/{id}/view
func (h *JobViewHandler) CloseViewHandler(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if !h.manager.Close(jobID) {
		writeError(w, http.StatusNotFound, "no view for job")
		return
	}

	h.logger.Debug().Int("job_id", jobID).Msg("Job view closed by client")
	w.WriteHeader(http.StatusNoContent)
}

type actionRequest struct {
	Confirm bool `json:"confirm"`
}

// ActionHandler validates and dispatches a lifecycle action. Dispatch is
// fire-and-forget: the response acknowledges the request only, and the
// next poll's snapshot reflects the real outcome.
// POST /api/jobs/{id}/actions/{action}
func (h *JobViewHandler) ActionHandler(w http.ResponseWriter, r *http.Request) {
	jobID, actionStr, ok := actionFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid action path")
		return
	}

	action, err := lifecycle.ParseAction(actionStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req actionRequest
	if r.Body != nil {
		// Body is optional; only cancel needs it for the confirm flag.
		json.NewDecoder(r.Body).Decode(&req)
	}

	status, err := h.currentStatus(r, jobID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "job status unavailable: "+err.Error())
		return
	}

	if err := h.controller.Dispatch(r.Context(), jobID, status, action, req.Confirm); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrConfirmationRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, lifecycle.ErrNotPermitted):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// Backend rejected or unreachable: surface once via the view
			// notice; the next poll corrects the displayed controls.
			if view, ok := h.manager.Get(jobID); ok {
				view.SetNotice(err.Error())
			}
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"dispatched": string(action)})
}

// currentStatus reads the last fetched status, falling back to a direct
// fetch when the view has not polled yet.
func (h *JobViewHandler) currentStatus(r *http.Request, jobID int) (models.JobStatus, error) {
	if view, ok := h.manager.Get(jobID); ok {
		if status, polled := view.Status(); polled {
			return status, nil
		}
	}

	job, err := h.jobSource.GetJob(r.Context(), jobID)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// jobIDFromPath extracts the id from /api/jobs/{id}/view
func jobIDFromPath(path string) (int, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return 0, false
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// actionFromPath extracts id and action from /api/jobs/{id}/actions/{action}
func actionFromPath(path string) (int, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 5 || parts[3] != "actions" {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, parts[4], true
}
