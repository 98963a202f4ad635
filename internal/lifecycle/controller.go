// Package lifecycle enforces the job status state machine and dispatches
// transition requests to the backend.
//
// Transitions:
//
//	pending --start--> running
//	running --pause--> paused
//	running --cancel--> cancelled
//	paused  --resume--> running
//	paused  --cancel--> cancelled
//	running --(backend)--> completed | failed
//
// completed, failed and cancelled are terminal. Completion and failure are
// observed on a later poll, never user-triggered.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/ternarybob/arbor"
)

// Action is a user-triggerable lifecycle transition request.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

var (
	// ErrNotPermitted means the current status does not allow the action.
	ErrNotPermitted = errors.New("action not permitted for current job status")
	// ErrConfirmationRequired means cancel was requested without the
	// explicit confirmation step.
	ErrConfirmationRequired = errors.New("cancel requires confirmation")
)

// transitions is the permitted-action table keyed by current status.
// Terminal statuses are absent: they permanently disable all actions.
var transitions = map[models.JobStatus][]Action{
	models.JobStatusPending: {ActionStart},
	models.JobStatusRunning: {ActionPause, ActionCancel},
	models.JobStatusPaused:  {ActionResume, ActionCancel},
}

// AvailableActions returns the actions a job in the given status may take,
// in stable order.
func AvailableActions(status models.JobStatus) []Action {
	actions := transitions[status]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// CanPerform reports whether the action is legal for the status.
func CanPerform(status models.JobStatus, action Action) bool {
	for _, a := range transitions[status] {
		if a == action {
			return true
		}
	}
	return false
}

// ParseAction validates a wire action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionStart, ActionPause, ActionResume, ActionCancel:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Dispatcher sends a lifecycle action to the backend job source.
type Dispatcher interface {
	Action(ctx context.Context, jobID int, action string) error
}

// Controller validates and dispatches lifecycle actions. Dispatch is
// fire-and-forget: success is observed on the next poll via the status
// field, and no local state is mutated optimistically.
type Controller struct {
	dispatcher Dispatcher
	logger     arbor.ILogger
}

func NewController(dispatcher Dispatcher, logger arbor.ILogger) *Controller {
	return &Controller{dispatcher: dispatcher, logger: logger}
}

// Dispatch requests a transition for the job. The status argument is the
// last fetched snapshot's status; a stale caller is rejected here and the
// next poll's authoritative snapshot corrects the displayed controls.
func (c *Controller) Dispatch(ctx context.Context, jobID int, status models.JobStatus, action Action, confirmed bool) error {
	if !CanPerform(status, action) {
		c.logger.Warn().
			Int("job_id", jobID).
			Str("status", string(status)).
			Str("action", string(action)).
			Msg("Rejected lifecycle action for current status")
		return fmt.Errorf("%w: %s from %s", ErrNotPermitted, action, status)
	}

	if action == ActionCancel && !confirmed {
		return ErrConfirmationRequired
	}

	if err := c.dispatcher.Action(ctx, jobID, string(action)); err != nil {
		c.logger.Warn().
			Err(err).
			Int("job_id", jobID).
			Str("action", string(action)).
			Msg("Lifecycle action dispatch failed")
		return fmt.Errorf("dispatch %s for job %d: %w", action, jobID, err)
	}

	c.logger.Info().
		Int("job_id", jobID).
		Str("action", string(action)).
		Msg("Lifecycle action dispatched")
	return nil
}
