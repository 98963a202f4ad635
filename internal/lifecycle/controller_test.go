package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

type fakeDispatcher struct {
	calls []string
	err   error
}

func (f *fakeDispatcher) Action(_ context.Context, jobID int, action string) error {
	f.calls = append(f.calls, action)
	return f.err
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		status models.JobStatus
		want   []Action
	}{
		{models.JobStatusPending, []Action{ActionStart}},
		{models.JobStatusRunning, []Action{ActionPause, ActionCancel}},
		{models.JobStatusPaused, []Action{ActionResume, ActionCancel}},
		{models.JobStatusCompleted, []Action{}},
		{models.JobStatusFailed, []Action{}},
		{models.JobStatusCancelled, []Action{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableActions(tt.status))
		})
	}
}

func TestDispatch_RejectsIllegalTransition(t *testing.T) {
	fake := &fakeDispatcher{}
	c := NewController(fake, arbor.NewLogger())

	// A stale UI pausing an already-paused job must be rejected without
	// any request reaching the backend.
	err := c.Dispatch(context.Background(), 7, models.JobStatusPaused, ActionPause, false)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Empty(t, fake.calls)

	err = c.Dispatch(context.Background(), 7, models.JobStatusCompleted, ActionCancel, true)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Empty(t, fake.calls)
}

func TestDispatch_CancelRequiresConfirmation(t *testing.T) {
	fake := &fakeDispatcher{}
	c := NewController(fake, arbor.NewLogger())

	err := c.Dispatch(context.Background(), 7, models.JobStatusRunning, ActionCancel, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, fake.calls)

	err = c.Dispatch(context.Background(), 7, models.JobStatusRunning, ActionCancel, true)
	assert.NoError(t, err)
	assert.Equal(t, []string{"cancel"}, fake.calls)
}

func TestDispatch_FireAndForget(t *testing.T) {
	fake := &fakeDispatcher{}
	c := NewController(fake, arbor.NewLogger())

	err := c.Dispatch(context.Background(), 3, models.JobStatusPending, ActionStart, false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"start"}, fake.calls)
}

func TestDispatch_BackendFailureSurfaces(t *testing.T) {
	fake := &fakeDispatcher{err: errors.New("502 bad gateway")}
	c := NewController(fake, arbor.NewLogger())

	err := c.Dispatch(context.Background(), 3, models.JobStatusRunning, ActionPause, false)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPermitted)
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"start", "pause", "resume", "cancel"} {
		got, err := ParseAction(valid)
		assert.NoError(t, err)
		assert.Equal(t, Action(valid), got)
	}

	_, err := ParseAction("restart")
	assert.Error(t, err)
}
