package elapsed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"seconds only", 42 * time.Second, "42s"},
		{"last second-only value", 59 * time.Second, "59s"},
		{"one minute", 60 * time.Second, "1m 0s"},
		{"minutes and seconds", 4*time.Minute + 5*time.Second, "4m 5s"},
		{"last minute value", 59*time.Minute + 59*time.Second, "59m 59s"},
		{"one hour", time.Hour, "1h 0m"},
		{"hours and minutes", 2*time.Hour + 17*time.Minute + 40*time.Second, "2h 17m"},
		{"sub-second truncated", 900 * time.Millisecond, "0s"},
		{"negative clamped", -5 * time.Second, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.d))
		})
	}
}

func TestForJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	started := models.UpstreamTime{Time: now.Add(-90 * time.Second)}
	completed := models.UpstreamTime{Time: now.Add(-30 * time.Second)}

	t.Run("not started", func(t *testing.T) {
		job := &models.Job{Status: models.JobStatusPending}
		assert.Equal(t, Placeholder, ForJob(job, now))
		assert.Equal(t, Placeholder, ForJob(nil, now))
	})

	t.Run("running ticks against now", func(t *testing.T) {
		job := &models.Job{Status: models.JobStatusRunning, StartedAt: &started}
		assert.Equal(t, "1m 30s", ForJob(job, now))
	})

	t.Run("terminal uses fixed completion time", func(t *testing.T) {
		job := &models.Job{
			Status:      models.JobStatusCompleted,
			StartedAt:   &started,
			CompletedAt: &completed,
		}
		assert.Equal(t, "1m 0s", ForJob(job, now))
		// A later "now" must not change a finished job's duration.
		assert.Equal(t, "1m 0s", ForJob(job, now.Add(time.Hour)))
	})

	t.Run("clock skew clamps to zero", func(t *testing.T) {
		ahead := models.UpstreamTime{Time: now.Add(10 * time.Second)}
		job := &models.Job{Status: models.JobStatusRunning, StartedAt: &ahead}
		assert.Equal(t, "0s", ForJob(job, now))
	})
}

func TestTicker_StartStop(t *testing.T) {
	var ticks atomic.Int64
	var tk Ticker

	tk.Start(5*time.Millisecond, func() { ticks.Add(1) })
	assert.True(t, tk.Running())

	// Second start is a no-op, not a second goroutine.
	tk.Start(5*time.Millisecond, func() { ticks.Add(100) })

	time.Sleep(40 * time.Millisecond)
	tk.Stop()
	assert.False(t, tk.Running())

	got := ticks.Load()
	assert.Greater(t, got, int64(0))
	assert.Less(t, got, int64(100), "duplicate ticker goroutine detected")

	// Stop is idempotent.
	tk.Stop()

	// At most one tick can already be in flight when Stop lands.
	settled := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load()-settled, int64(1), "ticker kept firing after Stop")
}
