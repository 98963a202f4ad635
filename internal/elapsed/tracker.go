// Package elapsed derives human-readable run durations from job
// timestamps and drives the local 1-second display tick.
package elapsed

import (
	"fmt"
	"sync"
	"time"

	"github.com/rowanvale/leadwatch/internal/models"
)

// Placeholder is shown before a job has a start time.
const Placeholder = "—"

// Format renders a duration as "42s", "4m 5s" or "2h 17m", truncated to
// whole seconds. Negative input (clock skew) is clamped to zero.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())

	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	}
}

// ForJob returns the duration string for a job snapshot at the given
// wall-clock instant. A terminal job with a completion timestamp gets the
// fixed final duration; a running or paused job ticks against now.
func ForJob(job *models.Job, now time.Time) string {
	if job == nil || job.StartedAt == nil || job.StartedAt.Time.IsZero() {
		return Placeholder
	}

	started := job.StartedAt.Time
	if job.Status.IsTerminal() && job.CompletedAt != nil && !job.CompletedAt.Time.IsZero() {
		return Format(job.CompletedAt.Time.Sub(started))
	}

	return Format(now.Sub(started))
}

// Ticker is the per-view local timer that keeps the elapsed counter smooth
// between network polls. It is started once per job-started transition and
// torn down when the job becomes terminal or the view closes.
type Ticker struct {
	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// Start begins invoking fn every interval until Stop. Starting an already
// running ticker is a no-op.
func (t *Ticker) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.done = make(chan struct{})

	done := t.done
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop tears the ticker down. Safe to call repeatedly or when never started.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.done)
}

// Running reports whether the ticker is currently active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
