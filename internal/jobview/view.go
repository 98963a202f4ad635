// Package jobview owns the per-job poll loop: it periodically re-fetches
// the job and log snapshots from the backend and re-derives phases,
// activity, elapsed time and available actions. Each job view owns its own
// timers and last-seen snapshot; there is no shared mutable state across
// views.
package jobview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rowanvale/leadwatch/internal/activity"
	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/rowanvale/leadwatch/internal/elapsed"
	"github.com/rowanvale/leadwatch/internal/lifecycle"
	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/rowanvale/leadwatch/internal/phases"
	"github.com/ternarybob/arbor"
)

// Fetcher reads job and log snapshots from the backend.
type Fetcher interface {
	GetJob(ctx context.Context, jobID int) (*models.Job, error)
	GetLogs(ctx context.Context, jobID, limit int) ([]models.LogEntry, error)
}

// Snapshot is the fully derived view of one job at a point in time. Every
// field is recomputed from the latest fetch; nothing is carried over
// between polls except the new-entry change detector.
type Snapshot struct {
	Job         models.Job         `json:"job"`
	Phases      []models.Phase     `json:"phases"`
	ActivePhase int                `json:"active_phase"` // index into Phases, -1 when none
	Activity    []activity.Entry   `json:"activity"`
	Elapsed     string             `json:"elapsed"`
	Actions     []lifecycle.Action `json:"actions"`
	Notice      string             `json:"notice,omitempty"` // transient action-failure notice
	NewEntries  bool               `json:"new_entries"`      // log count changed since last poll
	FetchedAt   time.Time          `json:"fetched_at"`
}

// Options carries the derivation cadence and window sizes for a view.
type Options struct {
	PollInterval    time.Duration
	ElapsedInterval time.Duration
	LogFetchLimit   int
	ActivityLimit   int
}

// View drives one job's poll loop. Construct with NewView, start with
// Start, and always Stop on teardown so no timers leak.
type View struct {
	jobID   int
	opts    Options
	fetcher Fetcher
	logger  arbor.ILogger

	mu           sync.RWMutex
	snapshot     *Snapshot
	lastLogCount int
	hasPolled    bool
	notice       string
	lastTouched  time.Time

	subMu sync.Mutex
	subs  map[string]chan *Snapshot

	inFlight      atomic.Bool
	polling       atomic.Bool
	elapsedTicker elapsed.Ticker

	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewView(jobID int, fetcher Fetcher, opts Options, logger arbor.ILogger) *View {
	return &View{
		jobID:       jobID,
		opts:        opts,
		fetcher:     fetcher,
		logger:      logger,
		subs:        make(map[string]chan *Snapshot),
		lastTouched: time.Now(),
	}
}

// Start launches the poll loop. The first fetch happens immediately; after
// that the loop ticks on the poll interval until the job reaches a
// terminal status (one final fetch captures it) or the view is stopped.
func (v *View) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.polling.Store(true)

	common.SafeGo(v.logger, fmt.Sprintf("jobview-poll-%d", v.jobID), func() {
		defer v.polling.Store(false)

		if terminal := v.refresh(ctx); terminal {
			return
		}

		ticker := time.NewTicker(v.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if terminal := v.refresh(ctx); terminal {
					return
				}
			}
		}
	})
}

// Stop tears down the poll loop, the elapsed ticker and all subscriber
// channels. Safe to call more than once.
func (v *View) Stop() {
	v.stopOnce.Do(func() {
		if v.cancel != nil {
			v.cancel()
		}
		v.elapsedTicker.Stop()

		v.subMu.Lock()
		for id, ch := range v.subs {
			close(ch)
			delete(v.subs, id)
		}
		v.subMu.Unlock()

		v.logger.Debug().Int("job_id", v.jobID).Msg("Job view stopped")
	})
}

// refresh performs one poll tick. Fetch failures are logged and swallowed:
// the previous snapshot stays rendered and the next tick retries. Returns
// true once a terminal status has been captured, which ends the loop.
func (v *View) refresh(ctx context.Context) bool {
	// At most one in-flight fetch per view; a tick that lands while the
	// previous fetch is still running is skipped, not queued, so renders
	// can never interleave out of order.
	if !v.inFlight.CompareAndSwap(false, true) {
		v.logger.Debug().Int("job_id", v.jobID).Msg("Previous fetch still in flight, skipping tick")
		return false
	}
	defer v.inFlight.Store(false)

	job, err := v.fetcher.GetJob(ctx, v.jobID)
	if err != nil {
		if ctx.Err() == nil {
			v.logger.Warn().Err(err).Int("job_id", v.jobID).Msg("Job fetch failed, will retry next tick")
		}
		return false
	}

	logs, err := v.fetcher.GetLogs(ctx, v.jobID, v.opts.LogFetchLimit)
	if err != nil {
		if ctx.Err() == nil {
			v.logger.Warn().Err(err).Int("job_id", v.jobID).Msg("Log fetch failed, will retry next tick")
		}
		return false
	}

	now := time.Now()
	parsed := phases.Parse(logs, job.Status)

	v.mu.Lock()
	newEntries := v.hasPolled && len(logs) != v.lastLogCount
	v.lastLogCount = len(logs)
	v.hasPolled = true
	v.notice = "" // the authoritative snapshot clears any transient notice

	snap := &Snapshot{
		Job:         *job,
		Phases:      parsed,
		ActivePhase: phases.ActiveIndex(parsed, job.Status),
		Activity:    activity.Recent(logs, v.opts.ActivityLimit),
		Elapsed:     elapsed.ForJob(job, now),
		Actions:     lifecycle.AvailableActions(job.Status),
		NewEntries:  newEntries,
		FetchedAt:   now,
	}
	v.snapshot = snap
	v.mu.Unlock()

	v.broadcast(snap)
	v.syncElapsedTicker(job)

	if job.Status.IsTerminal() {
		v.logger.Info().
			Int("job_id", v.jobID).
			Str("status", string(job.Status)).
			Msg("Terminal status captured, stopping periodic refresh")
		return true
	}
	return false
}

// syncElapsedTicker starts the local 1-second tick once the job has a
// start time and is non-terminal, and tears it down otherwise. The tick
// only re-renders the elapsed string; it never touches the network.
func (v *View) syncElapsedTicker(job *models.Job) {
	active := job.StartedAt != nil && !job.StartedAt.Time.IsZero() && !job.Status.IsTerminal()
	if !active {
		v.elapsedTicker.Stop()
		return
	}

	v.elapsedTicker.Start(v.opts.ElapsedInterval, func() {
		v.mu.Lock()
		if v.snapshot == nil {
			v.mu.Unlock()
			return
		}
		snap := *v.snapshot
		snap.Elapsed = elapsed.ForJob(&snap.Job, time.Now())
		v.snapshot = &snap
		v.mu.Unlock()

		v.broadcast(&snap)
	})
}

// Snapshot returns the latest derived snapshot, or false before the first
// successful poll.
func (v *View) Snapshot() (*Snapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.snapshot == nil {
		return nil, false
	}
	snap := *v.snapshot
	return &snap, true
}

// Status returns the last fetched job status, or false before the first
// successful poll.
func (v *View) Status() (models.JobStatus, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.snapshot == nil {
		return "", false
	}
	return v.snapshot.Job.Status, true
}

// SetNotice attaches a transient notice (an action dispatch failure) to
// the current snapshot. The next successful poll clears it.
func (v *View) SetNotice(msg string) {
	v.mu.Lock()
	v.notice = msg
	var snap *Snapshot
	if v.snapshot != nil {
		copied := *v.snapshot
		copied.Notice = msg
		v.snapshot = &copied
		snap = &copied
	}
	v.mu.Unlock()

	if snap != nil {
		v.broadcast(snap)
	}
}

// Touch marks the view as recently used, deferring idle reaping.
func (v *View) Touch() {
	v.mu.Lock()
	v.lastTouched = time.Now()
	v.mu.Unlock()
}

// IdleSince returns the last time the view was touched.
func (v *View) IdleSince() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastTouched
}

// Polling reports whether the periodic refresh loop is still running.
func (v *View) Polling() bool {
	return v.polling.Load()
}

// Subscribe registers a snapshot consumer. The current snapshot, when one
// exists, is delivered immediately. The channel is closed on Stop.
func (v *View) Subscribe() (string, <-chan *Snapshot) {
	id := uuid.New().String()
	ch := make(chan *Snapshot, 8)
	snap, ok := v.Snapshot()

	v.subMu.Lock()
	v.subs[id] = ch
	if ok {
		ch <- snap
	}
	v.subMu.Unlock()

	return id, ch
}

// Unsubscribe removes a snapshot consumer.
func (v *View) Unsubscribe(id string) {
	v.subMu.Lock()
	if ch, ok := v.subs[id]; ok {
		close(ch)
		delete(v.subs, id)
	}
	v.subMu.Unlock()
}

// SubscriberCount returns the number of attached consumers.
func (v *View) SubscriberCount() int {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	return len(v.subs)
}

// broadcast delivers a snapshot to all subscribers without blocking; a
// slow consumer drops updates rather than stalling the poll loop.
func (v *View) broadcast(snap *Snapshot) {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	for _, ch := range v.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
