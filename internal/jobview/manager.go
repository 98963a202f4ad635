package jobview

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/ternarybob/arbor"
)

// Manager owns the set of live job views. Views are created lazily when a
// dashboard opens a job, and idle views (no subscribers, not touched
// within the TTL) are reaped on a schedule so abandoned tabs cannot leak
// timers.
type Manager struct {
	mu      sync.Mutex
	views   map[int]*View
	fetcher Fetcher
	opts    Options
	ttl     time.Duration
	logger  arbor.ILogger
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewManager(fetcher Fetcher, cfg *common.DashboardConfig, logger arbor.ILogger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		views: make(map[int]*View),
		fetcher: fetcher,
		opts: Options{
			PollInterval:    cfg.PollIntervalDuration(),
			ElapsedInterval: cfg.ElapsedIntervalDuration(),
			LogFetchLimit:   cfg.LogFetchLimit,
			ActivityLimit:   cfg.ActivityLimit,
		},
		ttl:    cfg.ViewTTLDuration(),
		logger: logger,
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the idle-view reaper schedule.
func (m *Manager) Start() error {
	if _, err := m.cron.AddFunc("@every 1m", m.reapIdle); err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Info().Dur("view_ttl", m.ttl).Msg("Job view manager started")
	return nil
}

// Stop halts the reaper and tears down every live view.
func (m *Manager) Stop() {
	m.cancel()
	m.cron.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, view := range m.views {
		view.Stop()
		delete(m.views, id)
	}
	m.logger.Info().Msg("Job view manager stopped")
}

// GetOrCreate returns the live view for a job, creating and starting one
// on first use.
func (m *Manager) GetOrCreate(jobID int) *View {
	m.mu.Lock()
	defer m.mu.Unlock()

	if view, ok := m.views[jobID]; ok {
		view.Touch()
		return view
	}

	view := NewView(jobID, m.fetcher, m.opts, m.logger)
	view.Start(m.ctx)
	m.views[jobID] = view

	m.logger.Debug().Int("job_id", jobID).Msg("Job view created")
	return view
}

// Get returns the live view for a job if one exists.
func (m *Manager) Get(jobID int) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view, ok := m.views[jobID]
	return view, ok
}

// Close tears down a single job view. Returns false if none existed.
func (m *Manager) Close(jobID int) bool {
	m.mu.Lock()
	view, ok := m.views[jobID]
	if ok {
		delete(m.views, jobID)
	}
	m.mu.Unlock()

	if ok {
		view.Stop()
	}
	return ok
}

// reapIdle stops views nobody is watching. A view with subscribers or a
// recent Touch survives regardless of poll state.
func (m *Manager) reapIdle() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var stale []*View
	var staleIDs []int
	for id, view := range m.views {
		if view.SubscriberCount() == 0 && view.IdleSince().Before(cutoff) {
			stale = append(stale, view)
			staleIDs = append(staleIDs, id)
			delete(m.views, id)
		}
	}
	m.mu.Unlock()

	for i, view := range stale {
		view.Stop()
		m.logger.Info().Int("job_id", staleIDs[i]).Msg("Reaped idle job view")
	}
}
