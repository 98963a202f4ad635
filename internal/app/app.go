package app

import (
	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/rowanvale/leadwatch/internal/handlers"
	"github.com/rowanvale/leadwatch/internal/jobview"
	"github.com/rowanvale/leadwatch/internal/lifecycle"
	"github.com/rowanvale/leadwatch/internal/upstream"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	UpstreamClient *upstream.Client
	ViewManager    *jobview.Manager
	Controller     *lifecycle.Controller

	APIHandler     *handlers.APIHandler
	JobViewHandler *handlers.JobViewHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires the upstream client, view manager, lifecycle controller and
// HTTP handlers together. The view manager's reaper is started here; call
// Close on shutdown.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	client := upstream.NewClient(&config.Upstream, logger)

	manager := jobview.NewManager(client, &config.Dashboard, logger)
	if err := manager.Start(); err != nil {
		return nil, err
	}

	controller := lifecycle.NewController(client, logger)

	a := &App{
		Config:         config,
		Logger:         logger,
		UpstreamClient: client,
		ViewManager:    manager,
		Controller:     controller,
		APIHandler:     handlers.NewAPIHandler(logger),
		JobViewHandler: handlers.NewJobViewHandler(manager, controller, client, logger),
		WSHandler:      handlers.NewWebSocketHandler(manager, logger),
	}

	logger.Info().
		Str("upstream", config.Upstream.BaseURL).
		Str("poll_interval", config.Dashboard.PollInterval).
		Msg("Application components initialized")

	return a, nil
}

// Close tears down all live job views and their timers.
func (a *App) Close() {
	a.ViewManager.Stop()
	a.Logger.Info().Msg("Application components closed")
}
