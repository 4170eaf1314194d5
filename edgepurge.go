// Package edgepurge detects content-change events in a hosting CMS and
// invalidates the affected URLs in an upstream Cloudflare zone. It provides
// the purge coordination engine (URL resolution, deduplication, immediate
// and deferred dispatch, outcome logging) plus a thin HTTP surface for
// inbound trigger webhooks and manual cache operations.
//
// The web admin UI, request routing, and content storage of the hosting CMS
// are external collaborators: the engine only reads from them through the
// ContentSource interface.
package edgepurge

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/edgepurge/oplog"
)

// App is the running edgepurge service. It wires together the operation log,
// purge client, coordinator, scheduler, and the HTTP adapter layer.
type App struct {
	Config      Config
	Echo        *echo.Echo
	Coordinator *Coordinator
	Log         *oplog.Store

	source       ContentSource
	sched        *Scheduler
	notices      *noticeQueue
	notify       func(string)
	customRoutes []func(*App)
}

// New creates an App over the given content source. Credentials may be
// absent, in which case every purge operation reports not_configured until
// the operator provides them.
func New(cfg Config, source ContentSource, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		source:  source,
		notices: newNoticeQueue(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.notify == nil {
		a.notify = a.notices.push
	}
	return a
}

// Start initializes the operation log, coordinator, middleware, and routes,
// then starts the HTTP server. It blocks until the server stops.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("edgepurge: SessionSecret is required")
	}

	logStore, err := oplog.NewStore(a.Config.LogDatabasePath)
	if err != nil {
		return fmt.Errorf("edgepurge: init operation log: %w", err)
	}
	a.Log = logStore

	a.sched = NewScheduler()
	client := NewClient(a.Config.Credentials, a.Config.APIBaseURL)
	a.Coordinator = NewCoordinator(a.Config, a.source, client, logStore, a.sched)
	a.Coordinator.Notify = a.notify

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Inbound triggers from the content source.
	e.POST("/hooks/content-saved", a.handleContentSaved)
	e.POST("/hooks/media-replaced", a.handleMediaReplaced)
	e.POST("/hooks/media-updated", a.handleMediaUpdated)
	e.POST("/hooks/file-changed", a.handleFileChanged)

	// Manual cache operations.
	e.POST("/purge/urls", a.handlePurgeURLs)
	e.POST("/purge/all", a.handlePurgeAll)
	e.POST("/purge/post/:id", a.handlePurgePost)
	e.POST("/purge/media/:id", a.handlePurgeMedia)
	e.GET("/media/:id/variants", a.handleListVariants)

	// Reporting surface for the external admin UI.
	e.GET("/status", a.handleStatus)
	e.GET("/test-connection", a.handleTestConnection)
	e.GET("/log", a.handleLog)
	e.GET("/notices", a.handleNotices)
}

// Close stops the scheduler and releases resources. Pending deferred purges
// are dropped; purge delivery is at-least-once best-effort, not guaranteed.
func (a *App) Close() error {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.Log != nil {
		return a.Log.Close()
	}
	return nil
}
