package app

import (
	"context"
	"fmt"
	"os"
	"time"

	httpSrv "github.com/forgeq/dispatcher/internal/http"
	"github.com/forgeq/dispatcher/internal/observability"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

type App struct {
	Log          *applog.Logger
	Server       *httpSrv.Server
	Cfg          Config
	Clients      Clients
	Services     Services
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := applog.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	// Config
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	// Tracing
	otelShutdown := observability.InitTracing(context.Background(), log, observability.Config{
		ServiceName: "dispatcher",
		Environment: os.Getenv("APP_ENV"),
	})

	// Clients (store, blob)
	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	// Services (gateway, registry, lease manager, reaper, admin auth)
	services := wireServices(log, cfg, clients)

	// Handlers
	handlers := wireHandlers(log, cfg, services, clients)
	// Middleware
	middleware := wireMiddleware(log, services)
	// HTTP server
	server := wireServer(log, cfg, handlers, middleware)

	return &App{
		Log:          log,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Services:     services,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the lease sweeper background loop when enabled. It is
// idempotent: calling it twice is a no-op.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.Cfg.LeaseSweeperEnabled && a.Services.Reaper != nil {
		go a.Services.Reaper.Run(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
