package app

import (
	httpx "github.com/forgeq/dispatcher/internal/http"
	httpH "github.com/forgeq/dispatcher/internal/http/handlers"
	httpMW "github.com/forgeq/dispatcher/internal/http/middleware"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Auth   *httpH.AuthHandler
	GPU    *httpH.GPUHandler
	Worker *httpH.WorkerHandler
	Jobs   *httpH.JobsHandler
	Events *httpH.EventsHandler
	My     *httpH.MyHandler
	Admin  *httpH.AdminHandler
}

func wireHandlers(log *applog.Logger, cfg Config, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Auth:   httpH.NewAuthHandler(services.Auth),
		GPU:    httpH.NewGPUHandler(services.Registry),
		Worker: httpH.NewWorkerHandler(log, services.Registry, services.Lease),
		Jobs:   httpH.NewJobsHandler(log, services.Gateway, clients.Store, clients.Blob, cfg.EventsMax),
		Events: httpH.NewEventsHandler(log, clients.Store),
		My:     httpH.NewMyHandler(log, clients.Store, clients.Blob),
		Admin:  httpH.NewAdminHandler(log, services.Registry, clients.Store, cfg.LeaseTimeoutSec),
	}
}

func wireMiddleware(log *applog.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *applog.Logger, cfg Config, handlers Handlers, middleware Middleware) *httpx.Server {
	return httpx.NewServer(httpx.RouterConfig{
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: middleware.Auth,
		HealthHandler:  handlers.Health,
		AuthHandler:    handlers.Auth,
		GPUHandler:     handlers.GPU,
		WorkerHandler:  handlers.Worker,
		JobsHandler:    handlers.Jobs,
		EventsHandler:  handlers.Events,
		MyHandler:      handlers.My,
		AdminHandler:   handlers.Admin,
	})
}
