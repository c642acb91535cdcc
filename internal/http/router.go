package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/forgeq/dispatcher/internal/http/handlers"
	httpMW "github.com/forgeq/dispatcher/internal/http/middleware"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

// RouterConfig wires every handler the dispatcher's HTTP surface needs
// (spec section 6). Fields are nil-checked so a partially wired config
// (as in tests) still yields a working router over the routes it has.
type RouterConfig struct {
	Log            *applog.Logger
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler *httpH.HealthHandler
	AuthHandler   *httpH.AuthHandler
	GPUHandler    *httpH.GPUHandler
	WorkerHandler *httpH.WorkerHandler
	JobsHandler   *httpH.JobsHandler
	EventsHandler *httpH.EventsHandler
	MyHandler     *httpH.MyHandler
	AdminHandler  *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("dispatcher"))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	api := r.Group("/api")

	if cfg.HealthHandler != nil {
		api.GET("/health", cfg.HealthHandler.HealthCheck)
		api.GET("/ping", cfg.HealthHandler.Ping)
	}

	// Public: auth, diagnostics, worker pull-pool, submission, unauthenticated
	// SSE, and client-scoped self-service (spec section 6).
	if cfg.AuthHandler != nil {
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}
	if cfg.GPUHandler != nil {
		api.GET("/gpu_status", cfg.GPUHandler.Status)
	}
	if cfg.AdminHandler != nil {
		api.GET("/wait_time", cfg.AdminHandler.WaitTime)
	}
	if cfg.WorkerHandler != nil {
		api.POST("/worker/register", cfg.WorkerHandler.Register)
		api.POST("/worker/heartbeat", cfg.WorkerHandler.Heartbeat)
		api.POST("/worker/lease", cfg.WorkerHandler.Lease)
		api.POST("/worker/result", cfg.WorkerHandler.Result)
		api.POST("/worker/error", cfg.WorkerHandler.Error)
	}
	if cfg.JobsHandler != nil {
		api.POST("/jobs", cfg.JobsHandler.Submit)
		api.POST("/swap", cfg.JobsHandler.Submit)
	}
	if cfg.EventsHandler != nil {
		api.GET("/jobs/:id/events", cfg.EventsHandler.Stream)
	}
	if cfg.MyHandler != nil {
		api.GET("/my/jobs", cfg.MyHandler.Jobs)
		api.GET("/my/signed_url", cfg.MyHandler.SignedURL)
	}

	// Admin: everything that inspects or mutates jobs across clients.
	admin := api.Group("/")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			admin.GET("/auth/me", cfg.AuthHandler.Me)
		}
		if cfg.JobsHandler != nil {
			admin.GET("/jobs", cfg.JobsHandler.List)
			admin.GET("/jobs/:id", cfg.JobsHandler.Get)
			admin.GET("/jobs/:id/signed_url", cfg.JobsHandler.SignedURL)
			admin.POST("/jobs/:id/cancel", cfg.JobsHandler.Cancel)
			admin.POST("/jobs/:id/retry", cfg.JobsHandler.Retry)
			admin.DELETE("/jobs/:id", cfg.JobsHandler.Delete)
		}
		if cfg.EventsHandler != nil {
			admin.GET("/jobs/:id/events/stream", cfg.EventsHandler.Stream)
		}
		if cfg.AdminHandler != nil {
			admin.GET("/workers", cfg.AdminHandler.Workers)
			admin.GET("/metrics", cfg.AdminHandler.Metrics)
		}
	}

	return r
}
