package app

import (
	"time"

	"github.com/forgeq/dispatcher/internal/adminauth"
	"github.com/forgeq/dispatcher/internal/dispatcher/gateway"
	"github.com/forgeq/dispatcher/internal/dispatcher/lease"
	"github.com/forgeq/dispatcher/internal/dispatcher/reaper"
	"github.com/forgeq/dispatcher/internal/dispatcher/registry"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

// Services holds the dispatcher's domain components (spec section 4),
// each built directly against the store/blob clients rather than a
// repository layer.
type Services struct {
	Gateway  *gateway.Gateway
	Registry *registry.Registry
	Lease    *lease.Manager
	Reaper   *reaper.Reaper
	Auth     *adminauth.Service
}

func wireServices(log *applog.Logger, cfg Config, clients Clients) Services {
	log.Info("Wiring services...")

	gw := gateway.New(log, clients.Store, clients.Blob, gateway.Config{
		P0Enabled:   cfg.P0Enabled,
		PriorityIPs: cfg.PriorityIPs,
		EventsMax:   cfg.EventsMax,
	})

	reg := registry.New(log, clients.Store, registry.Config{
		HeartbeatStaleSec: cfg.HeartbeatStaleSec,
	})

	leaseMgr := lease.New(log, clients.Store, clients.Blob, lease.Config{
		LeaseTimeoutSec:    cfg.LeaseTimeoutSec,
		TotalJobTimeoutSec: cfg.TotalJobTimeoutSec,
		MaxRetries:         cfg.MaxRetries,
		EventsMax:          cfg.EventsMax,
	})

	rp := reaper.New(log, clients.Store, reaper.Config{
		SweepInterval: cfg.leaseSweepInterval(),
		MaxRetries:    cfg.MaxRetries,
		EventsMax:     cfg.EventsMax,
	})

	auth := adminauth.New(adminauth.Config{
		Secret:        cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     time.Duration(cfg.JWTExpiryMin) * time.Minute,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	})

	return Services{Gateway: gw, Registry: reg, Lease: leaseMgr, Reaper: rp, Auth: auth}
}
