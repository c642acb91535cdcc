package app

import (
	"time"

	"github.com/forgeq/dispatcher/internal/platform/envutil"
	"github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/utils"
)

type Config struct {
	Port string

	StoreURL string

	CORSOrigins []string

	HeartbeatStaleSec  int
	LeaseTimeoutSec    int
	TotalJobTimeoutSec int
	MaxRetries         int
	EventsMax          int

	P0Enabled   bool
	PriorityIPs map[string]struct{}

	LeaseSweeperEnabled bool
	LeaseSweepSec       int

	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTExpiryMin int

	AdminUsername string
	AdminPassword string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port: utils.GetEnv("PORT", "8080", log),

		StoreURL: utils.GetEnv("STORE_URL", "localhost:6379", log),

		CORSOrigins: envutil.CSVList("CORS_ORIGINS"),

		HeartbeatStaleSec:  utils.GetEnvAsInt("HEARTBEAT_STALE_SEC", 30, log),
		LeaseTimeoutSec:    utils.GetEnvAsInt("JOB_LEASE_TIMEOUT_SEC", 180, log),
		TotalJobTimeoutSec: utils.GetEnvAsInt("TOTAL_JOB_TIMEOUT_SEC", 300, log),
		MaxRetries:         utils.GetEnvAsInt("MAX_RETRIES", 3, log),
		EventsMax:          utils.GetEnvAsInt("EVENTS_MAX", 200, log),

		P0Enabled:   envutil.Bool("P0_ENABLED", true),
		PriorityIPs: envutil.CSVSet("PRIORITY_IPS"),

		LeaseSweeperEnabled: envutil.Bool("LEASE_SWEEPER_ENABLED", false),
		LeaseSweepSec:       utils.GetEnvAsInt("LEASE_SWEEP_SEC", 2, log),

		JWTSecret:    utils.GetEnv("JWT_SECRET", "defaultsecret", log),
		JWTIssuer:    utils.GetEnv("JWT_ISS", "forgeq-dispatcher", log),
		JWTAudience:  utils.GetEnv("JWT_AUD", "forgeq-dispatcher-admin", log),
		JWTExpiryMin: utils.GetEnvAsInt("JWT_EXP_MIN", 720, log),

		AdminUsername: utils.GetEnv("ADMIN_USERNAME", "admin", log),
		AdminPassword: utils.GetEnv("ADMIN_PASSWORD", "changeme", log),
	}
}

func (c Config) leaseSweepInterval() time.Duration {
	return time.Duration(c.LeaseSweepSec) * time.Second
}
