package settings

import "time"

// Gateway defaults.
const (
	// DefaultServiceRateLimit is the per-window request quota applied when a
	// service is created without one.
	DefaultServiceRateLimit = 100
	// RateLimitWindow is the fixed counting window for request quotas.
	RateLimitWindow = 60 * time.Second
	// DefaultProxyTimeout bounds a single outbound request to a backend.
	DefaultProxyTimeout = 30 * time.Second
	// DefaultTenantName is the tenant seeded on first migration.
	DefaultTenantName = "default"
	// DefaultSuperAdminUsername is the account seeded on first migration.
	DefaultSuperAdminUsername = "superadmin"
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "tg:rl"
	// GatewayRoutePrefix is stripped from inbound paths before forwarding.
	GatewayRoutePrefix = "/api"
)
