// Package app wires configuration, storage, and the HTTP surfaces into a
// runnable gateway server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/access"
	"github.com/tenantgate/tenantgate/internal/audit"
	"github.com/tenantgate/tenantgate/internal/catalog"
	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/db"
	adminapi "github.com/tenantgate/tenantgate/internal/http/api/admin"
	authapi "github.com/tenantgate/tenantgate/internal/http/api/auth"
	gatewayapi "github.com/tenantgate/tenantgate/internal/http/api/gateway"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/proxy"
	"github.com/tenantgate/tenantgate/internal/ratelimit"
	"github.com/tenantgate/tenantgate/internal/settings"

	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the gateway with database-backed components and serves
// until the context is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if jwtCfg.Secret == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or %s)", config.EnvJWTSecret)
	}
	proxyCfg := config.LoadProxyConfig(configPath)

	limiter := ratelimit.NewManager(func() config.RedisConfig {
		// Re-read on demand so a config edit can switch backends without
		// a restart.
		return config.LoadRedisConfig(configPath)
	}, settings.RateLimitWindow, nil, nil)

	engine := NewRouter(conn, jwtCfg, proxyCfg, limiter)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("gateway server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	log.Info("gateway server stopped")
	return nil
}

// NewRouter assembles the gin engine with every route and middleware the
// gateway serves. Exposed so tests can drive the full HTTP surface.
func NewRouter(conn *gorm.DB, jwtCfg config.JWTConfig, proxyCfg config.ProxyConfig, limiter *ratelimit.Manager) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())

	recorder := audit.NewRecorder(conn)
	engine.Use(recorder.Middleware())

	authMW := middleware.Auth(jwtCfg)

	authHandler := authapi.NewHandler(conn, jwtCfg)
	authHandler.Register(engine, authMW)

	adminapi.RegisterAdminRoutes(engine, conn, authMW)

	cat := catalog.New(conn)
	pipeline := proxy.NewPipeline(conn, cat, access.New(conn), limiter, proxy.NewForwarder(proxyCfg.Timeout))

	gatewayGroup := engine.Group("")
	gatewayGroup.Use(authMW)
	gatewayapi.NewHandler(pipeline, cat).Register(gatewayGroup)

	return engine
}
