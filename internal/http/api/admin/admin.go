// Package admin wires the administration surface: tenant and user
// management, the service catalog, permission grants, and rate limit
// overrides.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/http/api/admin/handlers"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/security"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
// authMW must be the shared bearer-token middleware; the /admin group is
// superadmin-only on top of it, /gateway does per-handler role checks.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, authMW gin.HandlerFunc) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/admin")
	adminGroup.Use(authMW)
	adminGroup.Use(superadminOnly())

	tenantHandler := handlers.NewTenantHandler(db)
	adminGroup.POST("/tenants", tenantHandler.Create)
	adminGroup.GET("/tenants", tenantHandler.List)
	adminGroup.POST("/tenants/:id/enable", tenantHandler.Enable)
	adminGroup.POST("/tenants/:id/disable", tenantHandler.Disable)

	userHandler := handlers.NewUserHandler(db)
	adminGroup.GET("/users/:tenantId", userHandler.ListByTenant)
	adminGroup.POST("/users/:tenantId/role", userHandler.UpdateRole)

	gatewayGroup := r.Group("/gateway")
	gatewayGroup.Use(authMW)

	serviceHandler := handlers.NewServiceHandler(db)
	gatewayGroup.GET("/services", serviceHandler.List)
	gatewayGroup.POST("/services", serviceHandler.Create)
	gatewayGroup.PUT("/services/:id/rate-limit", serviceHandler.UpdateRateLimit)

	overrideHandler := handlers.NewOverrideHandler(db)
	gatewayGroup.PUT("/services/:id/user-rate-limit", overrideHandler.Put)
	gatewayGroup.GET("/services/:id/user-rate-limits/:userId", overrideHandler.Get)

	permissionHandler := handlers.NewPermissionHandler(db)
	gatewayGroup.POST("/services/:id/permissions", permissionHandler.Grant)
	gatewayGroup.DELETE("/services/:id/permissions/:userId", permissionHandler.Revoke)
}

// superadminOnly rejects any principal below superadmin.
func superadminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.Principal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if principal.Role != security.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden, superadmin only"})
			return
		}
		c.Next()
	}
}
