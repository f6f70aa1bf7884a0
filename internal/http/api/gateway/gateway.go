// Package gateway exposes the proxy surface of the API gateway: the
// catch-all forwarding route and the per-service documentation endpoint.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenantgate/tenantgate/internal/catalog"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/proxy"
	"github.com/tenantgate/tenantgate/internal/settings"

	log "github.com/sirupsen/logrus"
)

// Handler owns the gateway routes.
type Handler struct {
	pipeline *proxy.Pipeline
	catalog  *catalog.Catalog
}

// NewHandler constructs the gateway handler.
func NewHandler(pipeline *proxy.Pipeline, cat *catalog.Catalog) *Handler {
	return &Handler{pipeline: pipeline, catalog: cat}
}

// Register mounts the gateway routes on the given group. The group is
// expected to carry the authentication middleware already.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group(settings.GatewayRoutePrefix)
	api.GET("/docs/:version/:service/swagger.json", h.SwaggerDoc)
	api.Any("/:version/:service/*path", h.pipeline.Handle)
}

// SwaggerDoc serves the stored OpenAPI document for a service. The
// document is stored as opaque text; it is validated, never rewritten.
func (h *Handler) SwaggerDoc(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	service, errResolve := h.catalog.Resolve(c.Request.Context(), principal.TenantID, c.Param("version"), c.Param("service"))
	if errResolve != nil {
		if errors.Is(errResolve, catalog.ErrServiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
			return
		}
		log.WithError(errResolve).Error("docs: service resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if service.Swagger == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Documentation not found"})
		return
	}
	if !json.Valid([]byte(service.Swagger)) {
		log.WithField("service", service.Name).Error("docs: stored document is not valid JSON")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored documentation is corrupt"})
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(service.Swagger))
}
