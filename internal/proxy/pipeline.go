package proxy

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/access"
	"github.com/tenantgate/tenantgate/internal/catalog"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/ratelimit"
	"github.com/tenantgate/tenantgate/internal/security"

	log "github.com/sirupsen/logrus"
)

// Pipeline runs the proxy gate chain for every gateway request:
// resolve the service, check access, check the rate limit, forward.
// Each gate is terminal; later gates never run once one rejects, so a
// denied request leaves no trace in the rate limiter.
type Pipeline struct {
	db        *gorm.DB
	catalog   *catalog.Catalog
	access    *access.Controller
	limiter   *ratelimit.Manager
	forwarder *Forwarder
}

// NewPipeline wires the gate chain components together.
func NewPipeline(db *gorm.DB, cat *catalog.Catalog, ctrl *access.Controller, limiter *ratelimit.Manager, forwarder *Forwarder) *Pipeline {
	return &Pipeline{
		db:        db,
		catalog:   cat,
		access:    ctrl,
		limiter:   limiter,
		forwarder: forwarder,
	}
}

// Handle is the gin handler behind /api/:version/:service/*path for all
// HTTP methods.
func (p *Pipeline) Handle(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	ctx := c.Request.Context()

	if errTenant := p.checkTenantActive(ctx, principal.TenantID); errTenant != nil {
		if errors.Is(errTenant, errTenantDisabled) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenant is disabled"})
			return
		}
		log.WithError(errTenant).Error("gateway: tenant lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	service, errResolve := p.catalog.Resolve(ctx, principal.TenantID, c.Param("version"), c.Param("service"))
	if errResolve != nil {
		if errors.Is(errResolve, catalog.ErrServiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
			return
		}
		log.WithError(errResolve).Error("gateway: service resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if errAuthz := p.access.Authorize(ctx, principal, service); errAuthz != nil {
		if errors.Is(errAuthz, access.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		log.WithError(errAuthz).Error("gateway: permission check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !principal.Role.IsPrivileged() {
		if !p.allowRequest(c, principal, service) {
			return
		}
	}

	p.forward(c, service)
}

// allowRequest consumes one unit of the caller's quota for the service.
// It writes the rejection response itself and reports whether the request
// may proceed.
func (p *Pipeline) allowRequest(c *gin.Context, principal security.Principal, service *models.Service) bool {
	ctx := c.Request.Context()

	limit, errLimit := ratelimit.ResolveLimit(ctx, p.db, principal.TenantID, principal.UserID, service)
	if errLimit != nil {
		log.WithError(errLimit).Error("gateway: rate limit resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	key := ratelimit.Key{TenantID: principal.TenantID, ServiceID: service.ID, UserID: principal.UserID}
	result, errAllow := p.limiter.Allow(ctx, key, limit)
	if errAllow != nil {
		log.WithError(errAllow).Error("gateway: rate limit check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	header := c.Writer.Header()
	header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.Allowed {
		header.Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return false
	}
	return true
}

func (p *Pipeline) forward(c *gin.Context, service *models.Service) {
	errFwd := p.forwarder.Forward(c.Request.Context(), c.Writer, c.Request, service)
	switch {
	case errFwd == nil:
		return
	case errors.Is(errFwd, ErrClientGone):
		// Nothing useful to write; the connection is gone.
		c.Abort()
	case errors.Is(errFwd, ErrUpstreamTimeout):
		log.WithError(errFwd).WithField("service", service.Name).Warn("gateway: upstream timeout")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timeout"})
	case errors.Is(errFwd, ErrUpstreamLookup):
		log.WithError(errFwd).WithField("service", service.Name).Warn("gateway: upstream lookup failed")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream lookup failed"})
	default:
		log.WithError(errFwd).WithField("service", service.Name).Warn("gateway: upstream unreachable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream unreachable"})
	}
}

var errTenantDisabled = errors.New("proxy: tenant disabled")

func (p *Pipeline) checkTenantActive(ctx context.Context, tenantID uint64) error {
	var tenant models.Tenant
	if errFind := p.db.WithContext(ctx).Select("active").Where("id = ?", tenantID).Take(&tenant).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errTenantDisabled
		}
		return errFind
	}
	if !tenant.Active {
		return errTenantDisabled
	}
	return nil
}
