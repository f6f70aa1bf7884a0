package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/tenantgate/tenantgate/internal/db"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/settings"
)

// ServiceHandler manages the service catalog of the caller's tenant.
type ServiceHandler struct {
	db *gorm.DB
}

// NewServiceHandler constructs a ServiceHandler.
func NewServiceHandler(db *gorm.DB) *ServiceHandler {
	return &ServiceHandler{db: db}
}

// List returns the services registered for the caller's tenant.
func (h *ServiceHandler) List(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	q := h.db.WithContext(c.Request.Context()).
		Preload("Tenant").
		Where("tenant_id = ?", principal.TenantID)
	if nameQ := strings.TrimSpace(c.Query("name")); nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.Service
	if errFind := q.Order("id").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		entry := gin.H{
			"id":         row.ID,
			"version":    row.Version,
			"name":       row.Name,
			"target":     row.Target,
			"rate_limit": row.RateLimit,
		}
		if row.Tenant != nil {
			entry["tenant_name"] = row.Tenant.Name
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"services": out})
}

// createServiceRequest defines the request body for service registration.
type createServiceRequest struct {
	Version   string `json:"version"`
	Name      string `json:"name"`
	Target    string `json:"target"`
	Swagger   string `json:"swagger"`
	RateLimit int    `json:"rate_limit"`
}

// Create registers a service in the caller's tenant. Admin or superadmin
// only; the {version, name} pair must be unique within the tenant.
func (h *ServiceHandler) Create(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body createServiceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	version := strings.TrimSpace(body.Version)
	name := strings.TrimSpace(body.Name)
	target := strings.TrimSpace(body.Target)
	if version == "" || name == "" || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if !principal.Role.IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	ctx := c.Request.Context()

	var count int64
	errCount := h.db.WithContext(ctx).Model(&models.Service{}).
		Where("version = ? AND name = ? AND tenant_id = ?", version, name, principal.TenantID).
		Count(&count).Error
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Service already exists"})
		return
	}

	rateLimit := body.RateLimit
	if rateLimit <= 0 {
		rateLimit = settings.DefaultServiceRateLimit
	}
	service := models.Service{
		TenantID:  principal.TenantID,
		Version:   version,
		Name:      name,
		Target:    target,
		Swagger:   body.Swagger,
		RateLimit: rateLimit,
	}
	if errCreate := h.db.WithContext(ctx).Create(&service).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Service added",
		"service": gin.H{
			"id":         service.ID,
			"version":    service.Version,
			"name":       service.Name,
			"target":     service.Target,
			"rate_limit": service.RateLimit,
		},
	})
}

// updateRateLimitRequest defines the request body for the service-wide
// default rate limit.
type updateRateLimitRequest struct {
	RateLimit *int `json:"rate_limit"`
}

// UpdateRateLimit changes the default per-user rate limit of a service.
// Admin or superadmin only. Takes effect on the next window; in-flight
// window counters are not rewritten.
func (h *ServiceHandler) UpdateRateLimit(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body updateRateLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.RateLimit == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing rate_limit"})
		return
	}
	if *body.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rate_limit"})
		return
	}
	if !principal.Role.IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service id"})
		return
	}
	ctx := c.Request.Context()

	var service models.Service
	errFind := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, principal.TenantID).
		Take(&service).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&service).Update("rate_limit", *body.RateLimit).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated"})
}
