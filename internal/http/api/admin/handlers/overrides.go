package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
)

// OverrideHandler manages per-user rate limit overrides. An override
// replaces the service default for one user; removing it falls back to
// the default. Changes apply on the next window.
type OverrideHandler struct {
	db *gorm.DB
}

// NewOverrideHandler constructs an OverrideHandler.
func NewOverrideHandler(db *gorm.DB) *OverrideHandler {
	return &OverrideHandler{db: db}
}

// putOverrideRequest defines the override request body. Zero removes the
// override instead of storing it; there is no stored "limit of zero".
type putOverrideRequest struct {
	RateLimit *int `json:"rate_limit"`
}

// Put sets or clears the caller's own override for a service. Regular
// users need a permission grant on the service; admins do not.
func (h *OverrideHandler) Put(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	serviceID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service id"})
		return
	}
	var body putOverrideRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.RateLimit == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing rate_limit"})
		return
	}
	if *body.RateLimit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing rate_limit"})
		return
	}
	ctx := c.Request.Context()

	var service models.Service
	errService := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", serviceID, principal.TenantID).
		Take(&service).Error
	if errService != nil {
		if errors.Is(errService, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !principal.Role.IsPrivileged() {
		var count int64
		errCount := h.db.WithContext(ctx).Model(&models.Permission{}).
			Where("user_id = ? AND service_id = ? AND tenant_id = ?", principal.UserID, serviceID, principal.TenantID).
			Count(&count).Error
		if errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to this service"})
			return
		}
	}

	if *body.RateLimit == 0 {
		errDelete := h.db.WithContext(ctx).
			Where("user_id = ? AND service_id = ?", principal.UserID, serviceID).
			Delete(&models.RateLimitOverride{}).Error
		if errDelete != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Override removed, using service default"})
		return
	}

	var override models.RateLimitOverride
	errFind := h.db.WithContext(ctx).
		Where("user_id = ? AND service_id = ?", principal.UserID, serviceID).
		Take(&override).Error
	switch {
	case errFind == nil:
		if errUpdate := h.db.WithContext(ctx).Model(&override).Update("rate_limit", *body.RateLimit).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		override = models.RateLimitOverride{
			TenantID:  principal.TenantID,
			UserID:    principal.UserID,
			ServiceID: serviceID,
			RateLimit: *body.RateLimit,
		}
		if errCreate := h.db.WithContext(ctx).Create(&override).Error; errCreate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit override updated"})
}

// Get returns one user's override for a service. Admins may inspect any
// user; others only themselves, or a service they hold a grant on.
func (h *OverrideHandler) Get(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	serviceID, errParseService := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParseService != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service id"})
		return
	}
	userID, errParseUser := strconv.ParseUint(strings.TrimSpace(c.Param("userId")), 10, 64)
	if errParseUser != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	ctx := c.Request.Context()

	var service models.Service
	errService := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", serviceID, principal.TenantID).
		Take(&service).Error
	if errService != nil {
		if errors.Is(errService, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !principal.Role.IsPrivileged() && principal.UserID != userID {
		var count int64
		errCount := h.db.WithContext(ctx).Model(&models.Permission{}).
			Where("user_id = ? AND service_id = ? AND tenant_id = ?", principal.UserID, serviceID, principal.TenantID).
			Count(&count).Error
		if errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	response := gin.H{
		"service_id":   service.ID,
		"service_name": service.Name,
		"version":      service.Version,
		"target":       service.Target,
		"user_id":      userID,
	}

	var override models.RateLimitOverride
	errFind := h.db.WithContext(ctx).
		Where("user_id = ? AND service_id = ? AND tenant_id = ?", userID, serviceID, principal.TenantID).
		Take(&override).Error
	switch {
	case errFind == nil:
		response["override_rate_limit"] = override.RateLimit
		response["message"] = "Override found"
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		response["override_rate_limit"] = nil
		response["message"] = "No override, using default"
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, response)
}
