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

// PermissionHandler manages per-user service access grants. A grant is
// the existence of a permission row; revoking deletes it.
type PermissionHandler struct {
	db *gorm.DB
}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler(db *gorm.DB) *PermissionHandler {
	return &PermissionHandler{db: db}
}

// grantRequest defines the request body for a permission grant.
type grantRequest struct {
	UserID uint64 `json:"user_id"`
}

// Grant allows a user to call a service. Admin or superadmin only; both
// the user and the service must belong to the caller's tenant.
func (h *PermissionHandler) Grant(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if !principal.Role.IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	serviceID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service id"})
		return
	}
	var body grantRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user_id"})
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

	var user models.User
	errUser := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", body.UserID, principal.TenantID).
		Take(&user).Error
	if errUser != nil {
		if errors.Is(errUser, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found or not in your tenant"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var count int64
	errCount := h.db.WithContext(ctx).Model(&models.Permission{}).
		Where("user_id = ? AND service_id = ?", body.UserID, serviceID).
		Count(&count).Error
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Permission already exists"})
		return
	}

	permission := models.Permission{
		TenantID:  principal.TenantID,
		UserID:    body.UserID,
		ServiceID: serviceID,
	}
	if errCreate := h.db.WithContext(ctx).Create(&permission).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Permission added"})
}

// Revoke removes a user's access to a service. Admin or superadmin only.
func (h *PermissionHandler) Revoke(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if !principal.Role.IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
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

	result := h.db.WithContext(ctx).
		Where("user_id = ? AND service_id = ? AND tenant_id = ?", userID, serviceID, principal.TenantID).
		Delete(&models.Permission{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Permission not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Permission removed"})
}
