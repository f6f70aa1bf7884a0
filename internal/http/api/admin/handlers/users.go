package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/security"
)

// UserHandler manages cross-tenant user administration. Superadmin-only;
// the route group enforces that.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// ListByTenant returns the accounts of one tenant.
func (h *UserHandler) ListByTenant(c *gin.Context) {
	tenantID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("tenantId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}

	var rows []models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":       row.ID,
			"username": row.Username,
			"role":     row.Role,
			"active":   row.Active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// updateRoleRequest defines the role-change request body.
type updateRoleRequest struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole changes the role of a user within the given tenant.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	tenantID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("tenantId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}

	var body updateRoleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if body.UserID == 0 || strings.TrimSpace(body.Role) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	role, ok := security.ParseRole(body.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role is not recognized"})
		return
	}
	ctx := c.Request.Context()

	var user models.User
	errFind := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", body.UserID, tenantID).
		Take(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&user).Update("role", role.String()).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated"})
}
