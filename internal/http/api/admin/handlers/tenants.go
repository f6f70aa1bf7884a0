package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/models"
)

// TenantHandler manages tenant administration endpoints. All of them are
// superadmin-only; the route group enforces that.
type TenantHandler struct {
	db *gorm.DB
}

// NewTenantHandler constructs a TenantHandler.
func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

// createTenantRequest defines the request body for tenant creation.
type createTenantRequest struct {
	Name string `json:"name"`
}

// Create registers a new tenant. Tenant names are globally unique.
func (h *TenantHandler) Create(c *gin.Context) {
	var body createTenantRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant name is required"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant name is required"})
		return
	}
	ctx := c.Request.Context()

	var count int64
	if errCount := h.db.WithContext(ctx).Model(&models.Tenant{}).Where("name = ?", name).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Tenant name already exists"})
		return
	}

	tenant := models.Tenant{Name: name, Active: true}
	if errCreate := h.db.WithContext(ctx).Create(&tenant).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Tenant created successfully",
		"tenant": gin.H{
			"id":   tenant.ID,
			"name": tenant.Name,
		},
	})
}

// List returns all tenants.
func (h *TenantHandler) List(c *gin.Context) {
	var rows []models.Tenant
	if errFind := h.db.WithContext(c.Request.Context()).Order("id").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":     row.ID,
			"name":   row.Name,
			"active": row.Active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tenants": out})
}

// Enable re-activates a tenant so its traffic flows again.
func (h *TenantHandler) Enable(c *gin.Context) {
	h.setActive(c, true, "Tenant enabled")
}

// Disable deactivates a tenant. Proxy requests from its users are
// rejected until it is enabled again.
func (h *TenantHandler) Disable(c *gin.Context) {
	h.setActive(c, false, "Tenant disabled")
}

func (h *TenantHandler) setActive(c *gin.Context, active bool, message string) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}
	ctx := c.Request.Context()

	var tenant models.Tenant
	if errFind := h.db.WithContext(ctx).First(&tenant, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&tenant).Update("active", active).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
