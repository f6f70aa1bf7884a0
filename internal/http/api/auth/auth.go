// Package auth implements token issuance and account registration.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/security"

	log "github.com/sirupsen/logrus"
)

// Handler serves the authentication endpoints.
type Handler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewHandler constructs an auth Handler.
func NewHandler(db *gorm.DB, jwtCfg config.JWTConfig) *Handler {
	return &Handler{db: db, jwtCfg: jwtCfg}
}

// Register mounts the auth routes. Login is public; registration requires
// an authenticated superadmin.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	group := r.Group("/auth")
	group.POST("/login", h.Login)
	group.POST("/register", authMW, h.RegisterUser)
}

// loginRequest defines the login request body. Tenant is the tenant's
// name, not its ID; usernames are only unique within a tenant.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Tenant   string `json:"tenant"`
}

// Login exchanges tenant-scoped credentials for a signed bearer token.
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	username := strings.TrimSpace(body.Username)
	tenantName := strings.TrimSpace(body.Tenant)
	if username == "" || body.Password == "" || tenantName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	ctx := c.Request.Context()

	var tenant models.Tenant
	if errFind := h.db.WithContext(ctx).Where("name = ?", tenantName).Take(&tenant).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		log.WithError(errFind).Error("auth: tenant lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var user models.User
	errUser := h.db.WithContext(ctx).
		Where("username = ? AND tenant_id = ?", username, tenant.ID).
		Take(&user).Error
	if errUser != nil {
		if errors.Is(errUser, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.WithError(errUser).Error("auth: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	role, ok := security.ParseRole(user.Role)
	if !ok {
		log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Error("auth: stored role is not recognized")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, security.Principal{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Username: user.Username,
		Role:     role,
	})
	if errToken != nil {
		log.WithError(errToken).Error("auth: token signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// registerRequest defines the registration request body. New accounts
// always land in the caller's tenant.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterUser creates an account in the caller's tenant. Only a
// superadmin may register users.
func (h *Handler) RegisterUser(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	username := strings.TrimSpace(body.Username)
	roleRaw := strings.TrimSpace(body.Role)

	var details []string
	details = append(details, security.ValidateUsername(username)...)
	details = append(details, security.ValidatePassword(body.Password)...)
	details = append(details, security.ValidateRole(roleRaw)...)
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
		return
	}

	if principal.Role != security.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: Only superadmin can register users"})
		return
	}
	ctx := c.Request.Context()

	cleanUsername := strings.ToLower(username)
	role, _ := security.ParseRole(roleRaw)

	var count int64
	errCount := h.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = ? AND tenant_id = ?", cleanUsername, principal.TenantID).
		Count(&count).Error
	if errCount != nil {
		log.WithError(errCount).Error("auth: duplicate check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists in this tenant"})
		return
	}

	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		log.WithError(errHash).Error("auth: password hashing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Username: cleanUsername,
		Password: hashed,
		Role:     role.String(),
		TenantID: principal.TenantID,
		Active:   true,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		log.WithError(errCreate).Error("auth: user creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}
