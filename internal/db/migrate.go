package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/security"
	"github.com/tenantgate/tenantgate/internal/settings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EnvSuperAdminPassword overrides the seeded superadmin password.
const EnvSuperAdminPassword = "SUPERADMIN_PASSWORD"

// Migrate applies the schema and seeds the default tenant and superadmin.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Service{},
		&models.Permission{},
		&models.RateLimitOverride{},
		&models.AuditLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	tenant, errTenant := ensureDefaultTenant(conn)
	if errTenant != nil {
		return errTenant
	}
	return ensureSuperAdmin(conn, tenant)
}

// ensureDefaultTenant seeds the default tenant when absent.
func ensureDefaultTenant(conn *gorm.DB) (*models.Tenant, error) {
	var tenant models.Tenant
	errFind := conn.Where("name = ?", settings.DefaultTenantName).First(&tenant).Error
	if errFind == nil {
		return &tenant, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("db: query default tenant: %w", errFind)
	}

	tenant = models.Tenant{Name: settings.DefaultTenantName, Active: true}
	if errCreate := conn.Create(&tenant).Error; errCreate != nil {
		return nil, fmt.Errorf("db: create default tenant: %w", errCreate)
	}
	log.WithField("tenant", tenant.Name).Info("seeded default tenant")
	return &tenant, nil
}

// ensureSuperAdmin seeds the superadmin account on the default tenant when
// no superadmin exists there.
func ensureSuperAdmin(conn *gorm.DB, tenant *models.Tenant) error {
	var count int64
	if errCount := conn.Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenant.ID, security.RoleSuperAdmin.String()).
		Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: count superadmins: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv(EnvSuperAdminPassword))
	if password == "" {
		password = "supersecretpassword"
	}
	hashed, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("db: hash superadmin password: %w", errHash)
	}

	user := models.User{
		Username: settings.DefaultSuperAdminUsername,
		Password: hashed,
		Role:     security.RoleSuperAdmin.String(),
		TenantID: tenant.ID,
		Active:   true,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		return fmt.Errorf("db: create superadmin: %w", errCreate)
	}
	log.WithFields(log.Fields{
		"tenant":   tenant.Name,
		"username": user.Username,
	}).Info("seeded superadmin account")
	return nil
}
