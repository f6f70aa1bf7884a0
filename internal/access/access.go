package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/security"

	"gorm.io/gorm"
)

// ErrForbidden indicates the principal has no grant for the service.
var ErrForbidden = errors.New("access: forbidden")

// Controller decides whether a principal may call a resolved service.
// The check runs before rate limiting so denied callers never consume a
// quota slot.
type Controller struct {
	db *gorm.DB
}

// New constructs a Controller.
func New(db *gorm.DB) *Controller {
	return &Controller{db: db}
}

// Authorize returns nil when the principal may call the service and
// ErrForbidden otherwise. Privileged roles are always allowed; everyone
// else needs a permission row for (service tenant, user, service).
func (a *Controller) Authorize(ctx context.Context, principal security.Principal, service *models.Service) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("access: not initialized")
	}
	if service == nil {
		return ErrForbidden
	}
	if principal.Role.IsPrivileged() {
		return nil
	}

	var count int64
	errCount := a.db.WithContext(ctx).
		Model(&models.Permission{}).
		Where("tenant_id = ? AND user_id = ? AND service_id = ?", service.TenantID, principal.UserID, service.ID).
		Count(&count).Error
	if errCount != nil {
		return fmt.Errorf("access: query permission: %w", errCount)
	}
	if count == 0 {
		return ErrForbidden
	}
	return nil
}
