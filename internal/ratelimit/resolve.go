package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/settings"

	"gorm.io/gorm"
)

// ResolveLimit computes the effective quota for a caller against a
// service: a positive per-user override wins, otherwise the service
// default applies. A stored override of zero means "no override" — the
// management API deletes the row instead of writing zero, but a zero that
// slips through is treated as absent here too.
func ResolveLimit(ctx context.Context, db *gorm.DB, tenantID, userID uint64, service *models.Service) (int, error) {
	if service == nil {
		return 0, fmt.Errorf("rate limit: nil service")
	}

	fallback := service.RateLimit
	if fallback <= 0 {
		fallback = settings.DefaultServiceRateLimit
	}

	if db == nil || tenantID == 0 || userID == 0 {
		return fallback, nil
	}

	var override models.RateLimitOverride
	errFind := db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND service_id = ?", tenantID, userID, service.ID).
		Take(&override).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fallback, nil
		}
		return 0, fmt.Errorf("rate limit: query override: %w", errFind)
	}
	if override.RateLimit > 0 {
		return override.RateLimit, nil
	}
	return fallback, nil
}
