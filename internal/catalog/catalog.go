package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantgate/tenantgate/internal/models"

	"gorm.io/gorm"
)

// ErrServiceNotFound indicates no service matches the requested coordinates.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Catalog resolves service coordinates against the database. It performs
// reads only; catalog mutation belongs to the admin API.
type Catalog struct {
	db *gorm.DB
}

// New constructs a Catalog.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Resolve finds the service registered under (tenantID, version, name).
// Matching is exact and case-sensitive on all three coordinates.
func (c *Catalog) Resolve(ctx context.Context, tenantID uint64, version, name string) (*models.Service, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("catalog: not initialized")
	}
	if tenantID == 0 || version == "" || name == "" {
		return nil, ErrServiceNotFound
	}

	var service models.Service
	errFind := c.db.WithContext(ctx).
		Where("tenant_id = ? AND version = ? AND name = ?", tenantID, version, name).
		Take(&service).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: resolve: %w", errFind)
	}
	return &service, nil
}
