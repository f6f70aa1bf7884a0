package models

import "time"

// Service is a catalog entry describing a backend reachable through the
// gateway. The (tenant, version, name) coordinates are unique.
type Service struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64  `gorm:"not null;index;uniqueIndex:idx_services_coordinates"` // Owning tenant ID.
	Tenant   *Tenant `gorm:"foreignKey:TenantID"`                                 // Owning tenant.

	Version string `gorm:"type:text;not null;uniqueIndex:idx_services_coordinates"` // Version segment, matched exactly.
	Name    string `gorm:"type:text;not null;uniqueIndex:idx_services_coordinates"` // Service name, matched exactly.

	Target string `gorm:"type:text;not null"` // Base URL of the backend.

	RateLimit int `gorm:"not null;default:100"` // Default requests per window.

	// Swagger holds the stored swagger document verbatim. Kept as text so the
	// docs endpoint can detect and report corrupt documents instead of the
	// database rejecting them.
	Swagger string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
