package models

import "time"

// Tenant is the isolation boundary every catalog entry, permission,
// and override belongs to.
type Tenant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Unique tenant name.

	Active bool `gorm:"not null;default:true"` // Whether the tenant may be served.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
