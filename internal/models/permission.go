package models

import "time"

// Permission grants a user access to a service. Existence is the grant;
// revocation deletes the row.
type Permission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID  uint64 `gorm:"not null;uniqueIndex:idx_permissions_grant"` // Owning tenant ID.
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_permissions_grant"` // Granted user ID.
	ServiceID uint64 `gorm:"not null;uniqueIndex:idx_permissions_grant"` // Target service ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
