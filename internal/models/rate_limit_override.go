package models

import "time"

// RateLimitOverride is a per-user exception to a service's default rate
// limit. Writing a zero limit deletes the row instead of storing it; a
// stored zero is treated as absent by the resolver.
type RateLimitOverride struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID  uint64 `gorm:"not null;uniqueIndex:idx_overrides_subject"` // Owning tenant ID.
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_overrides_subject"` // Overridden user ID.
	ServiceID uint64 `gorm:"not null;uniqueIndex:idx_overrides_subject"` // Target service ID.

	RateLimit int `gorm:"not null"` // Requests per window for this user.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
