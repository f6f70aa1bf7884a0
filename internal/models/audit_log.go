package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a mutating administrative request.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID string `gorm:"type:text;not null;index"` // Request correlation ID.

	TenantID *uint64 `gorm:"index"`     // Tenant of the acting user, if known.
	UserID   *uint64 `gorm:"index"`     // Acting user ID, if known.
	Username string  `gorm:"type:text"` // Acting username, "guest" when unauthenticated.

	Action   string `gorm:"type:text;not null"` // create, update, or delete.
	Resource string `gorm:"type:text;not null"` // First path segment under the API root.
	Method   string `gorm:"type:text;not null"` // HTTP method.
	Path     string `gorm:"type:text;not null"` // Full request path.

	Status     int   `gorm:"not null"` // Response status code.
	DurationMS int64 `gorm:"not null"` // Handler duration in milliseconds.

	ClientIP string `gorm:"type:text"` // Remote address or X-Forwarded-For.

	Detail datatypes.JSON `gorm:"type:jsonb"` // Extra request metadata.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
