package models

import "time"

// User represents an end-user account scoped to a tenant.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex:idx_users_tenant_username"` // Login name, unique per tenant.
	Password string `gorm:"type:text;not null"`                                       // Bcrypt password hash.
	Role     string `gorm:"type:text;not null;default:user"`                          // Role name (see security.Role).

	TenantID uint64  `gorm:"not null;index;uniqueIndex:idx_users_tenant_username"` // Owning tenant ID.
	Tenant   *Tenant `gorm:"foreignKey:TenantID"`                                  // Owning tenant.

	Active bool `gorm:"not null;default:true"` // Whether the user can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
