package ratelimit

import "fmt"

// Key identifies one quota counter. Quotas are per individual caller
// against a given service, not pooled across a tenant's callers.
type Key struct {
	TenantID  uint64
	ServiceID uint64
	UserID    uint64
}

// String renders the key in the form used by both limiter backends.
func (k Key) String() string {
	return fmt.Sprintf("t:%d:s:%d:u:%d", k.TenantID, k.ServiceID, k.UserID)
}

// Valid reports whether all key components are set.
func (k Key) Valid() bool {
	return k.TenantID != 0 && k.ServiceID != 0 && k.UserID != 0
}
