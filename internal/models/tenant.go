package models

import "time"

// Tenant is a factory: the top-level isolation boundary for every other row.
type Tenant struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRole is the access level of a tenant user.
type UserRole string

const (
	UserRoleOwner    UserRole = "owner"
	UserRoleOperator UserRole = "operator"
)

// User belongs to exactly one tenant.
type User struct {
	ID           int64          `json:"id"`
	TenantID     int64          `json:"tenantId"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Role         UserRole       `json:"role"`
	Permissions  map[string]any `json:"permissions,omitempty"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
}
