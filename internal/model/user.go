package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User stores operators with role-based access, scoped to one tenant.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_username"`
	Username     string    `gorm:"not null;uniqueIndex:idx_users_tenant_username"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	// LocationID restricts a cashier to one register location; nil = all.
	LocationID *uuid.UUID `gorm:"type:uuid"`
	Active     bool       `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
