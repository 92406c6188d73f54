package model

import "time"

// Operator roles. The engine endpoints only ever consume the role claim.
const (
	RoleAdmin      = "admin"
	RolePlanner    = "planner"
	RoleLineLeader = "line_leader"
	RoleViewer     = "viewer"
)

// User is a dashboard account. Password hashes are bcrypt.
type User struct {
	ID           int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash *string    `gorm:"size:128" json:"-"`
	Name         string     `gorm:"size:128;not null" json:"name"`
	Role         string     `gorm:"size:32;not null" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
}
