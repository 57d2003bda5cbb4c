package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Anything else is rejected at the route boundary.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account. Passwords are stored hashed only and never
// serialized. Email and username are globally unique, enforced by the
// duplicate checks in the handlers before any insert or reassignment.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"userId"`
	Email        string    `gorm:"size:255;index" json:"email"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         string    `gorm:"size:16;not null;default:user" json:"role"`
	Blocked      bool      `gorm:"not null;default:false" json:"blocked"`
	Provider     string    `gorm:"size:32" json:"-"`
	ProviderID   string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id and defaults the role when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// ValidRole reports whether r is an accepted role value.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
