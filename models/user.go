// models/user.go
package models

import (
	"time"
)

const RoleAdmin = "admin"

type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"` // hex-encoded PBKDF2-SHA256
	PasswordSalt string    `json:"-" gorm:"not null"` // hex-encoded random salt
	Role         string    `json:"role" gorm:"default:'admin'"`
	Active       bool      `json:"active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a server-held opaque bearer token. Only populated under
// TOKEN_STRATEGY=session; the jwt strategy keeps no server state.
type Session struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}
