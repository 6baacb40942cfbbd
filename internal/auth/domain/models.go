// Package domain contains the user account model and auth contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an account that owns invoices.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	DisplayName  string       `gorm:"type:text" json:"display_name,omitempty"`
	AvatarURL    string       `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
