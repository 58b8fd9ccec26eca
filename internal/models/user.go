package models

import (
	"time"
)

// Roles known to the authorization checks
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that owns CRM documents
type User struct {
	Base
	Fullname            string     `gorm:"size:50;not null" json:"fullname"`
	Email               string     `gorm:"size:50;not null;uniqueIndex" json:"email"`
	Telephone           *string    `gorm:"size:15;uniqueIndex" json:"telephone,omitempty"`
	City                string     `gorm:"size:100" json:"city,omitempty"`
	Country             string     `gorm:"size:56" json:"country,omitempty"`
	Role                string     `gorm:"size:20;not null;default:user" json:"role"`
	Verified            bool       `gorm:"not null;default:false" json:"verified"`
	PasswordHash        string     `gorm:"size:72;not null" json:"-"`
	OTPCode             string     `gorm:"size:64" json:"-"`
	OTPExpiry           *time.Time `json:"-"`
	ResetPasswordToken  string     `gorm:"size:64;index" json:"-"`
	ResetPasswordExpiry *time.Time `json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
