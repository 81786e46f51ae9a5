// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserType string

const (
	UserTypeBusinessOwner UserType = "business_owner"
	UserTypeEmployee      UserType = "employee"
	UserTypeCustomer      UserType = "customer"
	UserTypeAdmin         UserType = "admin"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeBusinessOwner, UserTypeEmployee, UserTypeCustomer, UserTypeAdmin:
		return true
	}
	return false
}

// User represents a system user account.
type User struct {
	ID                snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email             string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash      string       `gorm:"type:text;not null" json:"-"`
	FirstName         string       `gorm:"type:text" json:"first_name" validate:"max=150"`
	LastName          string       `gorm:"type:text" json:"last_name" validate:"max=150"`
	Phone             string       `gorm:"type:text" json:"phone" validate:"max=20"`
	AvatarURL         string       `gorm:"type:text" json:"avatar_url" validate:"omitempty,url"`
	UserType          UserType     `gorm:"type:text;not null;default:'business_owner'" json:"user_type"`
	IsStaff           bool         `gorm:"not null;default:false" json:"is_staff"`
	IsActive          bool         `gorm:"not null" json:"is_active"`
	EmailVerified     bool         `gorm:"not null;default:false" json:"email_verified"`
	PhoneVerified     bool         `gorm:"not null;default:false" json:"phone_verified"`
	PasswordChangedAt *time.Time   `json:"-"`
	LastLoginAt       *time.Time   `json:"last_login_at"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// RefreshToken is the server-side record of an issued refresh token, keyed by its jti.
type RefreshToken struct {
	ID        string       `gorm:"primaryKey;type:text"`
	UserID    snowflake.ID `gorm:"not null;index"`
	UserAgent string       `gorm:"type:text"`
	IPAddress string       `gorm:"type:text"`
	ExpiresAt time.Time    `gorm:"not null;index"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// PasswordResetToken stores only the SHA-256 of the token handed to the user.
type PasswordResetToken struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID    snowflake.ID `gorm:"not null;index"`
	TokenHash string       `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

// MembershipSummary is what login returns for each business the user belongs to.
type MembershipSummary struct {
	BusinessID snowflake.ID `json:"business_id"`
	Name       string       `json:"name"`
	Slug       string       `json:"slug"`
	Role       string       `json:"role"`
}

type TokenPair struct {
	TokenType        string    `json:"token_type"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type AuthResult struct {
	User        *User               `json:"user"`
	Tokens      TokenPair           `json:"tokens"`
	Memberships []MembershipSummary `json:"memberships"`
}
