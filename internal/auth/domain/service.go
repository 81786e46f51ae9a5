package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	// Authenticate validates an access token and returns its still-active owner.
	Authenticate(ctx context.Context, accessToken string) (*User, error)

	Me(ctx context.Context) (*User, error)
	UpdateMe(ctx context.Context, req UpdateProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (*TokenPair, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

type RegisterRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone"`
	UserType  UserType `json:"user_type"`
	UserAgent string   `json:"-"`
	IPAddress string   `json:"-"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	UserAgent    string `json:"-"`
	IPAddress    string `json:"-"`
}

// UpdateProfileRequest carries only the fields a user may change on themselves.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
