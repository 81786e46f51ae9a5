package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, user *User) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	ListMemberships(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]MembershipSummary, error)

	CreateRefreshToken(ctx context.Context, db *gorm.DB, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, db *gorm.DB, jti string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, db *gorm.DB, jti string, at time.Time) (bool, error)
	RevokeUserRefreshTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) error

	CreateResetToken(ctx context.Context, db *gorm.DB, token *PasswordResetToken) error
	FindResetToken(ctx context.Context, db *gorm.DB, tokenHash string) (*PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
}
