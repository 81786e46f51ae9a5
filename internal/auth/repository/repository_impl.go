package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	tx := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) ListMemberships(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.MembershipSummary, error) {
	var rows []domain.MembershipSummary
	err := db.WithContext(ctx).
		Table("business_members AS m").
		Select("m.business_id AS business_id, b.name AS name, b.slug AS slug, m.role AS role").
		Joins("JOIN businesses AS b ON b.id = m.business_id").
		Where("m.user_id = ? AND m.is_active = ? AND b.is_deleted = ?", userID, true, false).
		Order("b.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CreateRefreshToken(ctx context.Context, db *gorm.DB, token *domain.RefreshToken) error {
	return db.WithContext(ctx).Create(token).Error
}

func (r *repo) FindRefreshToken(ctx context.Context, db *gorm.DB, jti string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := db.WithContext(ctx).Where("id = ?", jti).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeRefreshToken reports whether this call revoked the token, so a token
// can only be rotated once.
func (r *repo) RevokeRefreshToken(ctx context.Context, db *gorm.DB, jti string, at time.Time) (bool, error) {
	tx := db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", at)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) RevokeUserRefreshTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

func (r *repo) CreateResetToken(ctx context.Context, db *gorm.DB, token *domain.PasswordResetToken) error {
	return db.WithContext(ctx).Create(token).Error
}

func (r *repo) FindResetToken(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repo) MarkResetTokenUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	tx := db.WithContext(ctx).Model(&domain.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
