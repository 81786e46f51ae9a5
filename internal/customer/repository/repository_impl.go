package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) AdjustLoyalty(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, delta int64) (bool, error) {
	tx := db.WithContext(ctx).Model(&domain.Customer{}).
		Where("business_id = ? AND id = ? AND is_deleted = ?", businessID, id, false).
		Where("loyalty_points + ? >= 0", delta).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", delta))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) BusinessSlug(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error) {
	var slug string
	err := db.WithContext(ctx).Table("businesses").Select("slug").Where("id = ?", businessID).Scan(&slug).Error
	return slug, err
}

func (r *repo) UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("users").Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *repo) ExistsForUser(ctx context.Context, db *gorm.DB, businessID, userID, exceptID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Customer{}).
		Where("business_id = ? AND user_id = ? AND id <> ? AND is_deleted = ?", businessID, userID, exceptID, false).
		Count(&count).Error
	return count > 0, err
}
