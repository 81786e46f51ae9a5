package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) MemberUserIDs(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roles ...string) ([]snowflake.ID, error) {
	query := db.WithContext(ctx).Table("business_members").
		Where("business_id = ? AND is_active = ?", businessID, true)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	var ids []snowflake.ID
	err := query.Order("id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repo) IsMember(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("business_members").
		Where("business_id = ? AND user_id = ? AND is_active = ?", businessID, userID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) FindPreference(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (*domain.NotificationPreference, error) {
	var pref domain.NotificationPreference
	err := db.WithContext(ctx).
		Where("business_id = ? AND user_id = ?", businessID, userID).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *repo) SavePreference(ctx context.Context, db *gorm.DB, pref *domain.NotificationPreference) error {
	return db.WithContext(ctx).Save(pref).Error
}

func (r *repo) MarkAllRead(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("business_id = ? AND user_id = ? AND is_read = ?", businessID, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at, "updated_at": at})
	return result.RowsAffected, result.Error
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("business_id = ? AND user_id = ? AND is_read = ?", businessID, userID, false).
		Count(&count).Error
	return count, err
}
