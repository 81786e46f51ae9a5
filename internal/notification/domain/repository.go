package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// MemberUserIDs lists active members of the business, optionally restricted to roles.
	MemberUserIDs(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roles ...string) ([]snowflake.ID, error)
	IsMember(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (bool, error)
	FindPreference(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (*NotificationPreference, error)
	SavePreference(ctx context.Context, db *gorm.DB, pref *NotificationPreference) error
	MarkAllRead(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (int64, error)
}
