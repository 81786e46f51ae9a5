package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// AdjustLoyalty adds delta points unless the balance would go negative.
	AdjustLoyalty(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, delta int64) (bool, error)
	BusinessSlug(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error)
	UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error)
	ExistsForUser(ctx context.Context, db *gorm.DB, businessID, userID, exceptID snowflake.ID) (bool, error)
}
