package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/crud"
	"gorm.io/gorm"
)

type Service interface {
	crud.Store[Customer]

	AddLoyaltyPoints(ctx context.Context, id snowflake.ID, points int64) (*Customer, error)
	RedeemLoyaltyPoints(ctx context.Context, id snowflake.ID, points int64) (*Customer, error)
	// RecordPurchase updates purchase statistics and awards loyalty points inside tx.
	RecordPurchase(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) error
	// Exists reports whether id is a live customer of the business inside tx.
	Exists(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error)
	GetTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Customer, error)
}
