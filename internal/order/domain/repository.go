package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	// Owned reports whether table holds a live row id in the business.
	Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error)
	Items(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*OrderItem, error)
	CountItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error)
	// UpdateOrder writes only the given columns.
	UpdateOrder(ctx context.Context, db *gorm.DB, order *Order, columns ...string) error
	PaidTotal(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (decimal.Decimal, error)
	// RefundTotal sums refunds of the order in the given statuses, skipping exceptID.
	RefundTotal(ctx context.Context, db *gorm.DB, orderID, exceptID snowflake.ID, statuses ...RefundStatus) (decimal.Decimal, error)
	// Business returns the display name and currency printed on receipts.
	Business(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (name, currency string, err error)
	LastPaidAt(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*time.Time, error)
}
