package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error)
	// Overlapping reports whether the provider holds an active reservation
	// intersecting [start, end), ignoring exceptID.
	Overlapping(ctx context.Context, db *gorm.DB, providerID snowflake.ID, start, end time.Time, exceptID snowflake.ID) (bool, error)
	BlockingAvailability(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]*ProviderAvailability, error)
	ServicesTotal(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) (decimal.Decimal, error)
	UpdateReservation(ctx context.Context, db *gorm.DB, r *Reservation, columns ...string) error
}
