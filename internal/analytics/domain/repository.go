package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/gorm"
)

// SalesTotals aggregates sold orders inside a window.
type SalesTotals struct {
	Orders int64
	Sales  decimal.Decimal
	Items  int64
	Cost   decimal.Decimal
}

// SoldOrder is the slice of an order the per-day breakdown needs.
type SoldOrder struct {
	OrderDate time.Time
	Total     decimal.Decimal
}

type ReservationTotals struct {
	Total     int64
	Completed int64
	Cancelled int64
}

type StockTotals struct {
	Low        int64
	OutOfStock int64
}

type Repository interface {
	BusinessTimezone(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error)

	// Sales sums orders in a sold status whose order_date falls in w.
	Sales(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window) (*SalesTotals, error)
	SoldOrders(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window) ([]SoldOrder, error)
	TopProducts(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window, limit int) ([]TopProduct, error)
	TopCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window, limit int) ([]TopCustomer, error)
	NewCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window) (int64, error)
	// ReturningCustomers counts buyers in w who had bought before w.Start.
	ReturningCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window) (int64, error)
	Expenses(ctx context.Context, db *gorm.DB, businessID snowflake.ID, from, to db.Date) (decimal.Decimal, error)
	Reservations(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w Window) (*ReservationTotals, error)
	Stock(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*StockTotals, error)

	FindSummary(ctx context.Context, db *gorm.DB, businessID snowflake.ID, date db.Date) (*DailySummary, error)
	FindReport(ctx context.Context, db *gorm.DB, businessID snowflake.ID, reportType ReportType, start, end db.Date) (*SalesReport, error)
}
