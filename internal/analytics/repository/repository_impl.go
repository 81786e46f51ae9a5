package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/analytics/domain"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	reservationdomain "github.com/smallbiznis/bizcore/internal/reservation/domain"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/gorm"
)

// soldStatuses are the order states that count as revenue.
var soldStatuses = []orderdomain.Status{
	orderdomain.StatusConfirmed,
	orderdomain.StatusProcessing,
	orderdomain.StatusReady,
	orderdomain.StatusCompleted,
}

const soldWhere = `o.business_id = ? AND o.is_deleted = ? AND o.status IN ?
	AND o.order_date >= ? AND o.order_date < ?`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func soldArgs(businessID snowflake.ID, w domain.Window) []any {
	return []any{businessID, false, soldStatuses, w.Start.UTC(), w.End.UTC()}
}

func (r *repo) BusinessTimezone(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error) {
	var zones []string
	err := db.WithContext(ctx).Table("businesses").Where("id = ?", businessID).Limit(1).Pluck("timezone", &zones).Error
	if err != nil || len(zones) == 0 {
		return "", err
	}
	return zones[0], nil
}

type orderTotalsRow struct {
	Orders int64
	Sales  decimal.Decimal
}

type itemTotalsRow struct {
	Items int64
	Cost  decimal.Decimal
}

func (r *repo) Sales(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window) (*domain.SalesTotals, error) {
	var orders orderTotalsRow
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS orders, COALESCE(SUM(o.total), 0) AS sales
		 FROM orders o
		 WHERE `+soldWhere,
		soldArgs(businessID, w)...,
	).Scan(&orders).Error; err != nil {
		return nil, err
	}

	var items itemTotalsRow
	if err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(oi.quantity), 0) AS items,
		        COALESCE(SUM(oi.quantity * COALESCE(v.cost_price, p.cost_price, 0)), 0) AS cost
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 LEFT JOIN products p ON p.id = oi.product_id
		 LEFT JOIN product_variants v ON v.id = oi.variant_id
		 WHERE `+soldWhere,
		soldArgs(businessID, w)...,
	).Scan(&items).Error; err != nil {
		return nil, err
	}

	return &domain.SalesTotals{
		Orders: orders.Orders,
		Sales:  orders.Sales.Round(2),
		Items:  items.Items,
		Cost:   items.Cost.Round(2),
	}, nil
}

func (r *repo) SoldOrders(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window) ([]domain.SoldOrder, error) {
	var rows []domain.SoldOrder
	err := db.WithContext(ctx).Raw(
		`SELECT o.order_date AS order_date, o.total AS total
		 FROM orders o
		 WHERE `+soldWhere+`
		 ORDER BY o.order_date ASC`,
		soldArgs(businessID, w)...,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) TopProducts(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window, limit int) ([]domain.TopProduct, error) {
	var rows []domain.TopProduct
	err := db.WithContext(ctx).Raw(
		`SELECT oi.product_id AS product_id,
		        MAX(oi.product_name) AS product_name,
		        SUM(oi.quantity) AS quantity,
		        SUM(oi.total) AS revenue
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE `+soldWhere+`
		 GROUP BY oi.product_id
		 ORDER BY revenue DESC, oi.product_id ASC
		 LIMIT ?`,
		append(soldArgs(businessID, w), limit)...,
	).Scan(&rows).Error
	for i := range rows {
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, err
}

type customerRow struct {
	CustomerID snowflake.ID
	FirstName  string
	LastName   string
	Orders     int64
	Total      decimal.Decimal
}

func (r *repo) TopCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window, limit int) ([]domain.TopCustomer, error) {
	var rows []customerRow
	err := db.WithContext(ctx).Raw(
		`SELECT o.customer_id AS customer_id,
		        MAX(c.first_name) AS first_name,
		        MAX(c.last_name) AS last_name,
		        COUNT(*) AS orders,
		        SUM(o.total) AS total
		 FROM orders o
		 LEFT JOIN customers c ON c.id = o.customer_id
		 WHERE `+soldWhere+` AND o.customer_id IS NOT NULL
		 GROUP BY o.customer_id
		 ORDER BY total DESC, o.customer_id ASC
		 LIMIT ?`,
		append(soldArgs(businessID, w), limit)...,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TopCustomer, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TopCustomer{
			CustomerID: row.CustomerID,
			Name:       strings.TrimSpace(row.FirstName + " " + row.LastName),
			Orders:     row.Orders,
			Total:      row.Total.Round(2),
		})
	}
	return out, nil
}

func (r *repo) NewCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("customers").
		Where("business_id = ? AND is_deleted = ? AND created_at >= ? AND created_at < ?", businessID, false, w.Start.UTC(), w.End.UTC()).
		Count(&count).Error
	return count, err
}

func (r *repo) ReturningCustomers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window) (int64, error) {
	var count int64
	args := append(soldArgs(businessID, w), false, soldStatuses, w.Start.UTC())
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT o.customer_id)
		 FROM orders o
		 WHERE `+soldWhere+` AND o.customer_id IS NOT NULL
		   AND EXISTS (
		     SELECT 1 FROM orders prior
		     WHERE prior.business_id = o.business_id
		       AND prior.customer_id = o.customer_id
		       AND prior.is_deleted = ?
		       AND prior.status IN ?
		       AND prior.order_date < ?
		   )`,
		args...,
	).Scan(&count).Error
	return count, err
}

func (r *repo) Expenses(ctx context.Context, conn *gorm.DB, businessID snowflake.ID, from, to db.Date) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := conn.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total), 0) AS total
		 FROM expenses
		 WHERE business_id = ? AND is_deleted = ? AND payment_status <> ?
		   AND expense_date >= ? AND expense_date <= ?`,
		businessID, false, financedomain.ExpenseCancelled, from, to,
	).Scan(&row).Error
	return row.Total.Round(2), err
}

func (r *repo) Reservations(ctx context.Context, db *gorm.DB, businessID snowflake.ID, w domain.Window) (*domain.ReservationTotals, error) {
	var totals domain.ReservationTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled
		 FROM reservations
		 WHERE business_id = ? AND is_deleted = ? AND start_datetime >= ? AND start_datetime < ?`,
		reservationdomain.StatusCompleted, reservationdomain.StatusCancelled,
		businessID, false, w.Start.UTC(), w.End.UTC(),
	).Scan(&totals).Error
	return &totals, err
}

// Stock counts out-of-stock rows separately from low ones.
func (r *repo) Stock(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*domain.StockTotals, error) {
	var totals domain.StockTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE WHEN quantity > 0 AND quantity <= min_stock_level THEN 1 ELSE 0 END), 0) AS low,
		        COALESCE(SUM(CASE WHEN quantity <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock
		 FROM inventory_items
		 WHERE business_id = ? AND is_deleted = ?`,
		businessID, false,
	).Scan(&totals).Error
	return &totals, err
}

func (r *repo) FindSummary(ctx context.Context, conn *gorm.DB, businessID snowflake.ID, date db.Date) (*domain.DailySummary, error) {
	var summary domain.DailySummary
	err := conn.WithContext(ctx).Where("business_id = ? AND date = ?", businessID, date).Take(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *repo) FindReport(ctx context.Context, conn *gorm.DB, businessID snowflake.ID, reportType domain.ReportType, start, end db.Date) (*domain.SalesReport, error) {
	var report domain.SalesReport
	err := conn.WithContext(ctx).
		Where("business_id = ? AND report_type = ? AND period_start = ? AND period_end = ?", businessID, reportType, start, end).
		Take(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}
