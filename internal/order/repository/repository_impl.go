package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table(table).
		Where("business_id = ? AND id = ? AND is_deleted = ?", businessID, id, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) Items(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.OrderItem, error) {
	var items []*domain.OrderItem
	err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *repo) CountItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.OrderItem{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (r *repo) UpdateOrder(ctx context.Context, db *gorm.DB, order *domain.Order, columns ...string) error {
	return db.WithContext(ctx).Model(order).Select(append(columns, "updated_at")).Updates(order).Error
}

func (r *repo) PaidTotal(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.WithContext(ctx).Model(&domain.OrderPayment{}).
		Where("order_id = ? AND status = ?", orderID, domain.PaymentCompleted).
		Pluck("amount", &amounts).Error
	return sum(amounts), err
}

func (r *repo) RefundTotal(ctx context.Context, db *gorm.DB, orderID, exceptID snowflake.ID, statuses ...domain.RefundStatus) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.WithContext(ctx).Model(&domain.OrderRefund{}).
		Where("order_id = ? AND id <> ? AND status IN ?", orderID, exceptID, statuses).
		Pluck("amount", &amounts).Error
	return sum(amounts), err
}

// sum adds in Go; SQL SUM over decimal columns comes back as float on some drivers.
func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func (r *repo) Business(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, string, error) {
	var row struct {
		Name     string
		Currency string
	}
	err := db.WithContext(ctx).Table("businesses").Select("name, currency").Where("id = ?", businessID).Limit(1).Scan(&row).Error
	return row.Name, row.Currency, err
}

func (r *repo) LastPaidAt(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*time.Time, error) {
	var payments []domain.OrderPayment
	err := db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND paid_at IS NOT NULL", orderID, domain.PaymentCompleted).
		Order("paid_at DESC").Limit(1).Find(&payments).Error
	if err != nil || len(payments) == 0 {
		return nil, err
	}
	return payments[0].PaidAt, nil
}
