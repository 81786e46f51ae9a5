package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repo) IsMember(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("business_members").
		Where("business_id = ? AND user_id = ? AND is_active = ?", businessID, userID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) CodeExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string, exceptID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Account{}).
		Where("business_id = ? AND code = ? AND id <> ? AND is_deleted = ?", businessID, code, exceptID, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ParentOf(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*snowflake.ID, error) {
	var account domain.Account
	err := db.WithContext(ctx).Select("id", "parent_id").Where("id = ?", accountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account.ParentID, nil
}

func (r *repo) CountEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.TransactionEntry{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

func (r *repo) Entries(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) ([]*domain.TransactionEntry, error) {
	var entries []*domain.TransactionEntry
	err := db.WithContext(ctx).Where("transaction_id = ?", transactionID).Order("id ASC").Find(&entries).Error
	return entries, err
}

func (r *repo) LockAccounts(ctx context.Context, db *gorm.DB, businessID snowflake.ID, ids []snowflake.ID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repo) UpdateAccount(ctx context.Context, db *gorm.DB, account *domain.Account, columns ...string) error {
	return db.WithContext(ctx).Model(account).Select(append(columns, "updated_at")).Updates(account).Error
}

func (r *repo) UpdateTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, columns ...string) error {
	return db.WithContext(ctx).Model(txn).Select(append(columns, "updated_at")).Updates(txn).Error
}

func (r *repo) UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, columns ...string) error {
	return db.WithContext(ctx).Model(invoice).Select(append(columns, "updated_at")).Updates(invoice).Error
}

func (r *repo) BusinessName(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error) {
	var names []string
	err := db.WithContext(ctx).Table("businesses").Where("id = ?", businessID).Limit(1).Pluck("name", &names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

// OrderAmounts folds shipping into the subtotal; invoices carry no shipping column.
func (r *repo) OrderAmounts(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.OrderAmounts, error) {
	var order orderdomain.Order
	err := db.WithContext(ctx).Where("id = ? AND is_deleted = ?", orderID, false).Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &domain.OrderAmounts{
		Subtotal:       order.Subtotal.Add(order.ShippingCost),
		DiscountAmount: order.DiscountAmount,
		TaxAmount:      order.TaxAmount,
		Total:          order.Total,
	}, nil
}

func (r *repo) OrderLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderLine, error) {
	var items []*orderdomain.OrderItem
	if err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.OrderLine{
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return lines, nil
}
