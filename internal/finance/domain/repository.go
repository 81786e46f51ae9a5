package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLine is the slice of an order line an invoice needs to print.
type OrderLine struct {
	ProductName string
	VariantName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// OrderAmounts are the money columns an invoice copies from its order.
type OrderAmounts struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

type Repository interface {
	// Owned reports whether table holds a live row id in the business.
	Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error)
	IsMember(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (bool, error)
	CodeExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string, exceptID snowflake.ID) (bool, error)
	ParentOf(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*snowflake.ID, error)
	CountEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)

	Entries(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) ([]*TransactionEntry, error)
	// LockAccounts loads the accounts for update.
	LockAccounts(ctx context.Context, db *gorm.DB, businessID snowflake.ID, ids []snowflake.ID) ([]*Account, error)
	UpdateAccount(ctx context.Context, db *gorm.DB, account *Account, columns ...string) error
	UpdateTransaction(ctx context.Context, db *gorm.DB, txn *Transaction, columns ...string) error
	UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice, columns ...string) error

	BusinessName(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (string, error)
	OrderAmounts(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*OrderAmounts, error)
	OrderLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderLine, error)
}
