package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/crud"
	"gorm.io/gorm"
)

type Service interface {
	Accounts() crud.Store[Account]
	// Transactions accepts an "entries" array on create and returns entries on Get.
	Transactions() crud.Store[Transaction]
	Entries() crud.Store[TransactionEntry]
	Invoices() crud.Store[Invoice]
	Expenses() crud.Store[Expense]
	PaymentTerms() crud.Store[PaymentTerm]

	// Post checks that debits equal credits, applies the entries to account
	// balances and freezes the transaction.
	Post(ctx context.Context, id snowflake.ID) (*Transaction, error)

	RegisterPayment(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (*Invoice, error)
	// ApplyInvoicePayment and ReverseInvoicePayment run inside the caller's transaction.
	ApplyInvoicePayment(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal) (*Invoice, error)
	ReverseInvoicePayment(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal) (*Invoice, error)
	// InvoicePDF renders the invoice, with its order lines when it has an order.
	InvoicePDF(ctx context.Context, id snowflake.ID) ([]byte, error)

	MarkExpensePaid(ctx context.Context, id snowflake.ID) (*Expense, error)
}
