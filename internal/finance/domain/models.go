package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
)

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountRevenue, AccountExpense:
		return true
	}
	return false
}

// DebitNormal accounts grow with debits; the rest grow with credits.
func (t AccountType) DebitNormal() bool {
	return t == AccountAsset || t == AccountExpense
}

type Account struct {
	db.Model
	Code        string          `gorm:"type:text;not null;index" json:"code" validate:"required,max=20"`
	Name        string          `gorm:"type:text;not null" json:"name" validate:"required,max=200"`
	Description string          `gorm:"type:text" json:"description"`
	AccountType AccountType     `gorm:"type:text;not null;index" json:"account_type"`
	ParentID    *snowflake.ID   `gorm:"index" json:"parent_id"`
	Balance     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	db.SoftDelete
}

func (Account) TableName() string { return "accounts" }

type TransactionType string

const (
	TxSale       TransactionType = "sale"
	TxPurchase   TransactionType = "purchase"
	TxPayment    TransactionType = "payment"
	TxReceipt    TransactionType = "receipt"
	TxTransfer   TransactionType = "transfer"
	TxAdjustment TransactionType = "adjustment"
	TxRefund     TransactionType = "refund"
	TxExpense    TransactionType = "expense"
	TxOther      TransactionType = "other"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxSale, TxPurchase, TxPayment, TxReceipt, TxTransfer, TxAdjustment, TxRefund, TxExpense, TxOther:
		return true
	}
	return false
}

type Transaction struct {
	db.Model
	TransactionNumber string          `gorm:"type:text;not null;index" json:"transaction_number"`
	TransactionType   TransactionType `gorm:"type:text;not null;index" json:"transaction_type"`
	TransactionDate   time.Time       `gorm:"not null;index" json:"transaction_date"`
	ReferenceType     string          `gorm:"type:text" json:"reference_type" validate:"max=50"`
	ReferenceID       string          `gorm:"type:text" json:"reference_id" validate:"max=100"`
	OrderID           *snowflake.ID   `gorm:"index" json:"order_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description       string          `gorm:"type:text;not null" json:"description" validate:"required"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedBy         *snowflake.ID   `json:"created_by"`
	IsPosted          bool            `gorm:"not null;index" json:"is_posted"`
	PostedAt          *time.Time      `json:"posted_at"`
	db.SoftDelete

	Entries []*TransactionEntry `gorm:"-" json:"entries,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

func (t EntryType) Valid() bool { return t == Debit || t == Credit }

// TransactionEntry is one side of a double-entry posting. Entries freeze once
// their transaction is posted.
type TransactionEntry struct {
	db.Model
	TransactionID snowflake.ID    `gorm:"not null;index" json:"transaction_id"`
	AccountID     snowflake.ID    `gorm:"not null;index" json:"account_id"`
	EntryType     EntryType       `gorm:"type:text;not null" json:"entry_type"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description   string          `gorm:"type:text" json:"description"`
}

func (TransactionEntry) TableName() string { return "transaction_entries" }

// Balanced reports whether debits equal credits. debits and credits are
// returned for error messages.
func Balanced(entries []*TransactionEntry) (ok bool, debits, credits decimal.Decimal) {
	for _, e := range entries {
		switch e.EntryType {
		case Debit:
			debits = debits.Add(e.Amount)
		case Credit:
			credits = credits.Add(e.Amount)
		}
	}
	return len(entries) > 0 && debits.Equal(credits), debits, credits
}

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePaid          InvoiceStatus = "paid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoicePartiallyPaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

type Invoice struct {
	db.Model
	InvoiceNumber  string          `gorm:"type:text;not null;index" json:"invoice_number"`
	CustomerID     snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	OrderID        *snowflake.ID   `gorm:"index" json:"order_id"`
	PaymentTermID  *snowflake.ID   `json:"payment_term_id"`
	IssueDate      db.Date         `gorm:"not null" json:"issue_date"`
	DueDate        db.Date         `gorm:"not null;index" json:"due_date"`
	PaidDate       *db.Date        `json:"paid_date"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	Status         InvoiceStatus   `gorm:"type:text;not null;index" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Terms          string          `gorm:"type:text" json:"terms"`
	BalanceDue     decimal.Decimal `gorm:"-" json:"balance_due"`
	IsPaid         bool            `gorm:"-" json:"is_paid"`
	db.SoftDelete
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) Compute() {
	i.BalanceDue = i.Total.Sub(i.AmountPaid)
	i.IsPaid = i.AmountPaid.GreaterThanOrEqual(i.Total)
}

// ApplyPayment adds amount to the paid total and settles the status.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, today db.Date) {
	i.AmountPaid = i.AmountPaid.Add(amount)
	i.PaidDate = &today
	if i.AmountPaid.GreaterThanOrEqual(i.Total) {
		i.Status = InvoicePaid
	} else {
		i.Status = InvoicePartiallyPaid
	}
	i.Compute()
}

// ReversePayment takes a refunded amount back off the paid total, never below zero.
func (i *Invoice) ReversePayment(amount decimal.Decimal) {
	i.AmountPaid = i.AmountPaid.Sub(amount)
	if i.AmountPaid.IsNegative() {
		i.AmountPaid = decimal.Zero
	}
	if i.AmountPaid.IsZero() {
		i.Status = InvoiceSent
		i.PaidDate = nil
	} else {
		i.Status = InvoicePartiallyPaid
	}
	i.Compute()
}

type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "rent"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseSalaries    ExpenseCategory = "salaries"
	ExpenseSupplies    ExpenseCategory = "supplies"
	ExpenseMarketing   ExpenseCategory = "marketing"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseTransport   ExpenseCategory = "transport"
	ExpenseTaxes       ExpenseCategory = "taxes"
	ExpenseInsurance   ExpenseCategory = "insurance"
	ExpenseEquipment   ExpenseCategory = "equipment"
	ExpenseOther       ExpenseCategory = "other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseRent, ExpenseUtilities, ExpenseSalaries, ExpenseSupplies, ExpenseMarketing,
		ExpenseMaintenance, ExpenseTransport, ExpenseTaxes, ExpenseInsurance, ExpenseEquipment, ExpenseOther:
		return true
	}
	return false
}

type ExpenseStatus string

const (
	ExpensePending   ExpenseStatus = "pending"
	ExpensePaid      ExpenseStatus = "paid"
	ExpenseOverdue   ExpenseStatus = "overdue"
	ExpenseCancelled ExpenseStatus = "cancelled"
)

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePending, ExpensePaid, ExpenseOverdue, ExpenseCancelled:
		return true
	}
	return false
}

type Recurrence string

const (
	RecurNone    Recurrence = ""
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
	RecurYearly  Recurrence = "yearly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

type Expense struct {
	db.Model
	ExpenseNumber      string          `gorm:"type:text;not null;index" json:"expense_number"`
	Category           ExpenseCategory `gorm:"type:text;not null;index" json:"category"`
	Description        string          `gorm:"type:text;not null" json:"description" validate:"required,max=200"`
	Notes              string          `gorm:"type:text" json:"notes"`
	VendorName         string          `gorm:"type:text" json:"vendor_name" validate:"max=200"`
	ExpenseDate        db.Date         `gorm:"not null;index" json:"expense_date"`
	DueDate            *db.Date        `json:"due_date"`
	PaidDate           *db.Date        `json:"paid_date"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax_amount"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentStatus      ExpenseStatus   `gorm:"type:text;not null;index" json:"payment_status"`
	PaymentMethod      string          `gorm:"type:text" json:"payment_method" validate:"max=50"`
	ReceiptURL         string          `gorm:"column:receipt_url;type:text" json:"receipt_url" validate:"omitempty,url"`
	CreatedBy          *snowflake.ID   `json:"created_by"`
	ApprovedBy         *snowflake.ID   `json:"approved_by"`
	IsRecurring        bool            `gorm:"not null" json:"is_recurring"`
	RecurringFrequency Recurrence      `gorm:"type:text" json:"recurring_frequency"`
	db.SoftDelete
}

func (Expense) TableName() string { return "expenses" }

type PaymentTerm struct {
	db.Model
	Name               string          `gorm:"type:text;not null" json:"name" validate:"required,max=100"`
	Days               int             `gorm:"not null" json:"days" validate:"gte=0"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	DiscountDays       int             `gorm:"not null" json:"discount_days" validate:"gte=0"`
	IsActive           bool            `gorm:"not null" json:"is_active"`
	db.SoftDelete
}

func (PaymentTerm) TableName() string { return "payment_terms" }

var (
	AccountReadOnly     = []string{"balance"}
	TransactionReadOnly = []string{"transaction_number", "is_posted", "posted_at", "created_by"}
	InvoiceReadOnly     = []string{"invoice_number", "amount_paid", "paid_date", "balance_due", "is_paid"}
	ExpenseReadOnly     = []string{"expense_number", "total", "paid_date", "created_by"}
)
