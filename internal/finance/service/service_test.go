package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	customerrepo "github.com/smallbiznis/bizcore/internal/customer/repository"
	customerservice "github.com/smallbiznis/bizcore/internal/customer/service"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	"github.com/smallbiznis/bizcore/internal/finance/repository"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/internal/reference"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db"
	pkgrepository "github.com/smallbiznis/bizcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const business = snowflake.ID(77)

type fixture struct {
	conn     *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	customer *customerdomain.Customer
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(
		&authdomain.User{}, &businessdomain.Business{}, &businessdomain.BusinessMember{},
		&referencedomain.Sequence{}, &customerdomain.Customer{},
		&orderdomain.Order{}, &orderdomain.OrderItem{},
		&domain.Account{}, &domain.Transaction{}, &domain.TransactionEntry{},
		&domain.Invoice{}, &domain.Expense{}, &domain.PaymentTerm{},
	)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	now := clk.Now()

	require.NoError(t, conn.Create(&businessdomain.Business{
		ID: business, Name: "Ferreteria El Tornillo", Slug: "ferreteria-el-tornillo",
		Currency: "COP", Timezone: "America/Bogota", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&businessdomain.BusinessMember{
		ID: node.Generate(), BusinessID: business, UserID: 10, Role: businessdomain.RoleOwner,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	refs := reference.NewGenerator(reference.NewRepository(), zap.NewNop())
	customers := customerservice.New(customerservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     customerrepo.Provide(),
		Store:    pkgrepository.ProvideStore[customerdomain.Customer](conn),
		Refs:     refs,
		Tunables: config.NewStaticTunables(config.DefaultTunables()),
	})
	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Customers: customers,
		Refs:      refs,
	})
	ctx := bizcontext.WithBusiness(bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: 10}), business, nil)

	c := customers.New()
	c.FirstName = "Lucia"
	c.LastName = "Rojas"
	c.Email = "lucia@example.com"
	c, err = customers.Create(ctx, c)
	require.NoError(t, err)
	return &fixture{conn: conn, node: node, svc: svc, customer: c, ctx: ctx}
}

func (f *fixture) account(t *testing.T, code string, typ domain.AccountType) *domain.Account {
	t.Helper()
	a := f.svc.Accounts().New()
	a.Code = code
	a.Name = code
	a.AccountType = typ
	created, err := f.svc.Accounts().Create(f.ctx, a)
	require.NoError(t, err)
	return created
}

func (f *fixture) transaction(t *testing.T, body string) (*domain.Transaction, error) {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	txn, err := f.svc.Transactions().Build(fields)
	require.NoError(t, err)
	return f.svc.Transactions().Create(f.ctx, txn)
}

func (f *fixture) balance(t *testing.T, id snowflake.ID) string {
	t.Helper()
	a, err := f.svc.Accounts().Get(f.ctx, id)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func entry(account *domain.Account, typ domain.EntryType, amount string) string {
	return `{"account_id":"` + account.ID.String() + `","entry_type":"` + string(typ) + `","amount":"` + amount + `"}`
}

func TestPostRequiresBalancedEntries(t *testing.T) {
	f := newFixture(t)
	cash := f.account(t, "1001", domain.AccountAsset)
	sales := f.account(t, "4001", domain.AccountRevenue)

	txn, err := f.transaction(t, `{"transaction_type":"sale","description":"Venta mostrador","entries":[`+
		entry(cash, domain.Debit, "100")+`,`+entry(sales, domain.Credit, "90")+`]}`)
	require.NoError(t, err)
	assert.Equal(t, "TXN-20250301-0001", txn.TransactionNumber)
	require.Len(t, txn.Entries, 2)

	_, err = f.svc.Post(f.ctx, txn.ID)
	require.ErrorIs(t, err, domain.ErrUnbalanced)
	assert.Contains(t, err.Error(), "100.00")
	assert.Equal(t, "0.00", f.balance(t, cash.ID))
	got, err := f.svc.Transactions().Get(f.ctx, txn.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPosted)

	_, err = f.svc.Entries().Create(f.ctx, &domain.TransactionEntry{
		TransactionID: txn.ID, AccountID: sales.ID, EntryType: domain.Credit, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	posted, err := f.svc.Post(f.ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, posted.IsPosted)
	require.NotNil(t, posted.PostedAt)
	assert.Equal(t, "100.00", posted.Amount.StringFixed(2))
	assert.Equal(t, "100.00", f.balance(t, cash.ID))
	assert.Equal(t, "100.00", f.balance(t, sales.ID))

	_, err = f.svc.Post(f.ctx, txn.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyPosted)
	assert.Equal(t, "100.00", f.balance(t, cash.ID))
}

func TestPostedTransactionsAreFrozen(t *testing.T) {
	f := newFixture(t)
	cash := f.account(t, "1001", domain.AccountAsset)
	rent := f.account(t, "5001", domain.AccountExpense)

	txn, err := f.transaction(t, `{"transaction_type":"expense","description":"Arriendo","entries":[`+
		entry(rent, domain.Debit, "800")+`,`+entry(cash, domain.Credit, "800")+`]}`)
	require.NoError(t, err)
	_, err = f.svc.Post(f.ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.00", f.balance(t, rent.ID))
	assert.Equal(t, "-800.00", f.balance(t, cash.ID))

	_, err = f.svc.Entries().Create(f.ctx, &domain.TransactionEntry{
		TransactionID: txn.ID, AccountID: cash.ID, EntryType: domain.Debit, Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrPostedImmutable)
	assert.ErrorIs(t, f.svc.Entries().Delete(f.ctx, txn.Entries[0].ID), domain.ErrPostedImmutable)
	_, err = f.svc.Transactions().Update(f.ctx, txn.ID, map[string]json.RawMessage{"description": json.RawMessage(`"x"`)})
	assert.ErrorIs(t, err, domain.ErrPostedImmutable)
	assert.ErrorIs(t, f.svc.Transactions().Delete(f.ctx, txn.ID), domain.ErrPostedImmutable)
	assert.ErrorIs(t, f.svc.Accounts().Delete(f.ctx, cash.ID), domain.ErrAccountInUse)
}

func TestPostWithoutEntriesFails(t *testing.T) {
	f := newFixture(t)
	txn, err := f.transaction(t, `{"transaction_type":"other","description":"Vacia"}`)
	require.NoError(t, err)
	_, err = f.svc.Post(f.ctx, txn.ID)
	assert.ErrorIs(t, err, domain.ErrUnbalanced)
}

func TestEntryRules(t *testing.T) {
	f := newFixture(t)
	cash := f.account(t, "1001", domain.AccountAsset)
	closed := f.account(t, "1002", domain.AccountAsset)
	_, err := f.svc.Accounts().Update(f.ctx, closed.ID, map[string]json.RawMessage{"is_active": json.RawMessage(`false`)})
	require.NoError(t, err)

	_, err = f.transaction(t, `{"transaction_type":"sale","description":"x","entries":[`+
		entry(cash, domain.Debit, "10")+`,`+entry(cash, "both", "10")+`]}`)
	require.ErrorIs(t, err, domain.ErrInvalidEntryType)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "entries[1].entry_type", appErr.Details[0].Field)

	txn, err := f.transaction(t, `{"transaction_type":"sale","description":"x"}`)
	require.NoError(t, err)
	add := func(accountID snowflake.ID, amount int64) error {
		_, err := f.svc.Entries().Create(f.ctx, &domain.TransactionEntry{
			TransactionID: txn.ID, AccountID: accountID, EntryType: domain.Debit, Amount: decimal.NewFromInt(amount),
		})
		return err
	}
	assert.ErrorIs(t, add(cash.ID, 0), domain.ErrInvalidEntryAmount)
	assert.ErrorIs(t, add(closed.ID, 5), domain.ErrInactiveAccount)
	assert.ErrorIs(t, add(snowflake.ID(999), 5), domain.ErrInvalidAccount)
	assert.NoError(t, add(cash.ID, 5))

	_, err = f.transaction(t, `{"transaction_type":"gift","description":"x"}`)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
}

func TestAccountRules(t *testing.T) {
	f := newFixture(t)
	assets := f.account(t, "1000", domain.AccountAsset)

	dup := f.svc.Accounts().New()
	dup.Code, dup.Name, dup.AccountType = "1000", "Otra", domain.AccountAsset
	_, err := f.svc.Accounts().Create(f.ctx, dup)
	assert.ErrorIs(t, err, domain.ErrAccountCodeTaken)

	child := f.svc.Accounts().New()
	child.Code, child.Name, child.AccountType, child.ParentID = "1100", "Caja", domain.AccountAsset, &assets.ID
	child, err = f.svc.Accounts().Create(f.ctx, child)
	require.NoError(t, err)

	_, err = f.svc.Accounts().Update(f.ctx, assets.ID, map[string]json.RawMessage{
		"parent_id": json.RawMessage(`"` + child.ID.String() + `"`),
	})
	assert.ErrorIs(t, err, domain.ErrParentCycle)

	_, err = f.svc.Accounts().Update(f.ctx, assets.ID, map[string]json.RawMessage{"balance": json.RawMessage(`"500"`)})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.balance(t, assets.ID))

	bad := f.svc.Accounts().New()
	bad.Code, bad.Name, bad.AccountType = "9000", "Otro", "cosa"
	_, err = f.svc.Accounts().Create(f.ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidAccountType)
}

func (f *fixture) invoice(t *testing.T, mutate func(*domain.Invoice)) *domain.Invoice {
	t.Helper()
	i := f.svc.Invoices().New()
	i.CustomerID = f.customer.ID
	if mutate != nil {
		mutate(i)
	}
	created, err := f.svc.Invoices().Create(f.ctx, i)
	require.NoError(t, err)
	return created
}

func TestInvoicePayments(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, func(i *domain.Invoice) {
		i.Subtotal = decimal.NewFromInt(100)
		i.DiscountAmount = decimal.NewFromInt(10)
		i.TaxAmount = decimal.NewFromInt(19)
	})
	assert.Equal(t, "INV-20250301-0001", inv.InvoiceNumber)
	assert.Equal(t, "109.00", inv.Total.StringFixed(2))
	assert.Equal(t, "2025-03-01", inv.IssueDate.String())
	assert.Equal(t, "2025-03-01", inv.DueDate.String())
	assert.Equal(t, "109.00", inv.BalanceDue.StringFixed(2))

	_, err := f.svc.RegisterPayment(f.ctx, inv.ID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidPayment)

	inv, err = f.svc.RegisterPayment(f.ctx, inv.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePartiallyPaid, inv.Status)
	assert.Equal(t, "59.00", inv.BalanceDue.StringFixed(2))
	require.NotNil(t, inv.PaidDate)
	assert.False(t, inv.IsPaid)

	inv, err = f.svc.RegisterPayment(f.ctx, inv.ID, decimal.NewFromInt(59))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, inv.Status)
	assert.True(t, inv.IsPaid)

	got, err := f.svc.Invoices().Get(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "109.00", got.AmountPaid.StringFixed(2))
	assert.True(t, got.IsPaid)

	other := f.invoice(t, func(i *domain.Invoice) { i.Subtotal = decimal.NewFromInt(10) })
	_, err = f.svc.Invoices().Update(f.ctx, other.ID, map[string]json.RawMessage{"status": json.RawMessage(`"paid"`)})
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceStatus)
	_, err = f.svc.Invoices().Update(f.ctx, other.ID, map[string]json.RawMessage{"status": json.RawMessage(`"cancelled"`)})
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(f.ctx, other.ID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrInvoiceCancelled)
}

func TestReverseInvoicePayment(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, func(i *domain.Invoice) { i.Subtotal = decimal.NewFromInt(100) })
	_, err := f.svc.RegisterPayment(f.ctx, inv.ID, decimal.NewFromInt(100))
	require.NoError(t, err)

	var got *domain.Invoice
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		got, err = f.svc.ReverseInvoicePayment(f.ctx, tx, inv.ID, decimal.NewFromInt(30))
		return err
	}))
	assert.Equal(t, domain.InvoicePartiallyPaid, got.Status)
	assert.Equal(t, "70.00", got.AmountPaid.StringFixed(2))

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		got, err = f.svc.ReverseInvoicePayment(f.ctx, tx, inv.ID, decimal.NewFromInt(500))
		return err
	}))
	assert.Equal(t, domain.InvoiceSent, got.Status)
	assert.True(t, got.AmountPaid.IsZero())
	assert.Nil(t, got.PaidDate)
}

func TestInvoiceFromOrderWithPaymentTerm(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	order := &orderdomain.Order{
		OrderNumber: "ORD-20250301-0001", OrderType: orderdomain.TypeInStore, Status: orderdomain.StatusCompleted,
		Subtotal: decimal.NewFromInt(200), DiscountAmount: decimal.NewFromInt(20), TaxAmount: decimal.NewFromInt(34),
		ShippingCost: decimal.NewFromInt(6), Total: decimal.NewFromInt(220), OrderDate: now,
	}
	order.ID, order.BusinessID, order.CreatedAt, order.UpdatedAt = f.node.Generate(), business, now, now
	require.NoError(t, f.conn.Create(order).Error)
	item := &orderdomain.OrderItem{
		OrderID: order.ID, ProductID: 1, ProductName: "Martillo", Quantity: 2,
		UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(200),
	}
	item.ID, item.BusinessID, item.CreatedAt, item.UpdatedAt = f.node.Generate(), business, now, now
	require.NoError(t, f.conn.Create(item).Error)

	term, err := f.svc.PaymentTerms().Create(f.ctx, &domain.PaymentTerm{Name: "Net 30", Days: 30, IsActive: true})
	require.NoError(t, err)

	inv := f.invoice(t, func(i *domain.Invoice) {
		i.OrderID = &order.ID
		i.PaymentTermID = &term.ID
	})
	assert.Equal(t, "206.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", inv.DiscountAmount.StringFixed(2))
	assert.Equal(t, "34.00", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "220.00", inv.Total.StringFixed(2))
	assert.Equal(t, "2025-03-31", inv.DueDate.String())

	raw, err := f.svc.InvoicePDF(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))

	_, err = f.svc.PaymentTerms().Create(f.ctx, &domain.PaymentTerm{Name: "Pronto pago", Days: 10, DiscountDays: 15})
	assert.ErrorIs(t, err, domain.ErrInvalidDays)
}

func TestInvoiceRules(t *testing.T) {
	f := newFixture(t)
	create := func(mutate func(*domain.Invoice)) error {
		i := f.svc.Invoices().New()
		i.CustomerID = f.customer.ID
		mutate(i)
		_, err := f.svc.Invoices().Create(f.ctx, i)
		return err
	}
	assert.ErrorIs(t, create(func(i *domain.Invoice) { i.CustomerID = 999 }), domain.ErrInvalidCustomer)
	assert.ErrorIs(t, create(func(i *domain.Invoice) { i.Subtotal = decimal.NewFromInt(-1) }), domain.ErrNegativeInvoice)
	assert.ErrorIs(t, create(func(i *domain.Invoice) {
		i.IssueDate = db.NewDate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
		i.DueDate = db.NewDate(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	}), domain.ErrInvalidDueDate)
	assert.ErrorIs(t, create(func(i *domain.Invoice) { i.Status = domain.InvoicePaid }), domain.ErrInvalidInvoiceStatus)
	missing := snowflake.ID(12345)
	assert.ErrorIs(t, create(func(i *domain.Invoice) { i.OrderID = &missing }), domain.ErrInvalidOrder)
}

func TestExpenses(t *testing.T) {
	f := newFixture(t)
	e := f.svc.Expenses().New()
	e.Category = domain.ExpenseUtilities
	e.Description = "Energia febrero"
	e.Amount = decimal.NewFromInt(150)
	e.TaxAmount = decimal.NewFromInt(28)
	e, err := f.svc.Expenses().Create(f.ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "EXP-20250301-0001", e.ExpenseNumber)
	assert.Equal(t, "178.00", e.Total.StringFixed(2))
	assert.Equal(t, "2025-03-01", e.ExpenseDate.String())
	require.NotNil(t, e.CreatedBy)

	paid, err := f.svc.MarkExpensePaid(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpensePaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, "2025-03-01", paid.PaidDate.String())

	recurring := f.svc.Expenses().New()
	recurring.Description = "Arriendo"
	recurring.IsRecurring = true
	_, err = f.svc.Expenses().Create(f.ctx, recurring)
	assert.ErrorIs(t, err, domain.ErrRecurrenceRequired)

	recurring.RecurringFrequency = domain.RecurMonthly
	approver := snowflake.ID(99)
	recurring.ApprovedBy = &approver
	_, err = f.svc.Expenses().Create(f.ctx, recurring)
	assert.ErrorIs(t, err, domain.ErrInvalidApprover)

	owner := snowflake.ID(10)
	recurring.ApprovedBy = &owner
	recurring.PaymentStatus = domain.ExpenseCancelled
	recurring, err = f.svc.Expenses().Create(f.ctx, recurring)
	require.NoError(t, err)
	_, err = f.svc.MarkExpensePaid(f.ctx, recurring.ID)
	assert.ErrorIs(t, err, domain.ErrExpenseCancelled)
}
