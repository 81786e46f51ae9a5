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
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	financerepo "github.com/smallbiznis/bizcore/internal/finance/repository"
	financeservice "github.com/smallbiznis/bizcore/internal/finance/service"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/internal/payment/repository"
	"github.com/smallbiznis/bizcore/internal/reference"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	pkgrepository "github.com/smallbiznis/bizcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const business = snowflake.ID(77)

type fixture struct {
	conn     *gorm.DB
	svc      domain.Service
	finance  financedomain.Service
	customer *customerdomain.Customer
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(
		&authdomain.User{}, &businessdomain.Business{}, &businessdomain.BusinessMember{},
		&referencedomain.Sequence{}, &customerdomain.Customer{},
		&orderdomain.Order{}, &orderdomain.OrderItem{},
		&financedomain.Invoice{}, &financedomain.PaymentTerm{},
		&domain.Payment{}, &domain.WebhookEvent{},
	)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	now := clk.Now()

	require.NoError(t, conn.Create(&businessdomain.Business{
		ID: business, Name: "Optica Vision", Slug: "optica-vision",
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
	finance := financeservice.New(financeservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: financerepo.Provide(), Customers: customers, Refs: refs,
	})
	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Finance:   finance,
		Customers: customers,
		Refs:      refs,
	})
	ctx := bizcontext.WithBusiness(bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: 10}), business, nil)

	c := customers.New()
	c.FirstName = "Marta"
	c.Email = "marta@example.com"
	c, err = customers.Create(ctx, c)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, finance: finance, customer: c, ctx: ctx}
}

func (f *fixture) invoice(t *testing.T, total int64) *financedomain.Invoice {
	t.Helper()
	i := f.finance.Invoices().New()
	i.CustomerID = f.customer.ID
	i.Subtotal = decimal.NewFromInt(total)
	i.Status = financedomain.InvoiceSent
	created, err := f.finance.Invoices().Create(f.ctx, i)
	require.NoError(t, err)
	return created
}

func (f *fixture) payment(t *testing.T, body string) *domain.Payment {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	p, err := f.svc.Payments().Build(fields)
	require.NoError(t, err)
	created, err := f.svc.Payments().Create(f.ctx, p)
	require.NoError(t, err)
	return created
}

func (f *fixture) invoiceStatus(t *testing.T, id snowflake.ID) (financedomain.InvoiceStatus, string) {
	t.Helper()
	i, err := f.finance.Invoices().Get(f.ctx, id)
	require.NoError(t, err)
	return i.Status, i.AmountPaid.StringFixed(2)
}

func TestCaptureThenPartialRefundUpdatesInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 100)
	pay := f.payment(t, `{"invoice_id":"`+inv.ID.String()+`","customer_id":"`+f.customer.ID.String()+`","amount":"100","payment_method":"card"}`)
	assert.Equal(t, "PAY-20250301-0001", pay.PaymentNumber)
	assert.Equal(t, domain.StatusPending, pay.Status)
	assert.Equal(t, "COP", pay.Currency)
	assert.Equal(t, domain.ProviderManual, pay.Provider)

	pay, err := f.svc.Capture(f.ctx, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, pay.Status)
	require.NotNil(t, pay.CapturedAt)
	status, paid := f.invoiceStatus(t, inv.ID)
	assert.Equal(t, financedomain.InvoicePaid, status)
	assert.Equal(t, "100.00", paid)

	_, err = f.svc.Capture(f.ctx, pay.ID)
	assert.ErrorIs(t, err, domain.ErrNotCapturable)

	pay, err = f.svc.Refund(f.ctx, pay.ID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, pay.Status)
	assert.Equal(t, "40.00", pay.RefundedAmount.StringFixed(2))
	status, paid = f.invoiceStatus(t, inv.ID)
	assert.Equal(t, financedomain.InvoicePartiallyPaid, status)
	assert.Equal(t, "60.00", paid)

	_, err = f.svc.Refund(f.ctx, pay.ID, decimal.NewFromInt(61))
	assert.ErrorIs(t, err, domain.ErrRefundTooLarge)
	_, err = f.svc.Refund(f.ctx, pay.ID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	pay, err = f.svc.Refund(f.ctx, pay.ID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, pay.Status)
	require.NotNil(t, pay.RefundedAt)
	status, paid = f.invoiceStatus(t, inv.ID)
	assert.Equal(t, financedomain.InvoiceSent, status)
	assert.Equal(t, "0.00", paid)

	_, err = f.svc.Refund(f.ctx, pay.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotRefundable)
}

func TestFailAndCancelOnlyFromOpen(t *testing.T) {
	f := newFixture(t)
	failed := f.payment(t, `{"amount":"20","status":"authorized"}`)
	assert.Equal(t, domain.StatusAuthorized, failed.Status)
	failed, err := f.svc.Fail(f.ctx, failed.ID, "insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, "insufficient funds", failed.FailureReason)
	_, err = f.svc.Capture(f.ctx, failed.ID)
	assert.ErrorIs(t, err, domain.ErrNotCapturable)

	cancelled := f.payment(t, `{"amount":"20"}`)
	cancelled, err = f.svc.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	_, err = f.svc.Cancel(f.ctx, cancelled.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)

	_, err = f.svc.Payments().Update(f.ctx, cancelled.ID, map[string]json.RawMessage{"amount": json.RawMessage(`"30"`)})
	assert.ErrorIs(t, err, domain.ErrPaymentLocked)
	assert.ErrorIs(t, f.svc.Payments().Delete(f.ctx, cancelled.ID), domain.ErrPaymentLocked)
}

func TestPaymentValidation(t *testing.T) {
	f := newFixture(t)
	create := func(body string) error {
		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(body), &fields))
		p, err := f.svc.Payments().Build(fields)
		if err != nil {
			return err
		}
		_, err = f.svc.Payments().Create(f.ctx, p)
		return err
	}
	assert.ErrorIs(t, create(`{"amount":"0"}`), domain.ErrInvalidAmount)
	assert.ErrorIs(t, create(`{"amount":"5","provider":"bitcoin"}`), domain.ErrInvalidProvider)
	assert.ErrorIs(t, create(`{"amount":"5","payment_method":"barter"}`), domain.ErrInvalidMethod)
	assert.ErrorIs(t, create(`{"amount":"5","invoice_id":"123"}`), domain.ErrInvalidInvoice)
	assert.ErrorIs(t, create(`{"amount":"5","customer_id":"123"}`), domain.ErrInvalidCustomer)

	pending := f.payment(t, `{"amount":"5","currency":"usd"}`)
	assert.Equal(t, "USD", pending.Currency)
	authorized, err := f.svc.Payments().Update(f.ctx, pending.ID, map[string]json.RawMessage{"status": json.RawMessage(`"authorized"`)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, authorized.Status)
	_, err = f.svc.Payments().Update(f.ctx, pending.ID, map[string]json.RawMessage{"status": json.RawMessage(`"captured"`)})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestProcessEventIsIdempotent(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 50)
	pay := f.payment(t, `{"invoice_id":"`+inv.ID.String()+`","amount":"50","provider":"stripe","payment_method":"online","provider_reference":"pi_123"}`)

	event := func(id, typ string, amount decimal.Decimal) *domain.Event {
		return &domain.Event{Provider: "Stripe", ExternalID: id, Type: typ, ProviderReference: "pi_123", Amount: amount}
	}
	background := context.Background()

	record, err := f.svc.ProcessEvent(background, event("evt_1", domain.EventCaptured, decimal.Zero), []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.True(t, record.Processed)
	assert.Empty(t, record.Error)
	require.NotNil(t, record.PaymentID)
	assert.Equal(t, pay.ID, *record.PaymentID)
	status, _ := f.invoiceStatus(t, inv.ID)
	assert.Equal(t, financedomain.InvoicePaid, status)

	replay, err := f.svc.ProcessEvent(background, event("evt_1", domain.EventCaptured, decimal.Zero), []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.Equal(t, record.ID, replay.ID)
	_, paid := f.invoiceStatus(t, inv.ID)
	assert.Equal(t, "50.00", paid)

	// A full refund with no amount takes whatever is left.
	record, err = f.svc.ProcessEvent(background, event("evt_2", domain.EventRefunded, decimal.Zero), []byte(`{"id":"evt_2"}`))
	require.NoError(t, err)
	assert.True(t, record.Processed)
	got, err := f.svc.Payments().Get(f.ctx, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, got.Status)

	record, err = f.svc.ProcessEvent(background, event("evt_3", domain.EventFailed, decimal.Zero), []byte(`{"id":"evt_3"}`))
	require.NoError(t, err)
	assert.False(t, record.Processed)
	assert.Equal(t, "not_cancellable", record.Error)

	orphan := event("evt_4", domain.EventCaptured, decimal.Zero)
	orphan.ProviderReference = "pi_unknown"
	record, err = f.svc.ProcessEvent(background, orphan, []byte(`{"id":"evt_4"}`))
	require.NoError(t, err)
	assert.Equal(t, "unknown_reference", record.Error)
	assert.Nil(t, record.BusinessID)

	_, err = f.svc.ProcessEvent(background, event("evt_5", "payment.disputed", decimal.Zero), []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	events, info, err := f.svc.Events(f.ctx, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.False(t, info.HasMore)
	assert.Equal(t, "evt_1", events[0].ExternalID)
}
