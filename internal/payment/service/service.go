package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Finance   financedomain.Service
	Customers customerdomain.Service
	Refs      referencedomain.Generator
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	finance   financedomain.Service
	customers customerdomain.Service
	refs      referencedomain.Generator
	metrics   *metrics.Metrics

	payments *crud.Service[domain.Payment, *domain.Payment]
}

func New(p Params) domain.Service {
	s := &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		finance:   p.Finance,
		customers: p.Customers,
		refs:      p.Refs,
		metrics:   p.Metrics,
	}
	s.payments = crud.New[domain.Payment](p.DB, repository.ProvideStore[domain.Payment](p.DB), p.GenID, p.Clock, crud.Config[domain.Payment]{
		Name:     "payment",
		ReadOnly: domain.PaymentReadOnly,
		Defaults: func(pay *domain.Payment) {
			pay.Currency = "COP"
			pay.Provider = domain.ProviderManual
			pay.PaymentMethod = domain.MethodCash
			pay.Status = domain.StatusPending
		},
		BeforeCreate: s.openPayment,
		Validate:     s.checkPayment,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
			if !pay.Status.Open() {
				return domain.ErrPaymentLocked
			}
			return nil
		},
	})
	return s
}

func (s *Service) Payments() crud.Store[domain.Payment] { return s.payments }

func (s *Service) openPayment(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
	number, err := s.refs.Next(ctx, tx, pay.BusinessID, referencedomain.DocPayment, s.clock.Now())
	if err != nil {
		return err
	}
	pay.PaymentNumber = number
	if !pay.Status.Open() {
		return domain.ErrInvalidStatus
	}
	pay.RefundedAmount = decimal.Zero
	pay.CapturedAt, pay.RefundedAt = nil, nil
	pay.FailureReason = ""
	pay.CreatedBy = bizcontext.ActorID(ctx)
	return nil
}

func (s *Service) checkPayment(ctx context.Context, tx *gorm.DB, pay, old *domain.Payment) error {
	// Settled payments only move through Capture, Refund, Fail and Cancel.
	if old != nil && !old.Status.Open() {
		return domain.ErrPaymentLocked
	}
	if old != nil && pay.Status != old.Status && !(old.Status == domain.StatusPending && pay.Status == domain.StatusAuthorized) {
		return domain.ErrInvalidStatus
	}
	pay.Currency = strings.ToUpper(strings.TrimSpace(pay.Currency))
	pay.ProviderReference = strings.TrimSpace(pay.ProviderReference)
	if !pay.Provider.Valid() {
		return domain.ErrInvalidProvider
	}
	if !pay.PaymentMethod.Valid() {
		return domain.ErrInvalidMethod
	}
	if !pay.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if pay.InvoiceID != nil && (old == nil || !sameID(pay.InvoiceID, old.InvoiceID)) {
		if err := s.owned(ctx, tx, "invoices", pay.BusinessID, *pay.InvoiceID, domain.ErrInvalidInvoice); err != nil {
			return err
		}
	}
	if pay.OrderID != nil && (old == nil || !sameID(pay.OrderID, old.OrderID)) {
		if err := s.owned(ctx, tx, "orders", pay.BusinessID, *pay.OrderID, domain.ErrInvalidOrder); err != nil {
			return err
		}
	}
	if pay.CustomerID != nil && (old == nil || !sameID(pay.CustomerID, old.CustomerID)) {
		ok, err := s.customers.Exists(ctx, tx, *pay.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}
	}
	return nil
}

func (s *Service) owned(ctx context.Context, tx *gorm.DB, table string, businessID, id snowflake.ID, invalid error) error {
	ok, err := s.repo.Owned(ctx, tx, table, businessID, id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid
	}
	return nil
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
