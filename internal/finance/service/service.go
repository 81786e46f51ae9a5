package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/internal/providers/pdf"
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
	Customers customerdomain.Service
	Refs      referencedomain.Generator
	PDF       pdf.Renderer     `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Service
	refs      referencedomain.Generator
	pdf       pdf.Renderer
	metrics   *metrics.Metrics

	accounts     *crud.Service[domain.Account, *domain.Account]
	transactions *crud.Service[domain.Transaction, *domain.Transaction]
	entries      *crud.Service[domain.TransactionEntry, *domain.TransactionEntry]
	invoices     *crud.Service[domain.Invoice, *domain.Invoice]
	expenses     *crud.Service[domain.Expense, *domain.Expense]
	terms        *crud.Service[domain.PaymentTerm, *domain.PaymentTerm]
}

func New(p Params) domain.Service {
	s := &Service{
		db:        p.DB,
		log:       p.Log.Named("finance.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
		refs:      p.Refs,
		pdf:       p.PDF,
		metrics:   p.Metrics,
	}
	if s.pdf == nil {
		s.pdf = pdf.New()
	}

	s.accounts = crud.New[domain.Account](p.DB, repository.ProvideStore[domain.Account](p.DB), p.GenID, p.Clock, crud.Config[domain.Account]{
		Name:     "account",
		ReadOnly: domain.AccountReadOnly,
		Defaults: func(a *domain.Account) { a.IsActive = true },
		BeforeCreate: func(ctx context.Context, tx *gorm.DB, a *domain.Account) error {
			a.Balance = decimal.Zero
			return nil
		},
		Validate: s.checkAccount,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, a *domain.Account) error {
			n, err := s.repo.CountEntries(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrAccountInUse
			}
			return nil
		},
	})
	s.transactions = crud.New[domain.Transaction](p.DB, repository.ProvideStore[domain.Transaction](p.DB), p.GenID, p.Clock, crud.Config[domain.Transaction]{
		Name:         "transaction",
		ReadOnly:     domain.TransactionReadOnly,
		BeforeCreate: s.openTransaction,
		Validate:     s.checkTransaction,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, t *domain.Transaction) error {
			if t.IsPosted {
				return domain.ErrPostedImmutable
			}
			return nil
		},
	})
	s.entries = crud.New[domain.TransactionEntry](p.DB, repository.ProvideStore[domain.TransactionEntry](p.DB), p.GenID, p.Clock, crud.Config[domain.TransactionEntry]{
		Name:     "transaction_entry",
		Validate: s.checkEntry,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, e *domain.TransactionEntry) error {
			_, err := s.openTransactionFor(ctx, tx, e.TransactionID)
			return err
		},
	})
	s.invoices = crud.New[domain.Invoice](p.DB, repository.ProvideStore[domain.Invoice](p.DB), p.GenID, p.Clock, crud.Config[domain.Invoice]{
		Name:         "invoice",
		ReadOnly:     domain.InvoiceReadOnly,
		Defaults:     func(i *domain.Invoice) { i.Status = domain.InvoiceDraft },
		BeforeCreate: s.openInvoice,
		Validate:     s.checkInvoice,
		Present: func(_ context.Context, _ *gorm.DB, items []*domain.Invoice) error {
			for _, i := range items {
				i.Compute()
			}
			return nil
		},
	})
	s.expenses = crud.New[domain.Expense](p.DB, repository.ProvideStore[domain.Expense](p.DB), p.GenID, p.Clock, crud.Config[domain.Expense]{
		Name:     "expense",
		ReadOnly: domain.ExpenseReadOnly,
		Defaults: func(e *domain.Expense) {
			e.Category = domain.ExpenseOther
			e.PaymentStatus = domain.ExpensePending
		},
		BeforeCreate: s.openExpense,
		Validate:     s.checkExpense,
	})
	s.terms = crud.New[domain.PaymentTerm](p.DB, repository.ProvideStore[domain.PaymentTerm](p.DB), p.GenID, p.Clock, crud.Config[domain.PaymentTerm]{
		Name:     "payment_term",
		Defaults: func(t *domain.PaymentTerm) { t.IsActive = true },
		Validate: checkTerm,
	})
	return s
}

func (s *Service) Accounts() crud.Store[domain.Account] { return s.accounts }
func (s *Service) Transactions() crud.Store[domain.Transaction] { return &transactionStore{svc: s} }
func (s *Service) Entries() crud.Store[domain.TransactionEntry] { return s.entries }
func (s *Service) Invoices() crud.Store[domain.Invoice] { return s.invoices }
func (s *Service) Expenses() crud.Store[domain.Expense] { return s.expenses }
func (s *Service) PaymentTerms() crud.Store[domain.PaymentTerm] { return s.terms }

func (s *Service) checkAccount(ctx context.Context, tx *gorm.DB, a, old *domain.Account) error {
	if !a.AccountType.Valid() {
		return domain.ErrInvalidAccountType
	}
	if old == nil || old.Code != a.Code {
		taken, err := s.repo.CodeExists(ctx, tx, a.BusinessID, a.Code, a.ID)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrAccountCodeTaken
		}
	}
	if a.ParentID == nil || (old != nil && sameID(a.ParentID, old.ParentID)) {
		return nil
	}

	ok, err := s.repo.Owned(ctx, tx, "accounts", a.BusinessID, *a.ParentID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidParent
	}
	// Walk up from the new parent; meeting a.ID means a cycle.
	seen := map[snowflake.ID]bool{}
	for id := a.ParentID; id != nil; {
		if *id == a.ID {
			return domain.ErrParentCycle
		}
		if seen[*id] {
			break
		}
		seen[*id] = true
		if id, err = s.repo.ParentOf(ctx, tx, *id); err != nil {
			return err
		}
	}
	return nil
}

func checkTerm(_ context.Context, _ *gorm.DB, t, _ *domain.PaymentTerm) error {
	if t.DiscountPercentage.IsNegative() || t.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return domain.ErrInvalidDiscount
	}
	if t.DiscountDays > t.Days {
		return domain.ErrInvalidDays
	}
	return nil
}

func (s *Service) customerExists(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	ok, err := s.customers.Exists(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCustomer
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

func notFound(err, target, replacement error) error {
	if errors.Is(err, target) {
		return replacement
	}
	return err
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
