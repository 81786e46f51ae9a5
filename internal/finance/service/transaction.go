package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) openTransaction(ctx context.Context, tx *gorm.DB, t *domain.Transaction) error {
	now := s.clock.Now()
	number, err := s.refs.Next(ctx, tx, t.BusinessID, referencedomain.DocTransaction, now)
	if err != nil {
		return err
	}
	t.TransactionNumber = number
	t.CreatedBy = bizcontext.ActorID(ctx)
	t.IsPosted = false
	t.PostedAt = nil
	if t.TransactionDate.IsZero() {
		t.TransactionDate = now
	}
	return nil
}

func (s *Service) checkTransaction(ctx context.Context, tx *gorm.DB, t, old *domain.Transaction) error {
	if old != nil && old.IsPosted {
		return domain.ErrPostedImmutable
	}
	if !t.TransactionType.Valid() {
		return domain.ErrInvalidTransactionType
	}
	if t.Amount.IsNegative() {
		return domain.ErrNegativeAmount
	}
	if t.OrderID != nil && (old == nil || !sameID(t.OrderID, old.OrderID)) {
		return s.owned(ctx, tx, "orders", t.BusinessID, *t.OrderID, domain.ErrInvalidOrder)
	}
	return nil
}

// openTransactionFor loads a transaction whose entries may still change.
func (s *Service) openTransactionFor(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	t, err := s.transactions.GetTx(ctx, tx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, domain.ErrInvalidTransaction)
	}
	if t.IsPosted {
		return nil, domain.ErrPostedImmutable
	}
	return t, nil
}

func (s *Service) checkEntry(ctx context.Context, tx *gorm.DB, e, old *domain.TransactionEntry) error {
	if old != nil && old.TransactionID != e.TransactionID {
		return domain.ErrInvalidTransaction.WithMessage("entries cannot move between transactions")
	}
	if _, err := s.openTransactionFor(ctx, tx, e.TransactionID); err != nil {
		return err
	}
	if !e.EntryType.Valid() {
		return domain.ErrInvalidEntryType
	}
	if !e.Amount.IsPositive() {
		return domain.ErrInvalidEntryAmount
	}
	if old != nil && old.AccountID == e.AccountID {
		return nil
	}
	account, err := s.accounts.GetTx(ctx, tx, e.AccountID)
	if err != nil {
		return notFound(err, domain.ErrAccountNotFound, domain.ErrInvalidAccount)
	}
	if !account.IsActive {
		return domain.ErrInactiveAccount
	}
	return nil
}

// Post applies a balanced transaction to its accounts. A failed post leaves
// the transaction and every balance untouched.
func (s *Service) Post(ctx context.Context, id snowflake.ID) (*domain.Transaction, error) {
	var posted *domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.transactions.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.IsPosted {
			return domain.ErrAlreadyPosted
		}
		entries, err := s.repo.Entries(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		ok, debits, credits := domain.Balanced(entries)
		if !ok {
			return domain.ErrUnbalanced.WithMessage(fmt.Sprintf("debits %s do not equal credits %s",
				debits.StringFixed(2), credits.StringFixed(2)))
		}

		if err := s.applyBalances(ctx, tx, t.BusinessID, entries); err != nil {
			return err
		}

		now := s.clock.Now()
		t.IsPosted = true
		t.PostedAt = &now
		t.UpdatedAt = now
		if t.Amount.IsZero() {
			t.Amount = debits
		}
		if err := s.repo.UpdateTransaction(ctx, tx, t, "is_posted", "posted_at", "amount"); err != nil {
			return err
		}
		t.Entries = entries
		posted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransactionPosted(ctx, posted.BusinessID.String(), string(posted.TransactionType))
	s.log.Info("transaction posted",
		zap.String("business_id", posted.BusinessID.String()),
		zap.String("transaction_number", posted.TransactionNumber),
		zap.String("amount", posted.Amount.StringFixed(2)),
		zap.Int("entries", len(posted.Entries)),
	)
	return posted, nil
}

// applyBalances moves each account by its net entry amount, signed by the
// account's normal side.
func (s *Service) applyBalances(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, entries []*domain.TransactionEntry) error {
	net := map[snowflake.ID]decimal.Decimal{}
	var ids []snowflake.ID
	for _, e := range entries {
		if _, ok := net[e.AccountID]; !ok {
			ids = append(ids, e.AccountID)
		}
		amount := e.Amount
		if e.EntryType == domain.Credit {
			amount = amount.Neg()
		}
		net[e.AccountID] = net[e.AccountID].Add(amount)
	}

	accounts, err := s.repo.LockAccounts(ctx, tx, businessID, ids)
	if err != nil {
		return err
	}
	if len(accounts) != len(ids) {
		return domain.ErrInvalidAccount.WithMessage("an entry references an account that no longer exists")
	}
	now := s.clock.Now()
	for _, a := range accounts {
		delta := net[a.ID]
		if !a.AccountType.DebitNormal() {
			delta = delta.Neg()
		}
		a.Balance = a.Balance.Add(delta).Round(2)
		a.UpdatedAt = now
		if err := s.repo.UpdateAccount(ctx, tx, a, "balance"); err != nil {
			return err
		}
	}
	return nil
}

// transactionStore adds nested entries to the generic transaction store.
type transactionStore struct {
	svc *Service
}

func (t *transactionStore) New() *domain.Transaction { return t.svc.transactions.New() }

func (t *transactionStore) Build(body map[string]json.RawMessage) (*domain.Transaction, error) {
	txn, err := t.svc.transactions.Build(body)
	if err != nil {
		return nil, err
	}
	txn.Entries = nil
	if raw, ok := body["entries"]; ok {
		var entries []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, crud.DecodeError(err)
		}
		for _, fields := range entries {
			e, err := t.svc.entries.Build(fields)
			if err != nil {
				return nil, err
			}
			txn.Entries = append(txn.Entries, e)
		}
	}
	return txn, nil
}

func (t *transactionStore) List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*domain.Transaction, *pagination.PageInfo, error) {
	return t.svc.transactions.List(ctx, page, opts...)
}

func (t *transactionStore) Get(ctx context.Context, id snowflake.ID) (*domain.Transaction, error) {
	txn, err := t.svc.transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Entries, err = t.svc.repo.Entries(ctx, t.svc.db, txn.ID); err != nil {
		return nil, err
	}
	return txn, nil
}

// Create stores the transaction and its entries together. Balance is not
// checked until Post.
func (t *transactionStore) Create(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn == nil {
		return t.svc.transactions.Create(ctx, nil)
	}
	entries := txn.Entries
	txn.Entries = nil
	err := t.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := t.svc.transactions.CreateTx(ctx, tx, txn); err != nil {
			return err
		}
		for i, e := range entries {
			e.TransactionID = txn.ID
			if err := t.svc.entries.CreateTx(ctx, tx, e); err != nil {
				return entryError(i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, txn.ID)
}

func (t *transactionStore) Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*domain.Transaction, error) {
	return t.svc.transactions.Update(ctx, id, patch)
}

func (t *transactionStore) Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*domain.Transaction, error) {
	return t.svc.transactions.Replace(ctx, id, body)
}

func (t *transactionStore) Delete(ctx context.Context, id snowflake.ID) error {
	return t.svc.transactions.Delete(ctx, id)
}

func entryError(index int, err error) error {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindValidation {
		return err
	}
	return appErr.WithDetails(apperror.Detail{
		Field:   fmt.Sprintf("entries[%d].%s", index, appErr.Field),
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}
