package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) openExpense(ctx context.Context, tx *gorm.DB, e *domain.Expense) error {
	number, err := s.refs.Next(ctx, tx, e.BusinessID, referencedomain.DocExpense, s.clock.Now())
	if err != nil {
		return err
	}
	e.ExpenseNumber = number
	e.CreatedBy = bizcontext.ActorID(ctx)
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = s.today()
	}
	return nil
}

func (s *Service) checkExpense(ctx context.Context, tx *gorm.DB, e, old *domain.Expense) error {
	if !e.Category.Valid() {
		return domain.ErrInvalidCategory
	}
	if !e.PaymentStatus.Valid() {
		return domain.ErrInvalidExpenseStatus
	}
	if !e.RecurringFrequency.Valid() {
		return domain.ErrInvalidRecurrence
	}
	if e.IsRecurring && e.RecurringFrequency == domain.RecurNone {
		return domain.ErrRecurrenceRequired
	}
	if e.Amount.IsNegative() || e.TaxAmount.IsNegative() {
		return domain.ErrNegativeAmount
	}
	e.Total = e.Amount.Add(e.TaxAmount).Round(2)

	if e.PaymentStatus == domain.ExpensePaid && e.PaidDate == nil {
		today := s.today()
		e.PaidDate = &today
	}
	if e.ApprovedBy != nil && (old == nil || !sameID(e.ApprovedBy, old.ApprovedBy)) {
		ok, err := s.repo.IsMember(ctx, tx, e.BusinessID, *e.ApprovedBy)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidApprover
		}
	}
	return nil
}

func (s *Service) MarkExpensePaid(ctx context.Context, id snowflake.ID) (*domain.Expense, error) {
	var expense *domain.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.expenses.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.PaymentStatus == domain.ExpenseCancelled {
			return domain.ErrExpenseCancelled
		}
		old := *e
		today := s.today()
		e.PaymentStatus = domain.ExpensePaid
		e.PaidDate = &today
		e.UpdatedAt = s.clock.Now()
		if err := s.expenses.SaveTx(ctx, tx, e, &old); err != nil {
			return err
		}
		expense = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("expense paid",
		zap.String("business_id", expense.BusinessID.String()),
		zap.String("expense_number", expense.ExpenseNumber),
		zap.String("total", expense.Total.StringFixed(2)),
	)
	return expense, nil
}
