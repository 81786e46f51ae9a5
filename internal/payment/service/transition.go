package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Capture(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	return s.transition(ctx, id, domain.EventCaptured, s.capture)
}

func (s *Service) Refund(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (*domain.Payment, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return s.transition(ctx, id, domain.EventRefunded, func(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
		return s.refund(ctx, tx, pay, amount)
	})
}

func (s *Service) Fail(ctx context.Context, id snowflake.ID, reason string) (*domain.Payment, error) {
	return s.transition(ctx, id, domain.EventFailed, func(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
		return s.close(ctx, tx, pay, domain.StatusFailed, reason)
	})
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	return s.transition(ctx, id, domain.EventCancelled, func(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
		return s.close(ctx, tx, pay, domain.StatusCancelled, "")
	})
}

type applyFunc func(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error

// transition loads the payment, applies fn and its invoice side effects in one
// database transaction.
func (s *Service) transition(ctx context.Context, id snowflake.ID, event string, fn applyFunc) (*domain.Payment, error) {
	var pay *domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.payments.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, current); err != nil {
			return err
		}
		pay = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPaymentEvent(ctx, string(pay.Provider), event)
	s.log.Info(event,
		zap.String("business_id", pay.BusinessID.String()),
		zap.String("payment_number", pay.PaymentNumber),
		zap.String("status", string(pay.Status)),
		zap.String("amount", pay.Amount.StringFixed(2)),
		zap.String("refunded_amount", pay.RefundedAmount.StringFixed(2)),
	)
	return pay, nil
}

func (s *Service) capture(ctx context.Context, tx *gorm.DB, pay *domain.Payment) error {
	if !pay.Status.Open() {
		return domain.ErrNotCapturable
	}
	now := s.clock.Now()
	pay.Status = domain.StatusCaptured
	pay.CapturedAt = &now
	pay.FailureReason = ""
	pay.UpdatedAt = now
	if err := s.repo.UpdatePayment(ctx, tx, pay, "status", "captured_at", "failure_reason"); err != nil {
		return err
	}
	if pay.InvoiceID != nil {
		if _, err := s.finance.ApplyInvoicePayment(ctx, tx, *pay.InvoiceID, pay.Amount); err != nil {
			return err
		}
	}
	return nil
}

// refund takes amount back off a captured payment. A zero amount refunds
// whatever is left.
func (s *Service) refund(ctx context.Context, tx *gorm.DB, pay *domain.Payment, amount decimal.Decimal) error {
	if pay.Status != domain.StatusCaptured {
		return domain.ErrNotRefundable
	}
	left := pay.Refundable()
	if amount.IsZero() {
		amount = left
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if amount.GreaterThan(left) {
		return domain.ErrRefundTooLarge
	}

	now := s.clock.Now()
	pay.RefundedAmount = pay.RefundedAmount.Add(amount)
	pay.RefundedAt = &now
	if pay.RefundedAmount.GreaterThanOrEqual(pay.Amount) {
		pay.Status = domain.StatusRefunded
	}
	pay.UpdatedAt = now
	if err := s.repo.UpdatePayment(ctx, tx, pay, "status", "refunded_amount", "refunded_at"); err != nil {
		return err
	}
	if pay.InvoiceID != nil {
		if _, err := s.finance.ReverseInvoicePayment(ctx, tx, *pay.InvoiceID, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) close(ctx context.Context, tx *gorm.DB, pay *domain.Payment, status domain.Status, reason string) error {
	if !pay.Status.Open() {
		return domain.ErrNotCancellable
	}
	pay.Status = status
	pay.FailureReason = reason
	pay.UpdatedAt = s.clock.Now()
	return s.repo.UpdatePayment(ctx, tx, pay, "status", "failure_reason")
}
