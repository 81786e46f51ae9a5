package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) checkPayment(ctx context.Context, tx *gorm.DB, pay, old *domain.OrderPayment) error {
	if old != nil {
		if old.Status != domain.PaymentPending {
			return domain.ErrPaymentImmutable
		}
		if old.OrderID != pay.OrderID {
			return domain.ErrInvalidOrder.WithMessage("payments cannot move between orders")
		}
	}
	if !pay.PaymentMethod.Valid() {
		return domain.ErrInvalidMethod
	}
	if !pay.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	o, err := s.loadOrder(ctx, tx, pay.OrderID)
	if err != nil {
		return err
	}
	if o.Status == domain.StatusCancelled || o.Status == domain.StatusRefunded {
		return domain.ErrOrderClosed
	}
	return nil
}

func (s *Service) CompletePayment(ctx context.Context, id snowflake.ID) (*domain.OrderPayment, error) {
	var pay *domain.OrderPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.payments.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.PaymentPending {
			return domain.ErrPaymentNotPending
		}
		old := *current
		now := s.clock.Now()
		current.Status = domain.PaymentCompleted
		current.PaidAt = &now
		current.ProcessedBy = bizcontext.ActorID(ctx)
		current.UpdatedAt = now
		if err := s.payments.SaveTx(ctx, tx, current, &old); err != nil {
			return err
		}
		pay = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order payment completed",
		zap.String("order_id", pay.OrderID.String()),
		zap.String("payment_id", pay.ID.String()),
		zap.String("amount", pay.Amount.StringFixed(2)),
	)
	return pay, nil
}

func (s *Service) openRefund(ctx context.Context, tx *gorm.DB, r *domain.OrderRefund) error {
	number, err := s.refs.Next(ctx, tx, r.BusinessID, referencedomain.DocRefund, s.clock.Now())
	if err != nil {
		return err
	}
	r.RefundNumber = number
	r.Status = domain.RefundPending
	r.RequestedBy = bizcontext.ActorID(ctx)
	r.ApprovedBy, r.ApprovedAt, r.ProcessedAt = nil, nil, nil
	return nil
}

// checkRefund keeps every open or processed refund of an order within what was paid.
func (s *Service) checkRefund(ctx context.Context, tx *gorm.DB, r, old *domain.OrderRefund) error {
	if old != nil {
		if old.OrderID != r.OrderID {
			return domain.ErrInvalidOrder.WithMessage("refunds cannot move between orders")
		}
		if old.Status != domain.RefundPending && r.Status == old.Status {
			return domain.ErrRefundImmutable
		}
	}
	if !r.Reason.Valid() {
		return domain.ErrInvalidReason
	}
	if !r.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if _, err := s.loadOrder(ctx, tx, r.OrderID); err != nil {
		return err
	}
	if r.Status == domain.RefundRejected {
		return nil
	}

	paid, err := s.repo.PaidTotal(ctx, tx, r.OrderID)
	if err != nil {
		return err
	}
	committed, err := s.repo.RefundTotal(ctx, tx, r.OrderID, r.ID,
		domain.RefundPending, domain.RefundApproved, domain.RefundProcessed)
	if err != nil {
		return err
	}
	if committed.Add(r.Amount).GreaterThan(paid) {
		return domain.ErrRefundExceedsPaid.WithMessage("refund exceeds the amount paid of " + paid.Sub(committed).StringFixed(2))
	}
	return nil
}

func (s *Service) ApproveRefund(ctx context.Context, id snowflake.ID) (*domain.OrderRefund, error) {
	return s.reviewRefund(ctx, id, func(r *domain.OrderRefund) error {
		if r.Status != domain.RefundPending {
			return domain.ErrRefundNotPending
		}
		now := s.clock.Now()
		r.Status = domain.RefundApproved
		r.ApprovedBy = bizcontext.ActorID(ctx)
		r.ApprovedAt = &now
		return nil
	}, nil)
}

func (s *Service) RejectRefund(ctx context.Context, id snowflake.ID, notes string) (*domain.OrderRefund, error) {
	return s.reviewRefund(ctx, id, func(r *domain.OrderRefund) error {
		if r.Status != domain.RefundPending {
			return domain.ErrRefundNotPending
		}
		r.Status = domain.RefundRejected
		if notes != "" {
			r.Notes = notes
		}
		return nil
	}, nil)
}

// ProcessRefund pays out an approved refund. Restocking refunds return the
// order's goods; once refunds cover everything paid the order becomes refunded.
func (s *Service) ProcessRefund(ctx context.Context, id snowflake.ID) (*domain.OrderRefund, error) {
	var fully bool
	r, err := s.reviewRefund(ctx, id, func(r *domain.OrderRefund) error {
		if r.Status != domain.RefundApproved {
			return domain.ErrRefundNotApproved
		}
		now := s.clock.Now()
		r.Status = domain.RefundProcessed
		r.ProcessedAt = &now
		return nil
	}, func(tx *gorm.DB, r *domain.OrderRefund) error {
		o, err := s.loadOrder(ctx, tx, r.OrderID)
		if err != nil {
			return err
		}
		if r.Restock {
			if err := s.releaseStock(ctx, tx, o); err != nil {
				return err
			}
			o.UpdatedAt = s.clock.Now()
			if err := s.repo.UpdateOrder(ctx, tx, o, "stock_deducted"); err != nil {
				return err
			}
		}
		paid, err := s.repo.PaidTotal(ctx, tx, r.OrderID)
		if err != nil {
			return err
		}
		refunded, err := s.repo.RefundTotal(ctx, tx, r.OrderID, 0, domain.RefundProcessed)
		if err != nil {
			return err
		}
		fully = refunded.GreaterThanOrEqual(paid) && o.Status.CanTransition(domain.StatusRefunded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fully {
		if _, err := s.ChangeStatus(ctx, r.OrderID, domain.StatusChange{
			Status: domain.StatusRefunded,
			Notes:  "fully refunded by " + r.RefundNumber,
		}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Service) reviewRefund(ctx context.Context, id snowflake.ID, apply func(*domain.OrderRefund) error, after func(*gorm.DB, *domain.OrderRefund) error) (*domain.OrderRefund, error) {
	var refund *domain.OrderRefund
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.refunds.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		old := *current
		if err := apply(current); err != nil {
			return err
		}
		current.UpdatedAt = s.clock.Now()
		if err := s.refunds.SaveTx(ctx, tx, current, &old); err != nil {
			return err
		}
		if after != nil {
			if err := after(tx, current); err != nil {
				return err
			}
		}
		refund = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order refund reviewed",
		zap.String("refund_number", refund.RefundNumber),
		zap.String("status", string(refund.Status)),
	)
	return refund, nil
}
