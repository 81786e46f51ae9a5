package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// step is the status-specific work done inside the transition transaction.
type step func(ctx context.Context, tx *gorm.DB, o *domain.Order, t *transition) error

type transition struct {
	now    time.Time
	notify []*notificationdomain.Notification
	// alerts are extra inventory notices raised by the step.
	alerts []string
}

func (s *Service) Submit(ctx context.Context, id snowflake.ID, notes string) (*domain.Order, error) {
	return s.move(ctx, id, domain.StatusPending, notes, func(ctx context.Context, tx *gorm.DB, o *domain.Order, _ *transition) error {
		return s.requireItems(ctx, tx, o)
	})
}

func (s *Service) Confirm(ctx context.Context, id snowflake.ID, notes string) (*domain.Order, error) {
	ttl := time.Duration(s.tunables.Get().ConfirmLockSeconds) * time.Second
	release, err := s.locker.Obtain(ctx, "bizcore:order:confirm:"+id.String(), ttl)
	if err != nil {
		return nil, err
	}
	defer release()

	if notes == "" {
		notes = "order confirmed and stock deducted"
	}
	o, err := s.move(ctx, id, domain.StatusConfirmed, notes, func(ctx context.Context, tx *gorm.DB, o *domain.Order, t *transition) error {
		if err := s.requireItems(ctx, tx, o); err != nil {
			return err
		}
		items, err := s.repo.Items(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		alerts, err := s.deductStock(ctx, tx, o, items)
		if err != nil {
			return err
		}
		t.alerts = alerts
		o.ConfirmedAt = &t.now
		o.StockDeducted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderConfirmed(ctx, o.BusinessID.String())
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, notes string) (*domain.Order, error) {
	return s.move(ctx, id, domain.StatusCancelled, notes, func(ctx context.Context, tx *gorm.DB, o *domain.Order, t *transition) error {
		o.CancelledAt = &t.now
		return s.releaseStock(ctx, tx, o)
	})
}

func (s *Service) ChangeStatus(ctx context.Context, id snowflake.ID, change domain.StatusChange) (*domain.Order, error) {
	if !change.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	switch change.Status {
	case domain.StatusPending:
		return s.Submit(ctx, id, change.Notes)
	case domain.StatusConfirmed:
		return s.Confirm(ctx, id, change.Notes)
	case domain.StatusCancelled:
		return s.Cancel(ctx, id, change.Notes)
	case domain.StatusCompleted:
		return s.move(ctx, id, domain.StatusCompleted, change.Notes, s.complete)
	case domain.StatusRefunded:
		return s.move(ctx, id, domain.StatusRefunded, change.Notes, func(ctx context.Context, tx *gorm.DB, o *domain.Order, _ *transition) error {
			// Completed orders return goods through refunds with restock.
			if o.Status == domain.StatusCompleted {
				return nil
			}
			return s.releaseStock(ctx, tx, o)
		})
	}
	return s.move(ctx, id, change.Status, change.Notes, nil)
}

func (s *Service) complete(ctx context.Context, tx *gorm.DB, o *domain.Order, t *transition) error {
	o.CompletedAt = &t.now
	if o.CustomerID == nil {
		return nil
	}
	return s.customers.RecordPurchase(ctx, tx, *o.CustomerID, o.Total, t.now)
}

func (s *Service) requireItems(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	count, err := s.repo.CountItems(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrEmptyOrder
	}
	return nil
}

// move runs one status transition: the step, the status write, the history
// row and the staff notification share a transaction. Notifications are pushed
// after commit.
func (s *Service) move(ctx context.Context, id snowflake.ID, target domain.Status, notes string, apply step) (*domain.Order, error) {
	t := &transition{now: s.clock.Now()}
	var order *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.orders.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		previous := o.Status
		if err := transitionError(previous, target); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(ctx, tx, o, t); err != nil {
				return err
			}
		}

		o.Status = target
		o.UpdatedAt = t.now
		if err := s.repo.UpdateOrder(ctx, tx, o,
			"status", "confirmed_at", "completed_at", "cancelled_at", "stock_deducted"); err != nil {
			return err
		}
		if err := s.history.CreateTx(ctx, tx, &domain.OrderStatusHistory{
			OrderID:        o.ID,
			PreviousStatus: previous,
			NewStatus:      target,
			ChangedBy:      bizcontext.ActorID(ctx),
			Notes:          notes,
		}); err != nil {
			return err
		}
		if err := s.announce(ctx, tx, o, previous, t); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(t.notify...)
	}
	s.log.Info("order status changed",
		zap.String("business_id", order.BusinessID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}

func (s *Service) announce(ctx context.Context, tx *gorm.DB, o *domain.Order, previous domain.Status, t *transition) error {
	if s.notifier == nil {
		return nil
	}
	staff := []string{"owner", "admin"}
	sent, err := s.notifier.Notify(ctx, tx, notificationdomain.NotifyRequest{
		BusinessID: o.BusinessID,
		Roles:      staff,
		Type:       notificationdomain.TypeOrder,
		Title:      fmt.Sprintf("Order %s %s", o.OrderNumber, o.Status),
		Message:    fmt.Sprintf("Order %s moved from %s to %s.", o.OrderNumber, previous, o.Status),
		URL:        "/orders/" + o.ID.String(),
		Metadata: map[string]any{
			"order_id":        o.ID.String(),
			"order_number":    o.OrderNumber,
			"previous_status": string(previous),
			"status":          string(o.Status),
		},
	})
	if err != nil {
		return err
	}
	t.notify = append(t.notify, sent...)

	if len(t.alerts) == 0 || !s.tunables.Get().LowStockNotifications {
		return nil
	}
	sent, err = s.notifier.Notify(ctx, tx, notificationdomain.NotifyRequest{
		BusinessID: o.BusinessID,
		Roles:      staff,
		Type:       notificationdomain.TypeInventory,
		Priority:   notificationdomain.PriorityHigh,
		Title:      "Low stock",
		Message:    fmt.Sprintf("After order %s: %s", o.OrderNumber, strings.Join(t.alerts, "; ")),
		Metadata:   map[string]any{"order_id": o.ID.String(), "items": t.alerts},
	})
	if err != nil {
		return err
	}
	t.notify = append(t.notify, sent...)
	return nil
}

func transitionError(from, to domain.Status) error {
	switch {
	case to == domain.StatusConfirmed && from != domain.StatusPending:
		return domain.ErrNotPending
	case to == domain.StatusPending && from != domain.StatusDraft:
		return domain.ErrNotDraft
	case !from.CanTransition(to):
		return domain.ErrInvalidTransition.WithMessage(fmt.Sprintf("cannot move an order from %s to %s", from, to))
	}
	return nil
}
