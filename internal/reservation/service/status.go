package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/reservation/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Confirm(ctx context.Context, id snowflake.ID, notes string) (*domain.Reservation, error) {
	return s.move(ctx, id, domain.StatusConfirmed, notes, func(r *domain.Reservation) error {
		if r.RequiresDeposit && !r.DepositPaid {
			return domain.ErrDepositRequired
		}
		now := s.clock.Now()
		r.ConfirmedAt = &now
		r.ConfirmedBy = bizcontext.ActorID(ctx)
		return nil
	})
}

func (s *Service) ChangeStatus(ctx context.Context, id snowflake.ID, change domain.StatusChange) (*domain.Reservation, error) {
	if !change.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	switch change.Status {
	case domain.StatusConfirmed:
		return s.Confirm(ctx, id, change.Notes)
	case domain.StatusCancelled:
		return s.move(ctx, id, domain.StatusCancelled, change.Notes, func(r *domain.Reservation) error {
			now := s.clock.Now()
			r.CancelledAt = &now
			r.CancelledBy = bizcontext.ActorID(ctx)
			r.CancellationReason = change.Notes
			return nil
		})
	case domain.StatusPending:
		return s.move(ctx, id, domain.StatusPending, change.Notes, func(r *domain.Reservation) error {
			r.ConfirmedAt, r.ConfirmedBy = nil, nil
			r.CancelledAt, r.CancelledBy = nil, nil
			r.CancellationReason = ""
			return nil
		})
	}
	return s.move(ctx, id, change.Status, change.Notes, nil)
}

func (s *Service) MarkDepositPaid(ctx context.Context, id snowflake.ID) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.reservations.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !r.RequiresDeposit {
			return domain.ErrDepositNotRequired
		}
		old := *r
		r.DepositPaid = true
		r.UpdatedAt = s.clock.Now()
		if err := s.reservations.SaveTx(ctx, tx, r, &old); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Compute(s.clock.Now())
	return res, nil
}

// move applies a status transition, its history row and the provider
// notification in one transaction. The save re-runs the slot checks, which
// matters when a cancelled reservation is reopened.
func (s *Service) move(ctx context.Context, id snowflake.ID, target domain.Status, notes string, apply func(*domain.Reservation) error) (*domain.Reservation, error) {
	var (
		res    *domain.Reservation
		notify []*notificationdomain.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.reservations.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		previous := r.Status
		switch {
		case target == domain.StatusConfirmed && previous != domain.StatusPending:
			return domain.ErrNotPending
		case !previous.CanTransition(target):
			return domain.ErrInvalidTransition.WithMessage(fmt.Sprintf("cannot move a reservation from %s to %s", previous, target))
		}

		old := *r
		if apply != nil {
			if err := apply(r); err != nil {
				return err
			}
		}
		r.Status = target
		r.UpdatedAt = s.clock.Now()
		if err := s.reservations.SaveTx(ctx, tx, r, &old); err != nil {
			return err
		}
		if err := s.history.CreateTx(ctx, tx, &domain.ReservationStatusHistory{
			ReservationID:  r.ID,
			PreviousStatus: previous,
			NewStatus:      target,
			ChangedBy:      bizcontext.ActorID(ctx),
			Notes:          notes,
		}); err != nil {
			return err
		}
		if notify, err = s.announce(ctx, tx, r, previous); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(notify...)
	}
	s.log.Info("reservation status changed",
		zap.String("business_id", res.BusinessID.String()),
		zap.String("reservation_number", res.ReservationNumber),
		zap.String("status", string(res.Status)),
	)
	res.Compute(s.clock.Now())
	return res, nil
}

// announce tells the assigned provider, when they have a user account.
func (s *Service) announce(ctx context.Context, tx *gorm.DB, r *domain.Reservation, previous domain.Status) ([]*notificationdomain.Notification, error) {
	if s.notifier == nil || r.ServiceProviderID == nil {
		return nil, nil
	}
	provider, err := s.providers.GetTx(ctx, tx, *r.ServiceProviderID)
	if errors.Is(err, s.providers.NotFound()) {
		return nil, nil
	}
	if err != nil || provider.UserID == nil {
		return nil, err
	}
	return s.notifier.Notify(ctx, tx, notificationdomain.NotifyRequest{
		BusinessID: r.BusinessID,
		Recipients: []snowflake.ID{*provider.UserID},
		Type:       notificationdomain.TypeReservation,
		Title:      fmt.Sprintf("Reservation %s %s", r.ReservationNumber, r.Status),
		Message: fmt.Sprintf("%s at %s moved from %s to %s.",
			r.CustomerName, r.StartDatetime.UTC().Format("2006-01-02 15:04"), previous, r.Status),
		URL: "/reservations/" + r.ID.String(),
		Metadata: map[string]any{
			"reservation_id":     r.ID.String(),
			"reservation_number": r.ReservationNumber,
			"status":             string(r.Status),
		},
	})
}
