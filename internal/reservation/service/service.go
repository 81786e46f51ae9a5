package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/internal/reservation/domain"
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
	Catalog   catalogdomain.Service
	Customers customerdomain.Service
	Refs      referencedomain.Generator
	Notifier  notificationdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	catalog   catalogdomain.Service
	customers customerdomain.Service
	refs      referencedomain.Generator
	notifier  notificationdomain.Service

	providers    *crud.Service[domain.ServiceProvider, *domain.ServiceProvider]
	reservations *crud.Service[domain.Reservation, *domain.Reservation]
	services     *crud.Service[domain.ReservationService, *domain.ReservationService]
	history      *crud.Service[domain.ReservationStatusHistory, *domain.ReservationStatusHistory]
	availability *crud.Service[domain.ProviderAvailability, *domain.ProviderAvailability]
	waiting      *crud.Service[domain.WaitingListEntry, *domain.WaitingListEntry]
}

func New(p Params) domain.Service {
	s := &Service{
		db:        p.DB,
		log:       p.Log.Named("reservation.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		catalog:   p.Catalog,
		customers: p.Customers,
		refs:      p.Refs,
		notifier:  p.Notifier,
	}

	s.providers = crud.New[domain.ServiceProvider](p.DB, repository.ProvideStore[domain.ServiceProvider](p.DB), p.GenID, p.Clock, crud.Config[domain.ServiceProvider]{
		Name: "service_provider",
		Defaults: func(sp *domain.ServiceProvider) {
			sp.IsActive = true
			sp.AcceptsWalkIns = true
		},
		Validate: s.checkProvider,
	})
	s.reservations = crud.New[domain.Reservation](p.DB, repository.ProvideStore[domain.Reservation](p.DB), p.GenID, p.Clock, crud.Config[domain.Reservation]{
		Name:     "reservation",
		ReadOnly: domain.ReservationReadOnly,
		Defaults: func(r *domain.Reservation) {
			r.Status = domain.StatusPending
		},
		BeforeCreate: s.openReservation,
		Validate:     s.checkReservation,
		Present: func(_ context.Context, _ *gorm.DB, items []*domain.Reservation) error {
			now := s.clock.Now()
			for _, r := range items {
				r.Compute(now)
			}
			return nil
		},
	})
	s.services = crud.New[domain.ReservationService](p.DB, repository.ProvideStore[domain.ReservationService](p.DB), p.GenID, p.Clock, crud.Config[domain.ReservationService]{
		Name:     "reservation_service",
		ReadOnly: domain.ServiceReadOnly,
		Defaults: func(rs *domain.ReservationService) { rs.Quantity = 1 },
		Validate: s.checkService,
		AfterSave: func(ctx context.Context, tx *gorm.DB, rs *domain.ReservationService) error {
			return s.resum(ctx, tx, rs.ReservationID)
		},
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, rs *domain.ReservationService) error {
			_, err := s.openFor(ctx, tx, rs.ReservationID)
			return err
		},
		AfterDelete: func(ctx context.Context, tx *gorm.DB, rs *domain.ReservationService) error {
			return s.resum(ctx, tx, rs.ReservationID)
		},
	})
	s.history = crud.New[domain.ReservationStatusHistory](p.DB, repository.ProvideStore[domain.ReservationStatusHistory](p.DB), p.GenID, p.Clock, crud.Config[domain.ReservationStatusHistory]{
		Name:       "reservation_status_history",
		AppendOnly: true,
	})
	s.availability = crud.New[domain.ProviderAvailability](p.DB, repository.ProvideStore[domain.ProviderAvailability](p.DB), p.GenID, p.Clock, crud.Config[domain.ProviderAvailability]{
		Name:     "provider_availability",
		Validate: s.checkAvailability,
	})
	s.waiting = crud.New[domain.WaitingListEntry](p.DB, repository.ProvideStore[domain.WaitingListEntry](p.DB), p.GenID, p.Clock, crud.Config[domain.WaitingListEntry]{
		Name:     "waiting_list_entry",
		ReadOnly: domain.WaitingReadOnly,
		Defaults: func(w *domain.WaitingListEntry) { w.Status = domain.WaitingOpen },
		Validate: s.checkWaiting,
	})
	return s
}

func (s *Service) Providers() crud.Store[domain.ServiceProvider] { return s.providers }
func (s *Service) Reservations() crud.Store[domain.Reservation] { return s.reservations }
func (s *Service) Services() crud.Store[domain.ReservationService] { return s.services }
func (s *Service) History() crud.Store[domain.ReservationStatusHistory] { return s.history }
func (s *Service) Availability() crud.Store[domain.ProviderAvailability] { return s.availability }
func (s *Service) WaitingList() crud.Store[domain.WaitingListEntry] { return s.waiting }

func (s *Service) checkProvider(ctx context.Context, tx *gorm.DB, sp, _ *domain.ServiceProvider) error {
	if day := sp.WorkingHours.Data().Validate(); day != "" {
		return domain.ErrInvalidWorkingHours.WithMessage("invalid working hours for " + day)
	}
	return nil
}

func (s *Service) openReservation(ctx context.Context, tx *gorm.DB, r *domain.Reservation) error {
	number, err := s.refs.Next(ctx, tx, r.BusinessID, referencedomain.DocReservation, s.clock.Now())
	if err != nil {
		return err
	}
	r.ReservationNumber = number
	r.Status = domain.StatusPending
	r.CreatedBy = bizcontext.ActorID(ctx)
	r.TotalAmount = decimal.Zero
	r.DepositPaid = false
	r.ConfirmedAt, r.ConfirmedBy, r.CancelledAt, r.CancelledBy = nil, nil, nil, nil

	if r.CustomerID != nil && r.CustomerName == "" {
		customer, err := s.customers.GetTx(ctx, tx, *r.CustomerID)
		if err != nil {
			if errors.Is(err, customerdomain.ErrNotFound) {
				return domain.ErrInvalidCustomer
			}
			return err
		}
		r.CustomerName = customer.FullName()
		if r.CustomerEmail == "" {
			r.CustomerEmail = customer.Email
		}
		if r.CustomerPhone == "" {
			r.CustomerPhone = customer.Phone
		}
	}
	return nil
}

// checkReservation runs before every save, status changes included.
// Times are stored in UTC so the overlap query compares like with like on
// dialects that keep timestamps as text.
func (s *Service) checkReservation(ctx context.Context, tx *gorm.DB, r, old *domain.Reservation) error {
	r.StartDatetime = r.StartDatetime.UTC()
	r.EndDatetime = r.EndDatetime.UTC()
	if old != nil && old.Status.Terminal() && r.Status == old.Status {
		return domain.ErrReservationClosed
	}
	if !r.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	if !r.EndDatetime.After(r.StartDatetime) {
		return domain.ErrInvalidTimes
	}
	r.DurationMinutes = int64(r.EndDatetime.Sub(r.StartDatetime).Minutes())
	if r.DepositAmount.IsNegative() {
		return domain.ErrNegativeDeposit
	}

	if r.CustomerID == nil && r.CustomerName == "" {
		return domain.ErrCustomerRequired
	}
	if r.CustomerID != nil && (old == nil || !sameID(r.CustomerID, old.CustomerID)) {
		ok, err := s.customers.Exists(ctx, tx, *r.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}
	}

	if r.ServiceProviderID == nil {
		return nil
	}
	moved := old == nil || !sameID(r.ServiceProviderID, old.ServiceProviderID) ||
		!r.StartDatetime.Equal(old.StartDatetime) || !r.EndDatetime.Equal(old.EndDatetime)
	reopened := old != nil && !old.Status.Active() && r.Status.Active()
	if !r.Status.Active() || !(moved || reopened) {
		return nil
	}
	return s.checkSlot(ctx, tx, r, old == nil || !sameID(r.ServiceProviderID, old.ServiceProviderID))
}

// checkSlot verifies the provider can take the reservation's time slot.
func (s *Service) checkSlot(ctx context.Context, tx *gorm.DB, r *domain.Reservation, newProvider bool) error {
	provider, err := s.providers.GetTx(ctx, tx, *r.ServiceProviderID)
	if err != nil {
		if errors.Is(err, s.providers.NotFound()) {
			return domain.ErrInvalidProvider
		}
		return err
	}
	if newProvider {
		if !provider.IsActive {
			return domain.ErrInactiveProvider
		}
		if r.CustomerID == nil && !provider.AcceptsWalkIns {
			return domain.ErrNoWalkIns
		}
	}

	blocks, err := s.repo.BlockingAvailability(ctx, tx, provider.ID)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if b.Covers(r.StartDatetime, r.EndDatetime) {
			msg := "the provider is not available at this time"
			if b.Reason != "" {
				msg += ": " + b.Reason
			}
			return domain.ErrProviderUnavailable.WithMessage(msg)
		}
	}

	overlap, err := s.repo.Overlapping(ctx, tx, provider.ID, r.StartDatetime, r.EndDatetime, r.ID)
	if err != nil {
		return err
	}
	if overlap {
		return domain.ErrOverlap
	}
	return nil
}

func (s *Service) checkService(ctx context.Context, tx *gorm.DB, rs, old *domain.ReservationService) error {
	if old != nil && old.ReservationID != rs.ReservationID {
		return domain.ErrInvalidReservation.WithMessage("services cannot move between reservations")
	}
	if _, err := s.openFor(ctx, tx, rs.ReservationID); err != nil {
		return err
	}
	product, err := s.catalog.ProductTx(ctx, tx, rs.ProductID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return domain.ErrInvalidProduct
		}
		return err
	}
	if rs.UnitPrice.IsNegative() {
		return domain.ErrInvalidUnitPrice
	}
	if rs.UnitPrice.IsZero() {
		rs.UnitPrice = product.BasePrice
	}
	line := rs.UnitPrice.Mul(decimal.NewFromInt(rs.Quantity))
	if rs.DiscountAmount.IsNegative() || rs.DiscountAmount.GreaterThan(line) {
		return domain.ErrInvalidDiscount
	}
	rs.ComputeTotal()
	return nil
}

// resum recomputes the reservation total from its services.
func (s *Service) resum(ctx context.Context, tx *gorm.DB, reservationID snowflake.ID) error {
	r, err := s.reservations.GetTx(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	total, err := s.repo.ServicesTotal(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	r.TotalAmount = total.Round(2)
	r.UpdatedAt = s.clock.Now()
	return s.repo.UpdateReservation(ctx, tx, r, "total_amount")
}

// openFor loads a reservation that can still take service changes.
func (s *Service) openFor(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Reservation, error) {
	r, err := s.reservations.GetTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, s.reservations.NotFound()) {
			return nil, domain.ErrInvalidReservation
		}
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, domain.ErrReservationClosed
	}
	return r, nil
}

func (s *Service) checkAvailability(ctx context.Context, tx *gorm.DB, a, _ *domain.ProviderAvailability) error {
	if !a.AvailabilityType.Valid() {
		return domain.ErrInvalidAvailability
	}
	if (a.Date == nil) == (a.Weekday == nil) {
		return domain.ErrAvailabilityDay
	}
	if _, _, ok := a.Span().Minutes(); !ok {
		return domain.ErrInvalidAvailabilitySpan
	}
	ok, err := s.repo.Owned(ctx, tx, "service_providers", a.BusinessID, a.ServiceProviderID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidProvider
	}
	return nil
}

func (s *Service) checkWaiting(ctx context.Context, tx *gorm.DB, w, old *domain.WaitingListEntry) error {
	if !w.Status.Valid() {
		return domain.ErrInvalidWaitingStatus
	}
	if w.Status == domain.WaitingNotified && (old == nil || old.Status != domain.WaitingNotified) {
		now := s.clock.Now()
		w.NotifiedAt = &now
	}
	if w.CustomerID == nil && w.CustomerName == "" {
		return domain.ErrCustomerRequired
	}
	if w.CustomerID != nil && (old == nil || !sameID(w.CustomerID, old.CustomerID)) {
		ok, err := s.customers.Exists(ctx, tx, *w.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}
	}
	if w.ServiceProviderID != nil && (old == nil || !sameID(w.ServiceProviderID, old.ServiceProviderID)) {
		ok, err := s.repo.Owned(ctx, tx, "service_providers", w.BusinessID, *w.ServiceProviderID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidProvider
		}
	}
	if w.ProductID != nil && (old == nil || !sameID(w.ProductID, old.ProductID)) {
		if _, err := s.catalog.ProductTx(ctx, tx, *w.ProductID); err != nil {
			if errors.Is(err, catalogdomain.ErrProductNotFound) {
				return domain.ErrInvalidProduct
			}
			return err
		}
	}
	return nil
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
