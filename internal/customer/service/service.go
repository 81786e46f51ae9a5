package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/customer/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Store    repository.Repository[domain.Customer]
	Refs     referencedomain.Generator
	Tunables *config.TunablesHolder `optional:"true"`
}

type Service struct {
	*crud.Service[domain.Customer, *domain.Customer]

	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	refs     referencedomain.Generator
	tunables *config.TunablesHolder
}

func New(p Params) domain.Service {
	s := &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		refs:     p.Refs,
		tunables: p.Tunables,
	}
	s.Service = crud.New[domain.Customer](p.DB, p.Store, p.GenID, p.Clock, crud.Config[domain.Customer]{
		Name:         "customer",
		ReadOnly:     domain.ReadOnlyFields,
		Defaults:     func(c *domain.Customer) { c.PreferEmail = true },
		BeforeCreate: s.assignNumber,
		Validate:     s.validate,
	})
	return s
}

func (s *Service) assignNumber(ctx context.Context, tx *gorm.DB, c *domain.Customer) error {
	slug, err := s.repo.BusinessSlug(ctx, tx, c.BusinessID)
	if err != nil {
		return err
	}
	number, err := s.refs.NextCustomerNumber(ctx, tx, c.BusinessID, slug)
	if err != nil {
		return err
	}
	c.CustomerNumber = number
	c.LoyaltyPoints = 0
	c.TotalSpent = decimal.Zero
	c.TotalOrders = 0
	c.FirstPurchaseAt = nil
	c.LastPurchaseAt = nil
	return nil
}

func (s *Service) validate(ctx context.Context, tx *gorm.DB, c, _ *domain.Customer) error {
	if c.UserID == nil {
		return nil
	}
	ok, err := s.repo.UserExists(ctx, tx, *c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidUser
	}
	taken, err := s.repo.ExistsForUser(ctx, tx, c.BusinessID, *c.UserID, c.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrCustomerUserConflict
	}
	return nil
}

func (s *Service) AddLoyaltyPoints(ctx context.Context, id snowflake.ID, points int64) (*domain.Customer, error) {
	if points <= 0 {
		return nil, domain.ErrInvalidPoints
	}
	return s.adjust(ctx, id, points)
}

func (s *Service) RedeemLoyaltyPoints(ctx context.Context, id snowflake.ID, points int64) (*domain.Customer, error) {
	if points <= 0 {
		return nil, domain.ErrInvalidPoints
	}
	return s.adjust(ctx, id, -points)
}

func (s *Service) adjust(ctx context.Context, id snowflake.ID, delta int64) (*domain.Customer, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}

	var customer *domain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.GetTx(ctx, tx, id); err != nil {
			return err
		}
		applied, err := s.repo.AdjustLoyalty(ctx, tx, businessID, id, delta)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrInsufficientPoints
		}
		customer, err = s.GetTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("loyalty points adjusted",
		zap.String("customer_id", id.String()),
		zap.Int64("delta", delta),
		zap.Int64("balance", customer.LoyaltyPoints),
	)
	return customer, nil
}

func (s *Service) RecordPurchase(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal, at time.Time) error {
	if amount.IsNegative() {
		return domain.ErrInvalidPurchase
	}
	customer, err := s.GetTx(ctx, tx, id)
	if err != nil {
		return err
	}

	customer.TotalSpent = customer.TotalSpent.Add(amount).Round(2)
	customer.TotalOrders++
	customer.LastPurchaseAt = &at
	if customer.FirstPurchaseAt == nil {
		customer.FirstPurchaseAt = &at
	}
	customer.LoyaltyPoints += s.pointsFor(amount)
	customer.UpdatedAt = s.clock.Now()
	return tx.WithContext(ctx).Save(customer).Error
}

// pointsFor awards one point per full LoyaltyPointsPerUnit of currency spent.
func (s *Service) pointsFor(amount decimal.Decimal) int64 {
	perUnit := s.tunables.Get().LoyaltyPointsPerUnit
	if perUnit <= 0 {
		return 0
	}
	return amount.Div(decimal.NewFromInt(perUnit)).Floor().IntPart()
}

func (s *Service) Exists(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	_, err := s.GetTx(ctx, tx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, s.NotFound()) {
		return false, nil
	}
	return false, err
}
