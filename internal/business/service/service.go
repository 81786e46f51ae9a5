package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	trialPeriod     = 14 * 24 * time.Hour
	defaultCurrency = "COP"
	defaultTimezone = "America/Bogota"
	defaultLocale   = "es-CO"
	defaultCountry  = "Colombia"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Users authdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	users authdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("business.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		users: p.Users,
	}
}

func (s *Service) ListTypes(ctx context.Context) ([]*domain.BusinessType, error) {
	actor, _ := bizcontext.ActorFromContext(ctx)
	return s.repo.ListTypes(ctx, s.db, !actor.IsStaff)
}

func (s *Service) GetType(ctx context.Context, id snowflake.ID) (*domain.BusinessType, error) {
	return s.repo.FindType(ctx, s.db, id)
}

func (s *Service) CreateType(ctx context.Context, t *domain.BusinessType) (*domain.BusinessType, error) {
	if err := requireStaff(ctx); err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Slug = slug.Make(firstNonEmpty(t.Slug, t.Name)); t.Slug == "" {
		return nil, domain.ErrInvalidName
	}
	if err := crud.Validate(t); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t.ID = s.genID.Generate()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.repo.SaveType(ctx, s.db, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateType(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*domain.BusinessType, error) {
	if err := requireStaff(ctx); err != nil {
		return nil, err
	}
	t, err := s.repo.FindType(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := crud.Merge(t, patch, "slug"); err != nil {
		return nil, err
	}
	if err := crud.Validate(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveType(ctx, s.db, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateBusinessRequest) (*domain.Business, error) {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	trialEnds := now.Add(trialPeriod)
	business := &domain.Business{
		ID:                 s.genID.Generate(),
		Name:               name,
		BusinessTypeID:     req.BusinessTypeID,
		Description:        strings.TrimSpace(req.Description),
		Email:              strings.TrimSpace(req.Email),
		Phone:              strings.TrimSpace(req.Phone),
		Address:            strings.TrimSpace(req.Address),
		City:               strings.TrimSpace(req.City),
		State:              strings.TrimSpace(req.State),
		Country:            firstNonEmpty(strings.TrimSpace(req.Country), defaultCountry),
		PostalCode:         strings.TrimSpace(req.PostalCode),
		TaxID:              strings.TrimSpace(req.TaxID),
		Currency:           strings.ToUpper(firstNonEmpty(strings.TrimSpace(req.Currency), defaultCurrency)),
		Timezone:           firstNonEmpty(strings.TrimSpace(req.Timezone), defaultTimezone),
		Locale:             firstNonEmpty(strings.TrimSpace(req.Locale), defaultLocale),
		LogoURL:            strings.TrimSpace(req.LogoURL),
		SubscriptionStatus: domain.SubscriptionTrial,
		TrialEndsAt:        &trialEnds,
		IsActive:           true,
		CreatedBy:          actor.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateBusiness(ctx, tx, business); err != nil {
			return err
		}
		slugValue, err := s.uniqueSlug(ctx, tx, name)
		if err != nil {
			return err
		}
		business.Slug = slugValue
		if err := s.repo.Insert(ctx, tx, business); err != nil {
			return err
		}

		owner := &domain.BusinessMember{
			ID:                   s.genID.Generate(),
			BusinessID:           business.ID,
			UserID:               actor.UserID,
			Role:                 domain.RoleOwner,
			Permissions:          datatypes.NewJSONType(map[string]bool{}),
			IsActive:             true,
			InvitationAcceptedAt: &now,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		return s.repo.InsertMember(ctx, tx, owner)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("business created",
		zap.String("business_id", business.ID.String()),
		zap.String("slug", business.Slug),
	)
	return business, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*domain.Business, *pagination.PageInfo, error) {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrUnauthenticated
	}
	afterID, pageSize, err := page.Normalize()
	if err != nil {
		return nil, nil, crud.DecodeError(err)
	}

	var memberOf snowflake.ID
	if !actor.IsStaff {
		memberOf = actor.UserID
	}
	items, err := s.repo.List(ctx, s.db, memberOf, option.WithCursor(afterID, pageSize))
	if err != nil {
		return nil, nil, err
	}
	items, info := pagination.BuildCursorPageInfo(items, pageSize, func(b *domain.Business) snowflake.ID { return b.ID })
	return items, info, nil
}

func (s *Service) Get(ctx context.Context) (*domain.Business, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}
	return s.repo.FindByID(ctx, s.db, businessID)
}

func (s *Service) Update(ctx context.Context, patch map[string]json.RawMessage) (*domain.Business, error) {
	business, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	readOnly := []string{"slug", "created_by"}
	if actor, _ := bizcontext.ActorFromContext(ctx); !actor.IsStaff {
		readOnly = append(readOnly, "subscription_status", "trial_ends_at")
	}
	if err := crud.Merge(business, patch, readOnly...); err != nil {
		return nil, err
	}
	business.Name = strings.TrimSpace(business.Name)
	business.Currency = strings.ToUpper(business.Currency)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateBusiness(ctx, tx, business); err != nil {
			return err
		}
		business.UpdatedAt = s.clock.Now()
		return s.repo.Save(ctx, tx, business)
	})
	if err != nil {
		return nil, err
	}
	return business, nil
}

func (s *Service) Delete(ctx context.Context) error {
	if !callerIsOwner(ctx) {
		return domain.ErrOwnerOnly
	}
	business, err := s.Get(ctx)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	business.MarkDeleted(now)
	business.IsActive = false
	business.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, business); err != nil {
		return err
	}
	s.log.Info("business deleted", zap.String("business_id", business.ID.String()))
	return nil
}

func (s *Service) ListMembers(ctx context.Context, page pagination.Pagination, filter domain.MemberFilter) ([]*domain.BusinessMember, *pagination.PageInfo, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, nil, crud.ErrInvalidBusiness
	}
	afterID, pageSize, err := page.Normalize()
	if err != nil {
		return nil, nil, crud.DecodeError(err)
	}

	opts := []option.QueryOption{}
	if filter.Role != "" {
		opts = append(opts, option.WithWhere("role = ?", filter.Role))
	}
	if filter.IsActive != nil {
		opts = append(opts, option.WithWhere("is_active = ?", *filter.IsActive))
	}
	opts = append(opts, option.WithCursor(afterID, pageSize))

	items, err := s.repo.ListMembers(ctx, s.db, businessID, opts...)
	if err != nil {
		return nil, nil, err
	}
	items, info := pagination.BuildCursorPageInfo(items, pageSize, func(m *domain.BusinessMember) snowflake.ID { return m.ID })
	for _, item := range items {
		s.decorate(ctx, item)
	}
	return items, info, nil
}

func (s *Service) GetMember(ctx context.Context, id snowflake.ID) (*domain.BusinessMember, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}
	member, err := s.repo.FindMember(ctx, s.db, businessID, id)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, member)
	return member, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (*domain.BusinessMember, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}
	actor, _ := bizcontext.ActorFromContext(ctx)

	role := req.Role
	if role == "" {
		role = domain.RoleEmployee
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if role == domain.RoleOwner && !callerIsOwner(ctx) {
		return nil, domain.ErrOwnerOnly
	}

	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) || errors.Is(err, authdomain.ErrInvalidEmail) {
			return nil, domain.ErrInvalidEmail
		}
		return nil, err
	}

	permissions := req.Permissions
	if permissions == nil {
		permissions = map[string]bool{}
	}
	now := s.clock.Now()

	var member *domain.BusinessMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindMemberByUser(ctx, tx, businessID, user.ID)
		switch {
		case err == nil && existing.IsActive:
			return domain.ErrAlreadyMember
		case err == nil:
			member = existing
		case errors.Is(err, domain.ErrMemberNotFound):
			member = &domain.BusinessMember{
				ID:         s.genID.Generate(),
				BusinessID: businessID,
				UserID:     user.ID,
				CreatedAt:  now,
			}
		default:
			return err
		}

		if role == domain.RoleOwner {
			if err := s.demoteOwners(ctx, tx, businessID, member.ID); err != nil {
				return err
			}
		}

		member.Role = role
		member.Permissions = datatypes.NewJSONType(permissions)
		member.IsActive = true
		member.InvitedBy = &actor.UserID
		member.InvitationAcceptedAt = &now
		member.UpdatedAt = now
		return s.repo.SaveMember(ctx, tx, member)
	})
	if err != nil {
		return nil, err
	}

	member.Email = user.Email
	member.FullName = user.FullName()
	return member, nil
}

func (s *Service) UpdateMember(ctx context.Context, id snowflake.ID, req domain.UpdateMemberRequest) (*domain.BusinessMember, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}

	var member *domain.BusinessMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		member, err = s.repo.FindMember(ctx, tx, businessID, id)
		if err != nil {
			return err
		}

		role, active := member.Role, member.IsActive
		if req.Role != nil {
			if !req.Role.Valid() {
				return domain.ErrInvalidRole
			}
			role = *req.Role
		}
		if req.IsActive != nil {
			active = *req.IsActive
		}

		wasOwner := member.Role == domain.RoleOwner && member.IsActive
		becomesOwner := role == domain.RoleOwner && active
		switch {
		case wasOwner && !becomesOwner:
			return domain.ErrLastOwner
		case becomesOwner && !wasOwner:
			if !callerIsOwner(ctx) {
				return domain.ErrOwnerOnly
			}
			if err := s.demoteOwners(ctx, tx, businessID, member.ID); err != nil {
				return err
			}
		}

		member.Role = role
		member.IsActive = active
		if req.Permissions != nil {
			permissions := *req.Permissions
			if permissions == nil {
				permissions = map[string]bool{}
			}
			member.Permissions = datatypes.NewJSONType(permissions)
		}
		member.UpdatedAt = s.clock.Now()
		return s.repo.SaveMember(ctx, tx, member)
	})
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, member)
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, id snowflake.ID) error {
	active := false
	_, err := s.UpdateMember(ctx, id, domain.UpdateMemberRequest{IsActive: &active})
	return err
}

func (s *Service) ResolveMembership(ctx context.Context, businessID, userID snowflake.ID) (*bizcontext.Membership, error) {
	if _, err := s.repo.FindByID(ctx, s.db, businessID); err != nil {
		return nil, err
	}
	member, err := s.repo.FindMemberByUser(ctx, s.db, businessID, userID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, nil
	}
	return &bizcontext.Membership{
		MemberID:    member.ID,
		BusinessID:  member.BusinessID,
		Role:        string(member.Role),
		IsActive:    member.IsActive,
		Permissions: member.PermissionMap(),
	}, nil
}

func (s *Service) Recipients(ctx context.Context, businessID snowflake.ID, roles ...domain.Role) ([]snowflake.ID, error) {
	return s.repo.ListActiveMemberUserIDs(ctx, s.db, businessID, roles...)
}

// demoteOwners turns every other active owner into an admin; ownership is transferred, never shared.
func (s *Service) demoteOwners(ctx context.Context, tx *gorm.DB, businessID, keep snowflake.ID) error {
	owners, err := s.repo.ListMembers(ctx, tx, businessID,
		option.WithWhere("role = ? AND is_active = ? AND id <> ?", domain.RoleOwner, true, keep))
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, owner := range owners {
		owner.Role = domain.RoleAdmin
		owner.UpdatedAt = now
		if err := s.repo.SaveMember(ctx, tx, owner); err != nil {
			return err
		}
		s.log.Info("ownership transferred",
			zap.String("business_id", businessID.String()),
			zap.String("previous_owner_member_id", owner.ID.String()),
		)
	}
	return nil
}

func (s *Service) validateBusiness(ctx context.Context, tx *gorm.DB, b *domain.Business) error {
	if b.Name == "" {
		return domain.ErrInvalidName
	}
	if err := crud.Validate(b); err != nil {
		return err
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil || b.Timezone == "" {
		return domain.ErrInvalidTimezone
	}
	if !b.SubscriptionStatus.Valid() {
		return domain.ErrInvalidSubscription
	}
	if b.BusinessTypeID != nil {
		if _, err := s.repo.FindType(ctx, tx, *b.BusinessTypeID); err != nil {
			if errors.Is(err, domain.ErrBusinessTypeNotFound) {
				return domain.ErrInvalidBusinessType
			}
			return err
		}
	}
	return nil
}

func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "business"
	}
	candidate := base
	for n := 1; ; n++ {
		exists, err := s.repo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Service) decorate(ctx context.Context, member *domain.BusinessMember) {
	user, err := s.users.GetUser(ctx, member.UserID)
	if err != nil {
		return
	}
	member.Email = user.Email
	member.FullName = user.FullName()
}

func callerIsOwner(ctx context.Context) bool {
	if actor, ok := bizcontext.ActorFromContext(ctx); ok && actor.IsStaff {
		return true
	}
	m, ok := bizcontext.MembershipFromContext(ctx)
	return ok && m.IsActive && m.Role == string(domain.RoleOwner)
}

func requireStaff(ctx context.Context) error {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}
	if !actor.IsStaff {
		return domain.ErrStaffOnly
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
