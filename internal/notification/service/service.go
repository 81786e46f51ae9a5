package service

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/notification/live"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Hub   *live.Hub `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	hub   *live.Hub

	notifications *crud.Service[domain.Notification, *domain.Notification]
}

func New(p Params) domain.Service {
	s := &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		hub:   p.Hub,
	}
	s.notifications = crud.New[domain.Notification](p.DB, repository.ProvideStore[domain.Notification](p.DB), p.GenID, p.Clock, crud.Config[domain.Notification]{
		Name:     "notification",
		ReadOnly: domain.NotificationReadOnly,
		Defaults: func(n *domain.Notification) {
			n.Type = domain.TypeSystem
			n.Channel = domain.ChannelInApp
			n.Priority = domain.PriorityNormal
		},
		BeforeCreate: func(ctx context.Context, tx *gorm.DB, n *domain.Notification) error {
			n.IsRead = false
			n.ReadAt = nil
			return nil
		},
		Validate: s.checkNotification,
	})
	return s
}

func (s *Service) Notifications() crud.Store[domain.Notification] {
	return &ownedStore{svc: s}
}

func (s *Service) checkNotification(ctx context.Context, tx *gorm.DB, n, old *domain.Notification) error {
	if old != nil {
		// Only the read flag changes after delivery.
		updatedAt, read := n.UpdatedAt, n.IsRead
		*n = *old
		n.UpdatedAt = updatedAt
		n.IsRead = read
		if read && n.ReadAt == nil {
			n.ReadAt = &updatedAt
		}
		if !read {
			n.ReadAt = nil
		}
		return nil
	}

	if !n.Type.Valid() {
		return domain.ErrInvalidType
	}
	if !n.Channel.Valid() {
		return domain.ErrInvalidChannel
	}
	if !n.Priority.Valid() {
		return domain.ErrInvalidPriority
	}
	ok, err := s.repo.IsMember(ctx, tx, n.BusinessID, n.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidRecipient
	}
	return nil
}

// ownedStore hides other users' notifications from non-staff callers.
type ownedStore struct {
	svc *Service
}

func (o *ownedStore) New() *domain.Notification { return o.svc.notifications.New() }

func (o *ownedStore) Build(body map[string]json.RawMessage) (*domain.Notification, error) {
	return o.svc.notifications.Build(body)
}

func (o *ownedStore) List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*domain.Notification, *pagination.PageInfo, error) {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrUnauthenticated
	}
	if !actor.IsStaff {
		opts = append(opts, option.WithWhere("user_id = ?", actor.UserID))
	}
	return o.svc.notifications.List(ctx, page, opts...)
}

func (o *ownedStore) Get(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	return o.svc.owned(ctx, id)
}

func (o *ownedStore) Create(ctx context.Context, item *domain.Notification) (*domain.Notification, error) {
	if item != nil && item.Channel == domain.ChannelInApp {
		now := o.svc.clock.Now()
		item.SentAt = &now
	}
	created, err := o.svc.notifications.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	o.svc.Publish(created)
	return created, nil
}

func (o *ownedStore) Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*domain.Notification, error) {
	if _, err := o.svc.owned(ctx, id); err != nil {
		return nil, err
	}
	return o.svc.notifications.Update(ctx, id, patch)
}

func (o *ownedStore) Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*domain.Notification, error) {
	if _, err := o.svc.owned(ctx, id); err != nil {
		return nil, err
	}
	return o.svc.notifications.Replace(ctx, id, body)
}

func (o *ownedStore) Delete(ctx context.Context, id snowflake.ID) error {
	if _, err := o.svc.owned(ctx, id); err != nil {
		return err
	}
	return o.svc.notifications.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	n, err := s.notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff && n.UserID != actor.UserID {
		return nil, domain.ErrNotFound
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	return s.notifications.Update(ctx, id, map[string]json.RawMessage{"is_read": json.RawMessage("true")})
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	businessID, userID, err := s.caller(ctx)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, s.db, businessID, userID, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Debug("notifications marked read",
		zap.String("business_id", businessID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	businessID, userID, err := s.caller(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, s.db, businessID, userID)
}

func (s *Service) GetPreference(ctx context.Context) (*domain.NotificationPreference, error) {
	businessID, userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.preference(ctx, s.db, businessID, userID)
}

func (s *Service) UpsertPreference(ctx context.Context, patch map[string]json.RawMessage) (*domain.NotificationPreference, error) {
	businessID, userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var pref *domain.NotificationPreference
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.preference(ctx, tx, businessID, userID)
		if err != nil {
			return err
		}
		if err := crud.Merge(current, patch, domain.PreferenceReadOnly...); err != nil {
			return err
		}
		if err := crud.Validate(current); err != nil {
			return err
		}
		for _, t := range current.MutedTypes {
			if !t.Valid() {
				return domain.ErrInvalidMutedTypes
			}
		}

		now := s.clock.Now()
		if current.ID == 0 {
			current.ID = s.genID.Generate()
			current.CreatedAt = now
		}
		current.UpdatedAt = now
		if err := s.repo.SavePreference(ctx, tx, current); err != nil {
			return err
		}
		pref = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *Service) preference(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (*domain.NotificationPreference, error) {
	pref, err := s.repo.FindPreference(ctx, db, businessID, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return domain.DefaultPreference(businessID, userID), nil
	}
	return pref, nil
}

func (s *Service) caller(ctx context.Context) (snowflake.ID, snowflake.ID, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return 0, 0, crud.ErrInvalidBusiness
	}
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return 0, 0, domain.ErrUnauthenticated
	}
	return businessID, actor.UserID, nil
}

func (s *Service) Notify(ctx context.Context, tx *gorm.DB, req domain.NotifyRequest) ([]*domain.Notification, error) {
	if req.BusinessID == 0 {
		return nil, crud.ErrInvalidBusiness
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelInApp
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}
	if req.Type == "" {
		req.Type = domain.TypeSystem
	}

	recipients, err := s.recipients(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created := make([]*domain.Notification, 0, len(recipients))
	for _, userID := range recipients {
		pref, err := s.preference(ctx, tx, req.BusinessID, userID)
		if err != nil {
			return nil, err
		}
		if !pref.Accepts(req.Type, req.Channel) {
			continue
		}

		n := &domain.Notification{
			UserID:   userID,
			Type:     req.Type,
			Channel:  req.Channel,
			Priority: req.Priority,
			Title:    req.Title,
			Message:  req.Message,
			URL:      req.URL,
			Metadata: req.Metadata,
		}
		quiet := pref.Quiet(now) && req.Priority != domain.PriorityHigh
		if req.Channel == domain.ChannelInApp && !quiet {
			n.SentAt = &now
		}
		n.ID = s.genID.Generate()
		n.BusinessID = req.BusinessID
		n.CreatedAt = now
		n.UpdatedAt = now
		if err := s.notifications.CreateTx(ctx, tx, n); err != nil {
			return nil, err
		}
		if quiet {
			// Kept in the inbox, not pushed.
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

func (s *Service) recipients(ctx context.Context, tx *gorm.DB, req domain.NotifyRequest) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]struct{}, len(req.Recipients))
	for _, id := range req.Recipients {
		if id == 0 {
			continue
		}
		// Users who left the business are skipped, not an error.
		member, err := s.repo.IsMember(ctx, tx, req.BusinessID, id)
		if err != nil {
			return nil, err
		}
		if member {
			seen[id] = struct{}{}
		}
	}
	if len(req.Roles) > 0 {
		ids, err := s.repo.MemberUserIDs(ctx, tx, req.BusinessID, req.Roles...)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	out := make([]snowflake.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Service) Publish(items ...*domain.Notification) {
	for _, n := range items {
		if n == nil || n.Channel != domain.ChannelInApp {
			continue
		}
		s.hub.Publish(n.UserID, live.Event{Kind: "notification", Payload: n})
	}
}
