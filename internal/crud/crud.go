// Package crud implements the list/get/create/update/delete contract shared
// by every business-owned entity on top of the generic repository.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidBusiness = apperror.Validation("business", "invalid_business", "business context is required")
	ErrInvalidID       = apperror.Validation("id", "invalid_id", "invalid id")
	ErrImmutable       = apperror.Validation("id", "immutable", "this record cannot be changed")
)

// Entity is satisfied by pointers to structs embedding db.Model.
type Entity interface {
	Base() *db.Model
}

type softDeletable interface {
	MarkDeleted(at time.Time)
}

// Store is the tenant-scoped CRUD surface the HTTP layer talks to.
type Store[T any] interface {
	// New returns a record pre-filled with defaults, ready to decode a create body into.
	New() *T
	// Build decodes a create body onto New(), dropping read-only keys.
	Build(body map[string]json.RawMessage) (*T, error)
	List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*T, *pagination.PageInfo, error)
	Get(ctx context.Context, id snowflake.ID) (*T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*T, error)
	// Replace overwrites every client-writable field; keys missing from body
	// fall back to New() defaults.
	Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*T, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

// Hook runs inside the write transaction.
type Hook[T any] func(ctx context.Context, tx *gorm.DB, item *T) error

// Config customizes one entity. Every hook is optional.
type Config[T any] struct {
	// Name is used in not-found codes, e.g. "order" -> "order_not_found".
	Name string
	// ReadOnly lists JSON keys that clients may not patch.
	ReadOnly []string
	// AppendOnly rejects update and delete.
	AppendOnly bool

	// Defaults fills a fresh record before the request body is decoded onto it.
	Defaults func(item *T)

	BeforeCreate Hook[T]
	// Validate runs on create (old == nil) and on update after the patch is merged.
	Validate     func(ctx context.Context, tx *gorm.DB, item, old *T) error
	AfterSave    Hook[T]
	BeforeDelete Hook[T]
	AfterDelete  Hook[T]
	// Present fills computed fields before records leave the service.
	Present func(ctx context.Context, db *gorm.DB, items []*T) error
}

type Service[T any, P interface {
	*T
	Entity
}] struct {
	db    *gorm.DB
	repo  repository.Repository[T]
	genID *snowflake.Node
	clock clock.Clock
	cfg   Config[T]
	soft  bool
}

func New[T any, P interface {
	*T
	Entity
}](conn *gorm.DB, repo repository.Repository[T], genID *snowflake.Node, clk clock.Clock, cfg Config[T]) *Service[T, P] {
	_, soft := any(P(new(T))).(softDeletable)
	if cfg.Name == "" {
		cfg.Name = "record"
	}
	return &Service[T, P]{db: conn, repo: repo, genID: genID, clock: clk, cfg: cfg, soft: soft}
}

func (s *Service[T, P]) New() *T {
	item := new(T)
	if s.cfg.Defaults != nil {
		s.cfg.Defaults(item)
	}
	return item
}

func (s *Service[T, P]) Build(body map[string]json.RawMessage) (*T, error) {
	item := s.New()
	if err := s.merge(item, body); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service[T, P]) NotFound() error {
	return apperror.NotFound(s.cfg.Name + "_not_found")
}

func (s *Service[T, P]) List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*T, *pagination.PageInfo, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, nil, ErrInvalidBusiness
	}
	afterID, pageSize, err := page.Normalize()
	if err != nil {
		return nil, nil, apperror.Validation("page_token", "invalid_page_token", "invalid page token")
	}

	query := s.scoped(businessID, 0)
	all := append(s.baseOptions(), opts...)
	all = append(all, option.WithCursor(afterID, pageSize))

	items, err := s.repo.Find(ctx, query, all...)
	if err != nil {
		return nil, nil, err
	}
	items, info := pagination.BuildCursorPageInfo(items, pageSize, func(item *T) snowflake.ID {
		return P(item).Base().ID
	})
	if err := s.present(ctx, s.db, items...); err != nil {
		return nil, nil, err
	}
	return items, info, nil
}

func (s *Service[T, P]) Get(ctx context.Context, id snowflake.ID) (*T, error) {
	item, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.present(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetTx loads a record inside tx, for services composing several writes.
func (s *Service[T, P]) GetTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*T, error) {
	return s.load(ctx, s.repo.WithTrx(tx), id)
}

func (s *Service[T, P]) Create(ctx context.Context, item *T) (*T, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidBusiness
	}
	if item == nil {
		return nil, apperror.Validation("request", "invalid_request", "invalid request")
	}

	now := s.clock.Now()
	base := P(item).Base()
	base.ID = s.genID.Generate()
	base.BusinessID = businessID
	base.CreatedAt = now
	base.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreateTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}
	if err := s.present(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateTx runs the create pipeline inside tx. The caller owns ids and scope
// when it bypasses Create.
func (s *Service[T, P]) CreateTx(ctx context.Context, tx *gorm.DB, item *T) error {
	base := P(item).Base()
	if base.ID == 0 {
		base.ID = s.genID.Generate()
	}
	if base.BusinessID == 0 {
		businessID, ok := bizcontext.BusinessIDFromContext(ctx)
		if !ok {
			return ErrInvalidBusiness
		}
		base.BusinessID = businessID
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = s.clock.Now()
		base.UpdatedAt = base.CreatedAt
	}

	if s.cfg.BeforeCreate != nil {
		if err := s.cfg.BeforeCreate(ctx, tx, item); err != nil {
			return err
		}
	}
	if err := s.validate(ctx, tx, item, nil); err != nil {
		return err
	}
	if err := s.repo.WithTrx(tx).Create(ctx, item); err != nil {
		return err
	}
	if s.cfg.AfterSave != nil {
		return s.cfg.AfterSave(ctx, tx, item)
	}
	return nil
}

func (s *Service[T, P]) Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*T, error) {
	return s.rewrite(ctx, id, func(existing *T) (*T, error) {
		if err := s.merge(existing, patch); err != nil {
			return nil, err
		}
		return existing, nil
	})
}

func (s *Service[T, P]) Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*T, error) {
	return s.rewrite(ctx, id, func(existing *T) (*T, error) {
		fresh := s.New()
		if err := s.merge(fresh, body); err != nil {
			return nil, err
		}
		if err := s.carryReadOnly(fresh, existing); err != nil {
			return nil, err
		}
		return fresh, nil
	})
}

// rewrite loads id, lets apply produce the new state and saves it with the
// stored header and soft-delete flags preserved.
func (s *Service[T, P]) rewrite(ctx context.Context, id snowflake.ID, apply func(existing *T) (*T, error)) (*T, error) {
	if s.cfg.AppendOnly {
		return nil, ErrImmutable
	}

	var item *T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.load(ctx, s.repo.WithTrx(tx), id)
		if err != nil {
			return err
		}
		old := *existing

		next, err := apply(existing)
		if err != nil {
			return err
		}
		*P(next).Base() = *P(&old).Base()
		P(next).Base().UpdatedAt = s.clock.Now()

		if err := s.SaveTx(ctx, tx, next, &old); err != nil {
			return err
		}
		item = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.present(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SaveTx validates and persists a modified record inside tx.
func (s *Service[T, P]) SaveTx(ctx context.Context, tx *gorm.DB, item, old *T) error {
	if err := s.validate(ctx, tx, item, old); err != nil {
		return err
	}
	if err := s.repo.WithTrx(tx).Save(ctx, item); err != nil {
		return err
	}
	if s.cfg.AfterSave != nil {
		return s.cfg.AfterSave(ctx, tx, item)
	}
	return nil
}

func (s *Service[T, P]) Delete(ctx context.Context, id snowflake.ID) error {
	if s.cfg.AppendOnly {
		return ErrImmutable
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		item, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if s.cfg.BeforeDelete != nil {
			if err := s.cfg.BeforeDelete(ctx, tx, item); err != nil {
				return err
			}
		}

		if s.soft {
			now := s.clock.Now()
			any(item).(softDeletable).MarkDeleted(now)
			P(item).Base().UpdatedAt = now
			err = repo.Save(ctx, item)
		} else {
			err = repo.Delete(ctx, int64(id))
		}
		if err != nil {
			return err
		}
		if s.cfg.AfterDelete != nil {
			return s.cfg.AfterDelete(ctx, tx, item)
		}
		return nil
	})
}

func (s *Service[T, P]) load(ctx context.Context, repo repository.Repository[T], id snowflake.ID) (*T, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidBusiness
	}
	if id == 0 {
		return nil, ErrInvalidID
	}
	item, err := repo.FindOne(ctx, s.scoped(businessID, id), s.baseOptions()...)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, s.NotFound()
	}
	return item, nil
}

func (s *Service[T, P]) scoped(businessID, id snowflake.ID) *T {
	query := new(T)
	base := P(query).Base()
	base.BusinessID = businessID
	base.ID = id
	return query
}

func (s *Service[T, P]) baseOptions() []option.QueryOption {
	if s.soft {
		return []option.QueryOption{option.WithNotDeleted()}
	}
	return nil
}

func (s *Service[T, P]) validate(ctx context.Context, tx *gorm.DB, item, old *T) error {
	if err := Validate(item); err != nil {
		return err
	}
	if s.cfg.Validate != nil {
		return s.cfg.Validate(ctx, tx, item, old)
	}
	return nil
}

func (s *Service[T, P]) present(ctx context.Context, conn *gorm.DB, items ...*T) error {
	if s.cfg.Present == nil || len(items) == 0 {
		return nil
	}
	return s.cfg.Present(ctx, conn.WithContext(ctx), items)
}

var protectedKeys = []string{"id", "business_id", "created_at", "updated_at"}

// carryReadOnly copies the read-only keys of from onto to.
func (s *Service[T, P]) carryReadOnly(to, from *T) error {
	if len(s.cfg.ReadOnly) == 0 {
		return nil
	}
	raw, err := json.Marshal(from)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	kept := make(map[string]json.RawMessage, len(s.cfg.ReadOnly))
	for _, key := range s.cfg.ReadOnly {
		if value, ok := fields[key]; ok {
			kept[key] = value
		}
	}
	raw, err = json.Marshal(kept)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, to)
}

func (s *Service[T, P]) merge(item *T, patch map[string]json.RawMessage) error {
	return Merge(item, patch, s.cfg.ReadOnly...)
}

// Merge applies a JSON merge patch onto target, skipping server-owned keys and readOnly.
func Merge(target any, patch map[string]json.RawMessage, readOnly ...string) error {
	if len(patch) == 0 {
		return nil
	}
	clean := make(map[string]json.RawMessage, len(patch))
	for key, value := range patch {
		clean[key] = value
	}
	for _, key := range protectedKeys {
		delete(clean, key)
	}
	for _, key := range readOnly {
		delete(clean, key)
	}

	raw, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return DecodeError(err)
	}
	return nil
}

// DecodeError turns a JSON decoding failure into a field-level validation error.
func DecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperror.Validation(typeErr.Field, "invalid_"+lastSegment(typeErr.Field), "invalid value")
	}
	return apperror.Validation("request", "invalid_request", "invalid request body")
}

func lastSegment(field string) string {
	if idx := strings.LastIndex(field, "."); idx >= 0 {
		return field[idx+1:]
	}
	return field
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks `validate` struct tags.
func Validate(item any) error {
	return validate.Struct(item)
}
