package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListTypes(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*domain.BusinessType, error) {
	var items []*domain.BusinessType
	stmt := db.WithContext(ctx).Model(&domain.BusinessType{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	err := stmt.Order("name ASC").Find(&items).Error
	return items, err
}

func (r *repo) FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BusinessType, error) {
	var item domain.BusinessType
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBusinessTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindTypeBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.BusinessType, error) {
	var item domain.BusinessType
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBusinessTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) SaveType(ctx context.Context, db *gorm.DB, t *domain.BusinessType) error {
	return db.WithContext(ctx).Save(t).Error
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *domain.Business) error {
	return db.WithContext(ctx).Create(b).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, b *domain.Business) error {
	return db.WithContext(ctx).Save(b).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Business, error) {
	var item domain.Business
	err := db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, memberOf snowflake.ID, opts ...option.QueryOption) ([]*domain.Business, error) {
	stmt := db.WithContext(ctx).Model(&domain.Business{}).Where("businesses.is_deleted = ?", false)
	if memberOf != 0 {
		stmt = stmt.Where(
			"EXISTS (SELECT 1 FROM business_members m WHERE m.business_id = businesses.id AND m.user_id = ? AND m.is_active = ?)",
			memberOf, true,
		)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var items []*domain.Business
	err := stmt.Find(&items).Error
	return items, err
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Business{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *domain.BusinessMember) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) SaveMember(ctx context.Context, db *gorm.DB, m *domain.BusinessMember) error {
	return db.WithContext(ctx).Save(m).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*domain.BusinessMember, error) {
	var item domain.BusinessMember
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindMemberByUser(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (*domain.BusinessMember, error) {
	var item domain.BusinessMember
	err := db.WithContext(ctx).Where("business_id = ? AND user_id = ?", businessID, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, opts ...option.QueryOption) ([]*domain.BusinessMember, error) {
	stmt := db.WithContext(ctx).Model(&domain.BusinessMember{}).Where("business_id = ?", businessID)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var items []*domain.BusinessMember
	err := stmt.Find(&items).Error
	return items, err
}

func (r *repo) ListActiveMemberUserIDs(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roles ...domain.Role) ([]snowflake.ID, error) {
	stmt := db.WithContext(ctx).Model(&domain.BusinessMember{}).
		Where("business_id = ? AND is_active = ?", businessID, true)
	if len(roles) > 0 {
		stmt = stmt.Where("role IN ?", roles)
	}
	var ids []snowflake.ID
	err := stmt.Order("id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repo) CountActiveOwners(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.BusinessMember{}).
		Where("business_id = ? AND role = ? AND is_active = ?", businessID, domain.RoleOwner, true).
		Count(&count).Error
	return count, err
}
