package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	ListTypes(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*BusinessType, error)
	FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BusinessType, error)
	FindTypeBySlug(ctx context.Context, db *gorm.DB, slug string) (*BusinessType, error)
	SaveType(ctx context.Context, db *gorm.DB, t *BusinessType) error

	Insert(ctx context.Context, db *gorm.DB, b *Business) error
	Save(ctx context.Context, db *gorm.DB, b *Business) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Business, error)
	// List returns live businesses; memberOf restricts to those with an active membership for that user.
	List(ctx context.Context, db *gorm.DB, memberOf snowflake.ID, opts ...option.QueryOption) ([]*Business, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)

	InsertMember(ctx context.Context, db *gorm.DB, m *BusinessMember) error
	SaveMember(ctx context.Context, db *gorm.DB, m *BusinessMember) error
	FindMember(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*BusinessMember, error)
	FindMemberByUser(ctx context.Context, db *gorm.DB, businessID, userID snowflake.ID) (*BusinessMember, error)
	ListMembers(ctx context.Context, db *gorm.DB, businessID snowflake.ID, opts ...option.QueryOption) ([]*BusinessMember, error)
	// ListActiveMemberUserIDs returns user ids of active members holding any of roles.
	ListActiveMemberUserIDs(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roles ...Role) ([]snowflake.ID, error)
	CountActiveOwners(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error)
}
