package domain

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
)

type Service interface {
	ListTypes(ctx context.Context) ([]*BusinessType, error)
	GetType(ctx context.Context, id snowflake.ID) (*BusinessType, error)
	CreateType(ctx context.Context, t *BusinessType) (*BusinessType, error)
	UpdateType(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*BusinessType, error)

	Create(ctx context.Context, req CreateBusinessRequest) (*Business, error)
	List(ctx context.Context, page pagination.Pagination) ([]*Business, *pagination.PageInfo, error)
	// Get, Update and Delete act on the business carried by ctx.
	Get(ctx context.Context) (*Business, error)
	Update(ctx context.Context, patch map[string]json.RawMessage) (*Business, error)
	Delete(ctx context.Context) error

	ListMembers(ctx context.Context, page pagination.Pagination, filter MemberFilter) ([]*BusinessMember, *pagination.PageInfo, error)
	GetMember(ctx context.Context, id snowflake.ID) (*BusinessMember, error)
	AddMember(ctx context.Context, req AddMemberRequest) (*BusinessMember, error)
	UpdateMember(ctx context.Context, id snowflake.ID, req UpdateMemberRequest) (*BusinessMember, error)
	RemoveMember(ctx context.Context, id snowflake.ID) error

	// ResolveMembership loads the caller's active membership in businessID.
	// It returns nil without error when the user is not a member.
	ResolveMembership(ctx context.Context, businessID, userID snowflake.ID) (*bizcontext.Membership, error)
	// Recipients lists the user ids of active members with the given roles.
	Recipients(ctx context.Context, businessID snowflake.ID, roles ...Role) ([]snowflake.ID, error)
}

type CreateBusinessRequest struct {
	Name           string        `json:"name"`
	BusinessTypeID *snowflake.ID `json:"business_type_id"`
	Description    string        `json:"description"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
	Address        string        `json:"address"`
	City           string        `json:"city"`
	State          string        `json:"state"`
	Country        string        `json:"country"`
	PostalCode     string        `json:"postal_code"`
	TaxID          string        `json:"tax_id"`
	Currency       string        `json:"currency"`
	Timezone       string        `json:"timezone"`
	Locale         string        `json:"locale"`
	LogoURL        string        `json:"logo_url"`
}

type MemberFilter struct {
	Role     Role
	IsActive *bool
}

type AddMemberRequest struct {
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

type UpdateMemberRequest struct {
	Role        *Role            `json:"role"`
	Permissions *map[string]bool `json:"permissions"`
	IsActive    *bool            `json:"is_active"`
}
