// Package domain contains persistence models for the business service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

// BusinessType is the staff-managed catalog of verticals and the features they enable.
type BusinessType struct {
	ID              snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string       `gorm:"type:text;not null" json:"name" validate:"required,max=100"`
	Slug            string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Description     string       `gorm:"type:text" json:"description"`
	Icon            string       `gorm:"type:text" json:"icon"`
	HasInventory    bool         `gorm:"not null" json:"has_inventory"`
	HasReservations bool         `gorm:"not null;default:false" json:"has_reservations"`
	HasServices     bool         `gorm:"not null;default:false" json:"has_services"`
	HasVariants     bool         `gorm:"not null;default:false" json:"has_variants"`
	IsActive        bool         `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (BusinessType) TableName() string { return "business_types" }

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionPastDue, SubscriptionCancelled:
		return true
	}
	return false
}

// Business is the tenant every other record hangs off.
type Business struct {
	ID                 snowflake.ID       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name               string             `gorm:"type:text;not null" json:"name" validate:"required,max=200"`
	Slug               string             `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	BusinessTypeID     *snowflake.ID      `gorm:"index" json:"business_type_id"`
	Description        string             `gorm:"type:text" json:"description"`
	Email              string             `gorm:"type:text" json:"email" validate:"omitempty,email"`
	Phone              string             `gorm:"type:text" json:"phone" validate:"max=20"`
	Website            string             `gorm:"type:text" json:"website" validate:"omitempty,url"`
	Address            string             `gorm:"type:text" json:"address"`
	City               string             `gorm:"type:text" json:"city"`
	State              string             `gorm:"type:text" json:"state"`
	Country            string             `gorm:"type:text;not null;default:'Colombia'" json:"country"`
	PostalCode         string             `gorm:"type:text" json:"postal_code" validate:"max=20"`
	TaxID              string             `gorm:"type:text" json:"tax_id" validate:"max=50"`
	Currency           string             `gorm:"type:text;not null;default:'COP'" json:"currency" validate:"omitempty,len=3,uppercase"`
	Timezone           string             `gorm:"type:text;not null;default:'America/Bogota'" json:"timezone"`
	Locale             string             `gorm:"type:text;not null;default:'es-CO'" json:"locale"`
	LogoURL            string             `gorm:"type:text" json:"logo_url" validate:"omitempty,url"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:text;not null;default:'trial'" json:"subscription_status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at"`
	IsActive           bool               `gorm:"not null" json:"is_active"`
	CreatedBy          snowflake.ID       `gorm:"not null" json:"created_by"`
	db.SoftDelete
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleCashier  Role = "cashier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee, RoleCashier:
		return true
	}
	return false
}

// BusinessMember links a user to a business with a role. Rows are never
// removed; deactivation keeps the audit trail.
type BusinessMember struct {
	ID                   snowflake.ID                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BusinessID           snowflake.ID                        `gorm:"not null;index;uniqueIndex:ux_business_members_user,priority:1" json:"business_id"`
	UserID               snowflake.ID                        `gorm:"not null;index;uniqueIndex:ux_business_members_user,priority:2" json:"user_id"`
	Role                 Role                                `gorm:"type:text;not null" json:"role"`
	Permissions          datatypes.JSONType[map[string]bool] `json:"permissions"`
	IsActive             bool                                `gorm:"not null" json:"is_active"`
	InvitedBy            *snowflake.ID                       `json:"invited_by"`
	InvitationAcceptedAt *time.Time                          `json:"invitation_accepted_at"`
	CreatedAt            time.Time                           `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time                           `gorm:"not null" json:"updated_at"`

	Email    string `gorm:"-" json:"email,omitempty"`
	FullName string `gorm:"-" json:"full_name,omitempty"`
}

func (BusinessMember) TableName() string { return "business_members" }

func (m *BusinessMember) PermissionMap() map[string]bool {
	data := m.Permissions.Data()
	if data == nil {
		return map[string]bool{}
	}
	return data
}
