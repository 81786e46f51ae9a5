package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
)

// Customer is a buyer known to one business.
type Customer struct {
	db.Model
	UserID          *snowflake.ID   `gorm:"index" json:"user_id"`
	CustomerNumber  string          `gorm:"type:text;not null;index" json:"customer_number"`
	FirstName       string          `gorm:"type:text;not null" json:"first_name" validate:"required,max=100"`
	LastName        string          `gorm:"type:text" json:"last_name" validate:"max=100"`
	Email           string          `gorm:"type:text;index" json:"email" validate:"omitempty,email"`
	Phone           string          `gorm:"type:text" json:"phone" validate:"max=20"`
	DocumentType    string          `gorm:"type:text" json:"document_type" validate:"max=20"`
	DocumentNumber  string          `gorm:"type:text" json:"document_number" validate:"max=50"`
	BirthDate       *db.Date        `json:"birth_date"`
	Address         string          `gorm:"type:text" json:"address"`
	City            string          `gorm:"type:text" json:"city"`
	State           string          `gorm:"type:text" json:"state"`
	PostalCode      string          `gorm:"type:text" json:"postal_code" validate:"max=20"`
	Country         string          `gorm:"type:text" json:"country"`
	Notes           string          `gorm:"type:text" json:"notes"`
	LoyaltyPoints   int64           `gorm:"not null;default:0" json:"loyalty_points"`
	TotalSpent      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_spent"`
	TotalOrders     int64           `gorm:"not null;default:0" json:"total_orders"`
	IsVIP           bool            `gorm:"column:is_vip;not null;default:false" json:"is_vip"`
	IsBlocked       bool            `gorm:"not null;default:false" json:"is_blocked"`
	PreferEmail     bool            `gorm:"not null" json:"prefer_email"`
	PreferSMS       bool            `gorm:"column:prefer_sms;not null" json:"prefer_sms"`
	FirstPurchaseAt *time.Time      `gorm:"column:first_purchase_date" json:"first_purchase_date"`
	LastPurchaseAt  *time.Time      `gorm:"column:last_purchase_date" json:"last_purchase_date"`
	db.SoftDelete
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ReadOnlyFields are maintained by the loyalty and purchase operations only.
var ReadOnlyFields = []string{
	"customer_number", "loyalty_points", "total_spent", "total_orders",
	"first_purchase_date", "last_purchase_date",
}
