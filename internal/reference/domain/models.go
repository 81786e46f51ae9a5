package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Document prefixes for generated reference numbers.
const (
	DocOrder       = "ORD"
	DocRefund      = "REF"
	DocTransaction = "TXN"
	DocInvoice     = "INV"
	DocExpense     = "EXP"
	DocPayment     = "PAY"
	DocReservation = "RES"
	DocTransfer    = "TRF"
	DocAdjustment  = "ADJ"
	DocCustomer    = "CUS"
)

// Sequence is one counter per business, document type and calendar day.
// Customer numbers are not day-scoped and use Day 0.
type Sequence struct {
	BusinessID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"business_id"`
	DocType    string       `gorm:"primaryKey;size:8" json:"doc_type"`
	Day        int          `gorm:"primaryKey;autoIncrement:false" json:"day"`
	Value      int64        `gorm:"not null" json:"value"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Sequence) TableName() string { return "reference_sequences" }

type Repository interface {
	Increment(ctx context.Context, db *gorm.DB, businessID snowflake.ID, docType string, day int) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, seq *Sequence) error
	Current(ctx context.Context, db *gorm.DB, businessID snowflake.ID, docType string, day int) (int64, error)
}

// Generator allocates human-readable document numbers inside the caller's transaction.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, docType string, at time.Time) (string, error)
	NextCustomerNumber(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, businessSlug string) (string, error)
}
