package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAuthorized, StatusCaptured, StatusFailed, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// Open statuses can still be captured, failed or cancelled.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAuthorized
}

type Provider string

const (
	ProviderManual      Provider = "manual"
	ProviderStripe      Provider = "stripe"
	ProviderPayPal      Provider = "paypal"
	ProviderMercadoPago Provider = "mercadopago"
	ProviderOther       Provider = "other"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderManual, ProviderStripe, ProviderPayPal, ProviderMercadoPago, ProviderOther:
		return true
	}
	return false
}

type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodOnline   Method = "online"
	MethodOther    Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodOnline, MethodOther:
		return true
	}
	return false
}

type Payment struct {
	db.Model
	PaymentNumber     string            `gorm:"type:text;not null;index" json:"payment_number"`
	InvoiceID         *snowflake.ID     `gorm:"index" json:"invoice_id"`
	OrderID           *snowflake.ID     `gorm:"index" json:"order_id"`
	CustomerID        *snowflake.ID     `gorm:"index" json:"customer_id"`
	Amount            decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency          string            `gorm:"type:text;not null" json:"currency" validate:"required,len=3"`
	Provider          Provider          `gorm:"type:text;not null" json:"provider"`
	PaymentMethod     Method            `gorm:"type:text;not null" json:"payment_method"`
	Status            Status            `gorm:"type:text;not null;index" json:"status"`
	ProviderReference string            `gorm:"type:text;index" json:"provider_reference" validate:"max=255"`
	RefundedAmount    decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"refunded_amount"`
	CapturedAt        *time.Time        `json:"captured_at"`
	RefundedAt        *time.Time        `json:"refunded_at"`
	FailureReason     string            `gorm:"type:text" json:"failure_reason"`
	Description       string            `gorm:"type:text" json:"description"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	CreatedBy         *snowflake.ID     `json:"created_by"`
	db.SoftDelete
}

func (Payment) TableName() string { return "payments" }

// Refundable is what is left to refund of a captured payment.
func (p *Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

var PaymentReadOnly = []string{"payment_number", "refunded_amount", "captured_at", "refunded_at", "failure_reason", "created_by"}

// WebhookEvent is a provider notification as received. Provider and
// external id identify it; a replay of the same pair is a no-op.
type WebhookEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BusinessID  *snowflake.ID  `gorm:"index" json:"business_id"`
	PaymentID   *snowflake.ID  `gorm:"index" json:"payment_id"`
	Provider    string         `gorm:"type:text;not null;uniqueIndex:idx_payment_webhook_events_external,priority:1" json:"provider"`
	ExternalID  string         `gorm:"type:text;not null;uniqueIndex:idx_payment_webhook_events_external,priority:2" json:"external_id"`
	EventType   string         `gorm:"type:text;not null" json:"event_type"`
	Payload     datatypes.JSON `json:"payload"`
	Processed   bool           `gorm:"not null" json:"processed"`
	ProcessedAt *time.Time     `json:"processed_at"`
	Error       string         `gorm:"type:text" json:"error"`
	ReceivedAt  time.Time      `gorm:"not null" json:"received_at"`
}

func (WebhookEvent) TableName() string { return "payment_webhook_events" }

const (
	EventCaptured = "payment.captured"
	EventFailed   = "payment.failed"
	EventRefunded = "payment.refunded"
	// EventCancelled is only raised by staff; gateways never send it.
	EventCancelled = "payment.cancelled"
)

// Event is the provider-neutral form adapters parse webhooks into.
type Event struct {
	Provider          string
	ExternalID        string
	Type              string
	ProviderReference string
	// Amount is set for refunds; zero means the full remaining amount.
	Amount     decimal.Decimal
	Reason     string
	OccurredAt time.Time
}
