package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/money"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// forward is the only non-exit move out of each working status.
var forward = map[Status]Status{
	StatusDraft:      StatusPending,
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusReady,
	StatusReady:      StatusCompleted,
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusConfirmed, StatusProcessing,
		StatusReady, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether an order may move from s to next.
// Cancelled and refunded are reachable from every working status; completed
// orders can still be fully refunded.
func (s Status) CanTransition(next Status) bool {
	if s == StatusCompleted {
		return next == StatusRefunded
	}
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled || next == StatusRefunded {
		return true
	}
	return forward[s] == next
}

// Editable reports whether items may still change.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusPending
}

type OrderType string

const (
	TypeInStore  OrderType = "in_store"
	TypeOnline   OrderType = "online"
	TypePhone    OrderType = "phone"
	TypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case TypeInStore, TypeOnline, TypePhone, TypeDelivery:
		return true
	}
	return false
}

type Order struct {
	db.Model
	OrderNumber        string          `gorm:"type:text;not null;index" json:"order_number"`
	CustomerID         *snowflake.ID   `gorm:"index" json:"customer_id"`
	CustomerName       string          `gorm:"type:text" json:"customer_name" validate:"max=200"`
	CustomerEmail      string          `gorm:"type:text" json:"customer_email" validate:"omitempty,email"`
	CustomerPhone      string          `gorm:"type:text" json:"customer_phone" validate:"max=20"`
	OrderType          OrderType       `gorm:"type:text;not null" json:"order_type"`
	Status             Status          `gorm:"type:text;not null;index" json:"status"`
	WarehouseID        *snowflake.ID   `json:"warehouse_id"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"tax_amount"`
	ShippingCost       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	Total              decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	DeliveryAddress    string          `gorm:"type:text" json:"delivery_address"`
	DeliveryCity       string          `gorm:"type:text" json:"delivery_city"`
	DeliveryState      string          `gorm:"type:text" json:"delivery_state"`
	DeliveryPostalCode string          `gorm:"type:text" json:"delivery_postal_code" validate:"max=20"`
	DeliveryDate       *time.Time      `json:"delivery_date"`
	OrderDate          time.Time       `gorm:"not null;index" json:"order_date"`
	ConfirmedAt        *time.Time      `json:"confirmed_at"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	StockDeducted      bool            `gorm:"not null" json:"stock_deducted"`
	CreatedBy          *snowflake.ID   `json:"created_by"`
	AssignedTo         *snowflake.ID   `json:"assigned_to"`
	Notes              string          `gorm:"type:text" json:"notes"`
	InternalNotes      string          `gorm:"type:text" json:"internal_notes"`
	db.SoftDelete

	Items []*OrderItem `gorm:"-" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	db.Model
	OrderID            snowflake.ID    `gorm:"not null;index" json:"order_id"`
	ProductID          snowflake.ID    `gorm:"not null;index" json:"product_id"`
	VariantID          *snowflake.ID   `json:"variant_id"`
	ProductName        string          `gorm:"type:text;not null" json:"product_name"`
	ProductSKU         string          `gorm:"column:product_sku;type:text" json:"product_sku"`
	VariantName        string          `gorm:"type:text" json:"variant_name"`
	Quantity           int64           `gorm:"not null" json:"quantity" validate:"gt=0"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	TaxPercentage      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tax_percentage"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"tax_amount"`
	Total              decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	Notes              string          `gorm:"type:text" json:"notes"`
}

func (OrderItem) TableName() string { return "order_items" }

// ComputeTotals derives the money columns from price, quantity and percentages.
func (i *OrderItem) ComputeTotals() {
	i.Subtotal = money.Round(i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity)))
	i.DiscountAmount = money.Percent(i.Subtotal, i.DiscountPercentage)
	i.TaxAmount = money.Percent(i.Subtotal.Sub(i.DiscountAmount), i.TaxPercentage)
	i.Total = money.Round(i.Subtotal.Sub(i.DiscountAmount).Add(i.TaxAmount))
}

// OrderStatusHistory is append-only.
type OrderStatusHistory struct {
	db.Model
	OrderID        snowflake.ID  `gorm:"not null;index" json:"order_id"`
	PreviousStatus Status        `gorm:"type:text;not null" json:"previous_status"`
	NewStatus      Status        `gorm:"type:text;not null" json:"new_status"`
	ChangedBy      *snowflake.ID `json:"changed_by"`
	Notes          string        `gorm:"type:text" json:"notes"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodOnline   PaymentMethod = "online"
	MethodOther    PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodOnline, MethodOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type OrderPayment struct {
	db.Model
	OrderID       snowflake.ID    `gorm:"not null;index" json:"order_id"`
	PaymentMethod PaymentMethod   `gorm:"type:text;not null" json:"payment_method"`
	Status        PaymentStatus   `gorm:"type:text;not null" json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reference     string          `gorm:"type:text" json:"reference" validate:"max=100"`
	PaidAt        *time.Time      `json:"paid_at"`
	ProcessedBy   *snowflake.ID   `json:"processed_by"`
	Notes         string          `gorm:"type:text" json:"notes"`
}

func (OrderPayment) TableName() string { return "order_payments" }

type RefundReason string

const (
	ReasonCustomerRequest RefundReason = "customer_request"
	ReasonDefective       RefundReason = "defective"
	ReasonWrongItem       RefundReason = "wrong_item"
	ReasonNotSatisfied    RefundReason = "not_satisfied"
	ReasonOther           RefundReason = "other"
)

func (r RefundReason) Valid() bool {
	switch r {
	case ReasonCustomerRequest, ReasonDefective, ReasonWrongItem, ReasonNotSatisfied, ReasonOther:
		return true
	}
	return false
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundProcessed RefundStatus = "processed"
)

type OrderRefund struct {
	db.Model
	OrderID      snowflake.ID    `gorm:"not null;index" json:"order_id"`
	RefundNumber string          `gorm:"type:text;not null;index" json:"refund_number"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reason       RefundReason    `gorm:"type:text;not null" json:"reason"`
	Status       RefundStatus    `gorm:"type:text;not null" json:"status"`
	Restock      bool            `gorm:"not null" json:"restock"`
	RequestedBy  *snowflake.ID   `json:"requested_by"`
	ApprovedBy   *snowflake.ID   `json:"approved_by"`
	ApprovedAt   *time.Time      `json:"approved_at"`
	ProcessedAt  *time.Time      `json:"processed_at"`
	Notes        string          `gorm:"type:text;not null" json:"notes" validate:"required"`
}

func (OrderRefund) TableName() string { return "order_refunds" }

var (
	OrderReadOnly = []string{
		"order_number", "status", "subtotal", "discount_amount", "tax_amount", "total",
		"order_date", "confirmed_at", "completed_at", "cancelled_at", "stock_deducted",
		"created_by", "items",
	}
	ItemReadOnly    = []string{"product_name", "product_sku", "variant_name", "subtotal", "discount_amount", "tax_amount", "total"}
	PaymentReadOnly = []string{"status", "paid_at", "processed_by"}
	RefundReadOnly  = []string{"refund_number", "status", "requested_by", "approved_by", "approved_at", "processed_at"}
)
