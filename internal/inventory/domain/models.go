package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
)

type MovementType string

const (
	MovementPurchase    MovementType = "purchase"
	MovementSale        MovementType = "sale"
	MovementTransfer    MovementType = "transfer"
	MovementAdjustment  MovementType = "adjustment"
	MovementReturn      MovementType = "return"
	MovementDamage      MovementType = "damage"
	MovementProduction  MovementType = "production"
	MovementConsumption MovementType = "consumption"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementTransfer, MovementAdjustment,
		MovementReturn, MovementDamage, MovementProduction, MovementConsumption:
		return true
	}
	return false
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

type AdjustmentReason string

const (
	ReasonCountDiscrepancy AdjustmentReason = "count_discrepancy"
	ReasonDamage           AdjustmentReason = "damage"
	ReasonTheft            AdjustmentReason = "theft"
	ReasonExpired          AdjustmentReason = "expired"
	ReasonFound            AdjustmentReason = "found"
	ReasonCorrection       AdjustmentReason = "correction"
	ReasonOther            AdjustmentReason = "other"
)

func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonCountDiscrepancy, ReasonDamage, ReasonTheft, ReasonExpired,
		ReasonFound, ReasonCorrection, ReasonOther:
		return true
	}
	return false
}

type Warehouse struct {
	db.Model
	Name       string        `gorm:"type:text;not null" json:"name" validate:"required,max=100"`
	Code       string        `gorm:"type:text;not null;index" json:"code" validate:"required,max=20"`
	Address    string        `gorm:"type:text" json:"address"`
	City       string        `gorm:"type:text" json:"city"`
	State      string        `gorm:"type:text" json:"state"`
	Country    string        `gorm:"type:text" json:"country"`
	PostalCode string        `gorm:"type:text" json:"postal_code" validate:"max=20"`
	Phone      string        `gorm:"type:text" json:"phone" validate:"max=20"`
	Email      string        `gorm:"type:text" json:"email" validate:"omitempty,email"`
	ManagerID  *snowflake.ID `json:"manager_id"`
	IsMain     bool          `gorm:"not null" json:"is_main"`
	IsActive   bool          `gorm:"not null" json:"is_active"`
	Notes      string        `gorm:"type:text" json:"notes"`
	db.SoftDelete
}

func (Warehouse) TableName() string { return "warehouses" }

// InventoryItem is the stock of one product (or variant) in one warehouse.
type InventoryItem struct {
	db.Model
	WarehouseID       snowflake.ID    `gorm:"not null;index" json:"warehouse_id"`
	ProductID         snowflake.ID    `gorm:"not null;index" json:"product_id"`
	VariantID         *snowflake.ID   `gorm:"index" json:"variant_id"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	ReservedQuantity  int64           `gorm:"not null" json:"reserved_quantity"`
	Location          string          `gorm:"type:text" json:"location" validate:"max=100"`
	MinStockLevel     int64           `gorm:"not null" json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel     int64           `gorm:"not null" json:"max_stock_level" validate:"gte=0"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"average_cost"`
	AvailableQuantity int64           `gorm:"-" json:"available_quantity"`
	IsLowStock        bool            `gorm:"-" json:"is_low_stock"`
	IsOverstock       bool            `gorm:"-" json:"is_overstock"`
	db.SoftDelete
}

func (InventoryItem) TableName() string { return "inventory_items" }

func (i *InventoryItem) Available() int64 {
	if free := i.Quantity - i.ReservedQuantity; free > 0 {
		return free
	}
	return 0
}

func (i *InventoryItem) LowStock() bool { return i.Quantity <= i.MinStockLevel }

// Compute fills the derived stock fields.
func (i *InventoryItem) Compute() {
	i.AvailableQuantity = i.Available()
	i.IsLowStock = i.LowStock()
	i.IsOverstock = i.MaxStockLevel > 0 && i.Quantity >= i.MaxStockLevel
}

// InventoryMovement is an append-only stock change record.
type InventoryMovement struct {
	db.Model
	InventoryItemID  snowflake.ID     `gorm:"not null;index" json:"inventory_item_id"`
	MovementType     MovementType     `gorm:"type:text;not null;index" json:"movement_type"`
	Quantity         int64            `gorm:"not null" json:"quantity"`
	PreviousQuantity int64            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int64            `gorm:"not null" json:"new_quantity"`
	ReferenceType    string           `gorm:"type:text;index" json:"reference_type" validate:"max=50"`
	ReferenceID      string           `gorm:"type:text" json:"reference_id" validate:"max=50"`
	UnitCost         *decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	TotalCost        *decimal.Decimal `gorm:"type:decimal(14,2)" json:"total_cost"`
	Notes            string           `gorm:"type:text" json:"notes"`
	CreatedBy        *snowflake.ID    `json:"created_by"`
}

func (InventoryMovement) TableName() string { return "inventory_movements" }

type StockTransfer struct {
	db.Model
	TransferNumber  string         `gorm:"type:text;not null;index" json:"transfer_number"`
	FromWarehouseID snowflake.ID   `gorm:"not null;index" json:"from_warehouse_id"`
	ToWarehouseID   snowflake.ID   `gorm:"not null;index" json:"to_warehouse_id"`
	Status          TransferStatus `gorm:"type:text;not null;index" json:"status"`
	RequestedDate   time.Time      `gorm:"not null" json:"requested_date"`
	ExpectedArrival *time.Time     `json:"expected_arrival"`
	SentDate        *time.Time     `json:"sent_date"`
	ReceivedDate    *time.Time     `json:"received_date"`
	InitiatedBy     *snowflake.ID  `json:"initiated_by"`
	ReceivedBy      *snowflake.ID  `json:"received_by"`
	Notes           string         `gorm:"type:text" json:"notes"`
}

func (StockTransfer) TableName() string { return "stock_transfers" }

type StockTransferItem struct {
	db.Model
	TransferID       snowflake.ID  `gorm:"not null;index" json:"transfer_id"`
	ProductID        snowflake.ID  `gorm:"not null" json:"product_id"`
	VariantID        *snowflake.ID `json:"variant_id"`
	QuantitySent     int64         `gorm:"not null" json:"quantity_sent" validate:"gt=0"`
	QuantityReceived int64         `gorm:"not null" json:"quantity_received"`
	Notes            string        `gorm:"type:text" json:"notes"`
}

func (StockTransferItem) TableName() string { return "stock_transfer_items" }

type StockAdjustment struct {
	db.Model
	AdjustmentNumber   string           `gorm:"type:text;not null;index" json:"adjustment_number"`
	InventoryItemID    snowflake.ID     `gorm:"not null;index" json:"inventory_item_id"`
	Reason             AdjustmentReason `gorm:"type:text;not null" json:"reason"`
	PreviousQuantity   int64            `gorm:"not null" json:"previous_quantity"`
	AdjustmentQuantity int64            `gorm:"not null" json:"adjustment_quantity"`
	NewQuantity        int64            `gorm:"not null" json:"new_quantity"`
	PerformedBy        *snowflake.ID    `json:"performed_by"`
	ApprovedBy         *snowflake.ID    `json:"approved_by"`
	Notes              string           `gorm:"type:text" json:"notes" validate:"required"`
}

func (StockAdjustment) TableName() string { return "stock_adjustments" }

var (
	ItemReadOnly       = []string{"available_quantity", "is_low_stock", "is_overstock"}
	MovementReadOnly   = []string{"previous_quantity", "new_quantity", "total_cost", "created_by"}
	TransferReadOnly   = []string{"transfer_number", "status", "sent_date", "received_date", "initiated_by", "received_by"}
	TransferItemRO     = []string{"quantity_received"}
	AdjustmentReadOnly = []string{"adjustment_number", "previous_quantity", "new_quantity", "performed_by"}
)
