package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/crud"
	"gorm.io/gorm"
)

// MovementRequest describes a stock change applied to one inventory item.
type MovementRequest struct {
	MovementType  MovementType     `json:"movement_type"`
	Quantity      int64            `json:"quantity"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	Notes         string           `json:"notes"`
}

// ReceiveRequest maps transfer item ids to received quantities. Items left
// out are received in full.
type ReceiveRequest struct {
	Items map[snowflake.ID]int64 `json:"items"`
}

type Service interface {
	Warehouses() crud.Store[Warehouse]
	Items() crud.Store[InventoryItem]
	// Movements are append-only; creating one applies it to its item.
	Movements() crud.Store[InventoryMovement]
	Transfers() crud.Store[StockTransfer]
	TransferItems() crud.Store[StockTransferItem]
	// Adjustments are append-only; creating one applies it to its item.
	Adjustments() crud.Store[StockAdjustment]

	Reserve(ctx context.Context, itemID snowflake.ID, qty int64) (*InventoryItem, error)
	ReleaseReservation(ctx context.Context, itemID snowflake.ID, qty int64) (*InventoryItem, error)
	RecordMovement(ctx context.Context, itemID snowflake.ID, req MovementRequest) (*InventoryMovement, error)

	SendTransfer(ctx context.Context, id snowflake.ID) (*StockTransfer, error)
	ReceiveTransfer(ctx context.Context, id snowflake.ID, req ReceiveRequest) (*StockTransfer, error)
	CancelTransfer(ctx context.Context, id snowflake.ID) (*StockTransfer, error)

	FindItemTx(ctx context.Context, tx *gorm.DB, warehouseID, productID snowflake.ID, variantID *snowflake.ID) (*InventoryItem, error)
	// MoveTx applies a movement inside the caller's transaction.
	MoveTx(ctx context.Context, tx *gorm.DB, item *InventoryItem, req MovementRequest) (*InventoryMovement, error)
}
