package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CodeExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string, exceptID snowflake.ID) (bool, error)
	ClearMainWarehouse(ctx context.Context, db *gorm.DB, businessID, keepID snowflake.ID) error
	ActiveWarehouse(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (bool, error)
	// FindItem returns nil when the warehouse does not stock the product/variant.
	FindItem(ctx context.Context, db *gorm.DB, warehouseID, productID snowflake.ID, variantID *snowflake.ID) (*InventoryItem, error)
	// AddQuantity applies delta unless the quantity would go negative.
	AddQuantity(ctx context.Context, db *gorm.DB, itemID snowflake.ID, delta int64) (bool, error)
	// Reserve grows the reservation when enough stock is unreserved.
	Reserve(ctx context.Context, db *gorm.DB, itemID snowflake.ID, qty int64) (bool, error)
	Release(ctx context.Context, db *gorm.DB, itemID snowflake.ID, qty int64) error
	TransferItems(ctx context.Context, db *gorm.DB, transferID snowflake.ID) ([]*StockTransferItem, error)
	SaveTransferItem(ctx context.Context, db *gorm.DB, item *StockTransferItem) error
}
