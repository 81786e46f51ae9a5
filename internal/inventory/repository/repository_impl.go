package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/inventory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CodeExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string, exceptID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Warehouse{}).
		Where("business_id = ? AND code = ? AND id <> ? AND is_deleted = ?", businessID, code, exceptID, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ClearMainWarehouse(ctx context.Context, db *gorm.DB, businessID, keepID snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.Warehouse{}).
		Where("business_id = ? AND id <> ? AND is_main = ?", businessID, keepID, true).
		Update("is_main", false).Error
}

func (r *repo) ActiveWarehouse(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Warehouse{}).
		Where("business_id = ? AND id = ? AND is_active = ? AND is_deleted = ?", businessID, id, true, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, warehouseID, productID snowflake.ID, variantID *snowflake.ID) (*domain.InventoryItem, error) {
	query := db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ? AND is_deleted = ?", warehouseID, productID, false)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}
	var item domain.InventoryItem
	if err := query.Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) AddQuantity(ctx context.Context, db *gorm.DB, itemID snowflake.ID, delta int64) (bool, error) {
	tx := db.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("id = ? AND quantity + ? >= 0", itemID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return tx.RowsAffected == 1, tx.Error
}

func (r *repo) Reserve(ctx context.Context, db *gorm.DB, itemID snowflake.ID, qty int64) (bool, error) {
	tx := db.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("id = ? AND quantity - reserved_quantity >= ?", itemID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))
	return tx.RowsAffected == 1, tx.Error
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, itemID snowflake.ID, qty int64) error {
	return db.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("id = ?", itemID).
		Update("reserved_quantity", gorm.Expr("CASE WHEN reserved_quantity > ? THEN reserved_quantity - ? ELSE 0 END", qty, qty)).
		Error
}

func (r *repo) TransferItems(ctx context.Context, db *gorm.DB, transferID snowflake.ID) ([]*domain.StockTransferItem, error) {
	var items []*domain.StockTransferItem
	err := db.WithContext(ctx).Where("transfer_id = ?", transferID).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *repo) SaveTransferItem(ctx context.Context, db *gorm.DB, item *domain.StockTransferItem) error {
	return db.WithContext(ctx).Save(item).Error
}
