package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func exists(tx *gorm.DB) (bool, error) {
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, table string, businessID snowflake.ID, slug string, exceptID snowflake.ID) (bool, error) {
	return exists(db.WithContext(ctx).Table(table).
		Where("business_id = ? AND slug = ? AND id <> ? AND is_deleted = ?", businessID, slug, exceptID, false))
}

func (r *repo) SKUExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, sku string, exceptID snowflake.ID) (bool, error) {
	return exists(db.WithContext(ctx).Model(&domain.ProductVariant{}).
		Where("business_id = ? AND sku = ? AND id <> ? AND is_deleted = ?", businessID, sku, exceptID, false))
}

func (r *repo) AttributeNameExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, name string, exceptID snowflake.ID) (bool, error) {
	return exists(db.WithContext(ctx).Model(&domain.Attribute{}).
		Where("business_id = ? AND LOWER(name) = LOWER(?) AND id <> ? AND is_deleted = ?", businessID, name, exceptID, false))
}

func (r *repo) ProductAttributeExists(ctx context.Context, db *gorm.DB, productID, attributeID, exceptID snowflake.ID) (bool, error) {
	return exists(db.WithContext(ctx).Model(&domain.ProductAttribute{}).
		Where("product_id = ? AND attribute_id = ? AND id <> ?", productID, attributeID, exceptID))
}

func (r *repo) Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error) {
	return exists(db.WithContext(ctx).Table(table).
		Where("business_id = ? AND id = ? AND is_deleted = ?", businessID, id, false))
}

func (r *repo) ParentOf(ctx context.Context, db *gorm.DB, categoryID snowflake.ID) (*snowflake.ID, error) {
	var category domain.Category
	err := db.WithContext(ctx).Select("parent_id").Where("id = ?", categoryID).Take(&category).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return category.ParentID, nil
}

func (r *repo) DeclaredAttributes(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]domain.DeclaredAttribute, error) {
	var rows []domain.DeclaredAttribute
	err := db.WithContext(ctx).
		Table("product_attributes AS pa").
		Select("a.id AS attribute_id, a.name AS name, a.type AS type, (pa.is_required OR a.is_required) AS is_required").
		Joins("JOIN attributes AS a ON a.id = pa.attribute_id AND a.is_deleted = ?", false).
		Where("pa.product_id = ?", productID).
		Order("pa.sort_order ASC, pa.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) AttributeOptions(ctx context.Context, db *gorm.DB, attributeIDs []snowflake.ID) (map[snowflake.ID][]string, error) {
	out := make(map[snowflake.ID][]string, len(attributeIDs))
	if len(attributeIDs) == 0 {
		return out, nil
	}
	var values []domain.AttributeValue
	err := db.WithContext(ctx).Where("attribute_id IN ?", attributeIDs).Order("sort_order ASC, id ASC").Find(&values).Error
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		out[v.AttributeID] = append(out[v.AttributeID], v.Value)
	}
	return out, nil
}

func (r *repo) ActiveVariants(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]*domain.ProductVariant, error) {
	var variants []*domain.ProductVariant
	if len(productIDs) == 0 {
		return variants, nil
	}
	err := db.WithContext(ctx).
		Where("product_id IN ? AND is_active = ? AND is_deleted = ?", productIDs, true, false).
		Order("sort_order ASC, id ASC").
		Find(&variants).Error
	return variants, err
}

func (r *repo) TrackedProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) (map[snowflake.ID]bool, error) {
	out := make(map[snowflake.ID]bool, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).Select("id", "track_inventory").Where("id IN ?", productIDs).Find(&products).Error
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p.TrackInventory
	}
	return out, nil
}

func (r *repo) ClearDefaultVariant(ctx context.Context, db *gorm.DB, productID, keepID snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.ProductVariant{}).
		Where("product_id = ? AND id <> ? AND is_default = ?", productID, keepID, true).
		Update("is_default", false).Error
}

func (r *repo) DetachCategory(ctx context.Context, db *gorm.DB, businessID, categoryID snowflake.ID, parentID *snowflake.ID) error {
	tx := db.WithContext(ctx)
	if err := tx.Model(&domain.Product{}).
		Where("business_id = ? AND category_id = ?", businessID, categoryID).
		Update("category_id", nil).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Category{}).
		Where("business_id = ? AND parent_id = ?", businessID, categoryID).
		Update("parent_id", parentID).Error
}

func (r *repo) DeleteVariants(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.ProductVariant{}).
		Where("product_id = ? AND is_deleted = ?", productID, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at, "updated_at": at}).Error
}

func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, businessID, productID snowflake.ID, variantID *snowflake.ID, delta int64) (bool, error) {
	var tx *gorm.DB
	if variantID != nil {
		tx = db.WithContext(ctx).Model(&domain.ProductVariant{}).
			Where("business_id = ? AND product_id = ? AND id = ?", businessID, productID, *variantID)
	} else {
		tx = db.WithContext(ctx).Model(&domain.Product{}).
			Where("business_id = ? AND id = ?", businessID, productID)
	}
	tx = tx.Where("stock_quantity + ? >= 0", delta).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
