package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DeclaredAttribute is a product attribute joined with its definition.
type DeclaredAttribute struct {
	AttributeID snowflake.ID
	Name        string
	Type        AttributeType
	IsRequired  bool
}

type Repository interface {
	SlugExists(ctx context.Context, db *gorm.DB, table string, businessID snowflake.ID, slug string, exceptID snowflake.ID) (bool, error)
	SKUExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, sku string, exceptID snowflake.ID) (bool, error)
	AttributeNameExists(ctx context.Context, db *gorm.DB, businessID snowflake.ID, name string, exceptID snowflake.ID) (bool, error)
	ProductAttributeExists(ctx context.Context, db *gorm.DB, productID, attributeID, exceptID snowflake.ID) (bool, error)
	// Owned reports whether a live row with id exists in table for the business.
	Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error)
	ParentOf(ctx context.Context, db *gorm.DB, categoryID snowflake.ID) (*snowflake.ID, error)
	DeclaredAttributes(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]DeclaredAttribute, error)
	AttributeOptions(ctx context.Context, db *gorm.DB, attributeIDs []snowflake.ID) (map[snowflake.ID][]string, error)
	ActiveVariants(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]*ProductVariant, error)
	TrackedProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) (map[snowflake.ID]bool, error)
	ClearDefaultVariant(ctx context.Context, db *gorm.DB, productID, keepID snowflake.ID) error
	DetachCategory(ctx context.Context, db *gorm.DB, businessID, categoryID snowflake.ID, parentID *snowflake.ID) error
	DeleteVariants(ctx context.Context, db *gorm.DB, productID snowflake.ID, at time.Time) error
	// AdjustStock adds delta to the product (variantID nil) or variant stock
	// unless the result would be negative.
	AdjustStock(ctx context.Context, db *gorm.DB, businessID, productID snowflake.ID, variantID *snowflake.ID, delta int64) (bool, error)
}
