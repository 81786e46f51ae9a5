package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/crud"
	"gorm.io/gorm"
)

type Service interface {
	Categories() crud.Store[Category]
	Products() crud.Store[Product]
	Variants() crud.Store[ProductVariant]
	Attributes() crud.Store[Attribute]
	AttributeValues() crud.Store[AttributeValue]
	ProductAttributes() crud.Store[ProductAttribute]

	ProductTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Product, error)
	VariantTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*ProductVariant, error)
	// AdjustStock moves stock of a product, or of its variant when variantID is set.
	// It reports false when the stock would go below zero.
	AdjustStock(ctx context.Context, tx *gorm.DB, productID snowflake.ID, variantID *snowflake.ID, delta int64) (bool, error)
}
