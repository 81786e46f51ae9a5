package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrCategoryNotFound    = apperror.NotFound("category_not_found")
	ErrProductNotFound     = apperror.NotFound("product_not_found")
	ErrVariantNotFound     = apperror.NotFound("product_variant_not_found")
	ErrAttributeNotFound   = apperror.NotFound("attribute_not_found")
	ErrInvalidCategory     = apperror.Validation("category_id", "invalid_category", "category does not belong to this business")
	ErrInvalidParent       = apperror.Validation("parent_id", "invalid_parent", "invalid parent category")
	ErrInvalidProduct      = apperror.Validation("product_id", "invalid_product", "product does not belong to this business")
	ErrInvalidAttribute    = apperror.Validation("attribute_id", "invalid_attribute", "attribute does not belong to this business")
	ErrInvalidProductType  = apperror.Validation("product_type", "invalid_product_type", "invalid product type")
	ErrInvalidAttrType     = apperror.Validation("type", "invalid_type", "invalid attribute type")
	ErrInvalidAttributes   = apperror.Validation("attributes", "invalid_attributes", "invalid variant attributes")
	ErrNegativePrice       = apperror.Validation("price", "invalid_price", "prices cannot be negative")
	ErrNegativeStock       = apperror.Validation("stock_quantity", "invalid_stock_quantity", "stock cannot be negative")
	ErrInvalidSlug         = apperror.Validation("slug", "invalid_slug", "invalid slug")
	ErrSlugTaken           = apperror.Conflict("slug_taken", "slug already used in this business")
	ErrSKUTaken            = apperror.Conflict("sku_taken", "sku already used in this business")
	ErrAttributeNameTaken  = apperror.Conflict("attribute_exists", "an attribute with this name already exists")
	ErrProductAttrExists   = apperror.Conflict("product_attribute_exists", "attribute already assigned to this product")
	ErrAttributeValueOwner = apperror.Validation("attribute_id", "invalid_attribute", "values only apply to select or color attributes")
)
