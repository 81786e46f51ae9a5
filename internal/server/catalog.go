package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
)

// productInStock matches products that can be sold right now.
const productInStock = `(track_inventory = ? OR stock_quantity > 0 OR EXISTS (
	SELECT 1 FROM product_variants v
	WHERE v.product_id = products.id AND v.is_active = ? AND v.is_deleted = ? AND v.stock_quantity > 0))`

func (s *Server) registerCatalogRoutes(biz *gin.RouterGroup) {
	resource[catalogdomain.Category]{
		path:   "categories",
		object: authorization.ResourceCategory,
		store:  s.catalogSvc.Categories(),
		filters: []filter{
			idFilter("parent_id", "parent_id"),
			boolFilter("is_active", "is_active"),
			searchFilter("name"),
		},
	}.mount(s, biz)

	resource[catalogdomain.Product]{
		path:   "products",
		object: authorization.ResourceProduct,
		store:  s.catalogSvc.Products(),
		filters: []filter{
			idFilter("category_id", "category_id"),
			boolFilter("is_active", "is_active"),
			boolFilter("is_featured", "is_featured"),
			textFilter("product_type", "product_type"),
			searchFilter("name", "sku"),
			flagFilter("in_stock", productInStock, false, true, false),
		},
	}.mount(s, biz)

	resource[catalogdomain.ProductVariant]{
		path:   "product-variants",
		object: authorization.ResourceProductVariant,
		store:  s.catalogSvc.Variants(),
		filters: []filter{
			idFilter("product_id", "product_id"),
			boolFilter("is_active", "is_active"),
			searchFilter("name", "sku"),
		},
	}.mount(s, biz)

	resource[catalogdomain.Attribute]{
		path:   "attributes",
		object: authorization.ResourceAttribute,
		store:  s.catalogSvc.Attributes(),
		filters: []filter{
			textFilter("type", "type"),
			boolFilter("is_variant_attribute", "is_variant_attribute"),
		},
	}.mount(s, biz)

	resource[catalogdomain.AttributeValue]{
		path:    "attribute-values",
		object:  authorization.ResourceAttribute,
		store:   s.catalogSvc.AttributeValues(),
		filters: []filter{idFilter("attribute_id", "attribute_id")},
	}.mount(s, biz)

	resource[catalogdomain.ProductAttribute]{
		path:   "product-attributes",
		object: authorization.ResourceAttribute,
		store:  s.catalogSvc.ProductAttributes(),
		filters: []filter{
			idFilter("product_id", "product_id"),
			idFilter("attribute_id", "attribute_id"),
		},
	}.mount(s, biz)
}
