package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/attrs"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

type ProductType string

const (
	ProductPhysical ProductType = "physical"
	ProductService  ProductType = "service"
	ProductDigital  ProductType = "digital"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductPhysical, ProductService, ProductDigital:
		return true
	}
	return false
}

type AttributeType string

const (
	AttributeText    AttributeType = "text"
	AttributeNumber  AttributeType = "number"
	AttributeSelect  AttributeType = "select"
	AttributeColor   AttributeType = "color"
	AttributeBoolean AttributeType = "boolean"
)

func (t AttributeType) Valid() bool {
	switch t {
	case AttributeText, AttributeNumber, AttributeSelect, AttributeColor, AttributeBoolean:
		return true
	}
	return false
}

// Kind is the scalar kind variant values of this attribute must carry.
func (t AttributeType) Kind() attrs.Kind {
	switch t {
	case AttributeNumber:
		return attrs.KindNumber
	case AttributeBoolean:
		return attrs.KindBool
	}
	return attrs.KindString
}

type Category struct {
	db.Model
	Name        string        `gorm:"type:text;not null" json:"name" validate:"required,max=100"`
	Slug        string        `gorm:"type:text;not null;index" json:"slug" validate:"max=100"`
	Description string        `gorm:"type:text" json:"description"`
	ParentID    *snowflake.ID `gorm:"index" json:"parent_id"`
	Order       int           `gorm:"column:sort_order;not null" json:"order"`
	IsActive    bool          `gorm:"not null" json:"is_active"`
	db.SoftDelete
}

func (Category) TableName() string { return "categories" }

type Product struct {
	db.Model
	CategoryID             *snowflake.ID               `gorm:"index" json:"category_id"`
	Name                   string                      `gorm:"type:text;not null" json:"name" validate:"required,max=255"`
	Slug                   string                      `gorm:"type:text;not null;index" json:"slug" validate:"max=255"`
	Description            string                      `gorm:"type:text" json:"description"`
	ProductType            ProductType                 `gorm:"type:text;not null" json:"product_type"`
	IsService              bool                        `gorm:"not null" json:"is_service"`
	ServiceDurationMinutes *int                        `json:"service_duration_minutes" validate:"omitempty,gt=0"`
	SKU                    string                      `gorm:"column:sku;type:text;index" json:"sku" validate:"max=100"`
	ImageURL               string                      `gorm:"type:text" json:"image_url" validate:"omitempty,url"`
	Images                 datatypes.JSONSlice[string] `json:"images"`
	BasePrice              decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"base_price"`
	CostPrice              *decimal.Decimal            `gorm:"type:decimal(12,2)" json:"cost_price"`
	TrackInventory         bool                        `gorm:"not null" json:"track_inventory"`
	StockQuantity          int64                       `gorm:"not null" json:"stock_quantity"`
	HasVariants            bool                        `gorm:"not null" json:"has_variants"`
	IsActive               bool                        `gorm:"not null" json:"is_active"`
	IsFeatured             bool                        `gorm:"not null" json:"is_featured"`
	Meta                   datatypes.JSONMap           `json:"meta"`
	IsInStock              bool                        `gorm:"-" json:"is_in_stock"`
	Price                  decimal.Decimal             `gorm:"-" json:"price"`
	db.SoftDelete
}

func (Product) TableName() string { return "products" }

type ProductVariant struct {
	db.Model
	ProductID          snowflake.ID                  `gorm:"not null;index" json:"product_id"`
	Name               string                        `gorm:"type:text;not null" json:"name" validate:"required,max=255"`
	SKU                string                        `gorm:"column:sku;type:text;not null;index" json:"sku" validate:"required,max=100"`
	Attributes         datatypes.JSONType[attrs.Bag] `json:"attributes"`
	Price              decimal.Decimal               `gorm:"type:decimal(12,2);not null" json:"price"`
	CompareAtPrice     *decimal.Decimal              `gorm:"type:decimal(12,2)" json:"compare_at_price"`
	CostPrice          *decimal.Decimal              `gorm:"type:decimal(12,2)" json:"cost_price"`
	StockQuantity      int64                         `gorm:"not null" json:"stock_quantity"`
	ImageURL           string                        `gorm:"type:text" json:"image_url" validate:"omitempty,url"`
	IsDefault          bool                          `gorm:"not null" json:"is_default"`
	IsActive           bool                          `gorm:"not null" json:"is_active"`
	Order              int                           `gorm:"column:sort_order;not null" json:"order"`
	IsInStock          bool                          `gorm:"-" json:"is_in_stock"`
	HasDiscount        bool                          `gorm:"-" json:"has_discount"`
	DiscountPercentage int64                         `gorm:"-" json:"discount_percentage"`
	db.SoftDelete
}

func (ProductVariant) TableName() string { return "product_variants" }

// Discount fills the computed discount fields from the prices.
func (v *ProductVariant) Discount() {
	v.HasDiscount = false
	v.DiscountPercentage = 0
	if v.CompareAtPrice == nil || !v.CompareAtPrice.IsPositive() || !v.Price.LessThan(*v.CompareAtPrice) {
		return
	}
	v.HasDiscount = true
	pct := v.CompareAtPrice.Sub(v.Price).Div(*v.CompareAtPrice).Mul(decimal.NewFromInt(100))
	v.DiscountPercentage = pct.Round(0).IntPart()
}

type Attribute struct {
	db.Model
	Name               string        `gorm:"type:text;not null" json:"name" validate:"required,max=100"`
	Type               AttributeType `gorm:"type:text;not null" json:"type"`
	Unit               string        `gorm:"type:text" json:"unit" validate:"max=20"`
	IsRequired         bool          `gorm:"not null" json:"is_required"`
	IsVariantAttribute bool          `gorm:"not null" json:"is_variant_attribute"`
	db.SoftDelete
}

func (Attribute) TableName() string { return "attributes" }

// AttributeValue is one option of a select or color attribute.
type AttributeValue struct {
	db.Model
	AttributeID snowflake.ID `gorm:"not null;index" json:"attribute_id"`
	Value       string       `gorm:"type:text;not null" json:"value" validate:"required,max=100"`
	ColorCode   string       `gorm:"type:text" json:"color_code" validate:"omitempty,hexcolor"`
	Order       int          `gorm:"column:sort_order;not null" json:"order"`
}

func (AttributeValue) TableName() string { return "attribute_values" }

// ProductAttribute declares which attributes a product's variants carry.
type ProductAttribute struct {
	db.Model
	ProductID   snowflake.ID `gorm:"not null;index" json:"product_id"`
	AttributeID snowflake.ID `gorm:"not null;index" json:"attribute_id"`
	IsRequired  bool         `gorm:"not null" json:"is_required"`
	Order       int          `gorm:"column:sort_order;not null" json:"order"`
}

func (ProductAttribute) TableName() string { return "product_attributes" }

// ReadOnly keys per entity. Computed fields are never accepted from clients.
var (
	ProductReadOnly = []string{"is_in_stock", "price"}
	VariantReadOnly = []string{"is_in_stock", "has_discount", "discount_percentage"}
)
