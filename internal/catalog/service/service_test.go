package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/catalog/repository"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/attrs"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	conn *gorm.DB
	svc  domain.Service
	ctx  context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(
		&domain.Category{}, &domain.Product{}, &domain.ProductVariant{},
		&domain.Attribute{}, &domain.AttributeValue{}, &domain.ProductAttribute{},
	)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return &fixture{conn: conn, svc: svc, ctx: bizcontext.WithBusiness(context.Background(), 77, nil)}
}

func (f *fixture) product(t *testing.T, name string, mutate func(*domain.Product)) *domain.Product {
	t.Helper()
	p := f.svc.Products().New()
	p.Name = name
	p.BasePrice = decimal.NewFromInt(100)
	if mutate != nil {
		mutate(p)
	}
	created, err := f.svc.Products().Create(f.ctx, p)
	require.NoError(t, err)
	return created
}

func (f *fixture) variant(t *testing.T, productID snowflake.ID, sku string, bag attrs.Bag, mutate func(*domain.ProductVariant)) (*domain.ProductVariant, error) {
	t.Helper()
	v := f.svc.Variants().New()
	v.ProductID = productID
	v.Name = sku
	v.SKU = sku
	v.Price = decimal.NewFromInt(50)
	v.Attributes = datatypes.NewJSONType(bag)
	if mutate != nil {
		mutate(v)
	}
	return f.svc.Variants().Create(f.ctx, v)
}

func TestProductSlugIsGeneratedAndDeduplicated(t *testing.T) {
	f := newFixture(t)

	first := f.product(t, "Café Molido", nil)
	second := f.product(t, "Café Molido", nil)
	assert.Equal(t, "cafe-molido", first.Slug)
	assert.Equal(t, "cafe-molido-1", second.Slug)

	p := f.svc.Products().New()
	p.Name = "Otro"
	p.Slug = "cafe-molido"
	_, err := f.svc.Products().Create(f.ctx, p)
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestProductRejectsForeignCategoryAndBadType(t *testing.T) {
	f := newFixture(t)
	other := bizcontext.WithBusiness(context.Background(), 99, nil)
	c := f.svc.Categories().New()
	c.Name = "Bebidas"
	foreign, err := f.svc.Categories().Create(other, c)
	require.NoError(t, err)

	p := f.svc.Products().New()
	p.Name = "Jugo"
	p.CategoryID = &foreign.ID
	_, err = f.svc.Products().Create(f.ctx, p)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	p = f.svc.Products().New()
	p.Name = "Jugo"
	p.ProductType = "gadget"
	_, err = f.svc.Products().Create(f.ctx, p)
	assert.ErrorIs(t, err, domain.ErrInvalidProductType)
}

func TestCategoryParentCannotFormCycle(t *testing.T) {
	f := newFixture(t)
	root := f.svc.Categories().New()
	root.Name = "Ropa"
	root, err := f.svc.Categories().Create(f.ctx, root)
	require.NoError(t, err)

	child := f.svc.Categories().New()
	child.Name = "Camisas"
	child.ParentID = &root.ID
	child, err = f.svc.Categories().Create(f.ctx, child)
	require.NoError(t, err)

	_, err = f.svc.Categories().Update(f.ctx, root.ID, map[string]json.RawMessage{
		"parent_id": json.RawMessage(`"` + child.ID.String() + `"`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParent)

	_, err = f.svc.Categories().Update(f.ctx, root.ID, map[string]json.RawMessage{
		"parent_id": json.RawMessage(`"` + root.ID.String() + `"`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestDeletingCategoryDetachesProductsAndChildren(t *testing.T) {
	f := newFixture(t)
	root := f.svc.Categories().New()
	root.Name = "Ropa"
	root, err := f.svc.Categories().Create(f.ctx, root)
	require.NoError(t, err)
	mid := f.svc.Categories().New()
	mid.Name = "Hombre"
	mid.ParentID = &root.ID
	mid, err = f.svc.Categories().Create(f.ctx, mid)
	require.NoError(t, err)
	leaf := f.svc.Categories().New()
	leaf.Name = "Camisas"
	leaf.ParentID = &mid.ID
	leaf, err = f.svc.Categories().Create(f.ctx, leaf)
	require.NoError(t, err)
	p := f.product(t, "Camisa", func(p *domain.Product) { p.CategoryID = &mid.ID })

	require.NoError(t, f.svc.Categories().Delete(f.ctx, mid.ID))

	gotLeaf, err := f.svc.Categories().Get(f.ctx, leaf.ID)
	require.NoError(t, err)
	require.NotNil(t, gotLeaf.ParentID)
	assert.Equal(t, root.ID, *gotLeaf.ParentID)

	gotProduct, err := f.svc.Products().Get(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gotProduct.CategoryID)
}

func declareAttributes(t *testing.T, f *fixture, productID snowflake.ID) {
	t.Helper()
	size := f.svc.Attributes().New()
	size.Name = "Talla"
	size.Type = domain.AttributeSelect
	size, err := f.svc.Attributes().Create(f.ctx, size)
	require.NoError(t, err)
	for _, opt := range []string{"S", "M", "L"} {
		_, err := f.svc.AttributeValues().Create(f.ctx, &domain.AttributeValue{AttributeID: size.ID, Value: opt})
		require.NoError(t, err)
	}

	weight := f.svc.Attributes().New()
	weight.Name = "Peso"
	weight.Type = domain.AttributeNumber
	weight, err = f.svc.Attributes().Create(f.ctx, weight)
	require.NoError(t, err)

	_, err = f.svc.ProductAttributes().Create(f.ctx, &domain.ProductAttribute{ProductID: productID, AttributeID: size.ID, IsRequired: true})
	require.NoError(t, err)
	_, err = f.svc.ProductAttributes().Create(f.ctx, &domain.ProductAttribute{ProductID: productID, AttributeID: weight.ID})
	require.NoError(t, err)

	_, err = f.svc.ProductAttributes().Create(f.ctx, &domain.ProductAttribute{ProductID: productID, AttributeID: size.ID})
	assert.ErrorIs(t, err, domain.ErrProductAttrExists)
}

func TestVariantAttributesAreValidated(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Camiseta", func(p *domain.Product) { p.HasVariants = true })
	declareAttributes(t, f, p.ID)

	_, err := f.variant(t, p.ID, "CAM-M", attrs.Bag{"Talla": attrs.String("M"), "Peso": attrs.Number(180)}, nil)
	require.NoError(t, err)

	_, err = f.variant(t, p.ID, "CAM-X1", attrs.Bag{"Talla": attrs.String("M"), "Color": attrs.String("Rojo")}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAttributes)

	_, err = f.variant(t, p.ID, "CAM-X2", attrs.Bag{"Talla": attrs.String("M"), "Peso": attrs.String("180g")}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAttributes)

	_, err = f.variant(t, p.ID, "CAM-X3", attrs.Bag{"Talla": attrs.String("XXL")}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAttributes)

	_, err = f.variant(t, p.ID, "CAM-X4", attrs.Bag{"Peso": attrs.Number(200)}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAttributes)

	_, err = f.variant(t, p.ID, "CAM-M", attrs.Bag{"Talla": attrs.String("L")}, nil)
	assert.ErrorIs(t, err, domain.ErrSKUTaken)
}

func TestCheckAttributesReportsEveryProblem(t *testing.T) {
	declared := []domain.DeclaredAttribute{
		{AttributeID: 1, Name: "Talla", Type: domain.AttributeSelect, IsRequired: true},
		{AttributeID: 2, Name: "Orgánico", Type: domain.AttributeBoolean},
	}
	err := CheckAttributes(declared, map[snowflake.ID][]string{1: {"S"}}, attrs.Bag{
		"Orgánico": attrs.String("si"),
		"Marca":    attrs.String("Diana"),
	})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Len(t, appErr.Details, 3)
	assert.Equal(t, "attributes.Marca", appErr.Details[0].Field)
	assert.Equal(t, "invalid_type", appErr.Details[1].Code)
	assert.Equal(t, "required", appErr.Details[2].Code)

	assert.NoError(t, CheckAttributes(declared, map[snowflake.ID][]string{1: {"S"}}, attrs.Bag{
		"Talla":    attrs.String("S"),
		"Orgánico": attrs.Bool(true),
	}))
}

func TestProductComputedFields(t *testing.T) {
	f := newFixture(t)
	plain := f.product(t, "Arroz", func(p *domain.Product) { p.StockQuantity = 0 })
	assert.False(t, plain.IsInStock)
	assert.True(t, decimal.NewFromInt(100).Equal(plain.Price))

	untracked := f.product(t, "Corte de pelo", func(p *domain.Product) {
		p.TrackInventory = false
		p.ProductType = domain.ProductService
	})
	assert.True(t, untracked.IsInStock)
	assert.True(t, untracked.IsService)

	shirt := f.product(t, "Camisa", func(p *domain.Product) { p.HasVariants = true })
	_, err := f.variant(t, shirt.ID, "CAM-2", nil, func(v *domain.ProductVariant) {
		v.Price = decimal.NewFromInt(80)
		v.Order = 2
	})
	require.NoError(t, err)
	_, err = f.variant(t, shirt.ID, "CAM-1", nil, func(v *domain.ProductVariant) {
		v.Price = decimal.NewFromInt(70)
		v.Order = 1
		v.StockQuantity = 4
	})
	require.NoError(t, err)

	got, err := f.svc.Products().Get(f.ctx, shirt.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(got.Price))
	assert.True(t, got.IsInStock)
}

func TestVariantDiscountAndDefault(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Zapato", func(p *domain.Product) { p.HasVariants = true })
	compare := decimal.NewFromInt(120)

	first, err := f.variant(t, p.ID, "ZAP-1", nil, func(v *domain.ProductVariant) {
		v.Price = decimal.NewFromInt(90)
		v.CompareAtPrice = &compare
		v.IsDefault = true
	})
	require.NoError(t, err)
	assert.True(t, first.HasDiscount)
	assert.Equal(t, int64(25), first.DiscountPercentage)

	second, err := f.variant(t, p.ID, "ZAP-2", nil, func(v *domain.ProductVariant) { v.IsDefault = true })
	require.NoError(t, err)
	assert.False(t, second.HasDiscount)

	reloaded, err := f.svc.Variants().Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Harina", func(p *domain.Product) { p.StockQuantity = 5 })

	ok, err := f.svc.AdjustStock(f.ctx, f.conn, p.ID, nil, -3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.AdjustStock(f.ctx, f.conn, p.ID, nil, -3)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.svc.Products().Get(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.StockQuantity)
}

func TestDeletingProductHidesVariants(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gorra", func(p *domain.Product) { p.HasVariants = true })
	v, err := f.variant(t, p.ID, "GOR-1", nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Products().Delete(f.ctx, p.ID))

	_, err = f.svc.Variants().Get(f.ctx, v.ID)
	assert.ErrorIs(t, err, apperror.NotFound("product_variant_not_found"))
}
