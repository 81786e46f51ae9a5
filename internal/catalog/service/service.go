package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository

	categories        *crud.Service[domain.Category, *domain.Category]
	products          *crud.Service[domain.Product, *domain.Product]
	variants          *crud.Service[domain.ProductVariant, *domain.ProductVariant]
	attributes        *crud.Service[domain.Attribute, *domain.Attribute]
	attributeValues   *crud.Service[domain.AttributeValue, *domain.AttributeValue]
	productAttributes *crud.Service[domain.ProductAttribute, *domain.ProductAttribute]
}

func New(p Params) domain.Service {
	s := &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}

	s.categories = crud.New[domain.Category](p.DB, repository.ProvideStore[domain.Category](p.DB), p.GenID, p.Clock, crud.Config[domain.Category]{
		Name:         "category",
		Defaults:     func(c *domain.Category) { c.IsActive = true },
		Validate:     s.checkCategory,
		BeforeDelete: s.detachCategory,
	})
	s.products = crud.New[domain.Product](p.DB, repository.ProvideStore[domain.Product](p.DB), p.GenID, p.Clock, crud.Config[domain.Product]{
		Name:     "product",
		ReadOnly: domain.ProductReadOnly,
		Defaults: func(p *domain.Product) {
			p.ProductType = domain.ProductPhysical
			p.TrackInventory = true
			p.IsActive = true
		},
		Validate:    s.checkProduct,
		AfterDelete: s.deleteVariants,
		Present:     s.presentProducts,
	})
	s.variants = crud.New[domain.ProductVariant](p.DB, repository.ProvideStore[domain.ProductVariant](p.DB), p.GenID, p.Clock, crud.Config[domain.ProductVariant]{
		Name:      "product_variant",
		ReadOnly:  domain.VariantReadOnly,
		Defaults:  func(v *domain.ProductVariant) { v.IsActive = true },
		Validate:  s.checkVariant,
		AfterSave: s.keepSingleDefault,
		Present:   s.presentVariants,
	})
	s.attributes = crud.New[domain.Attribute](p.DB, repository.ProvideStore[domain.Attribute](p.DB), p.GenID, p.Clock, crud.Config[domain.Attribute]{
		Name: "attribute",
		Defaults: func(a *domain.Attribute) {
			a.Type = domain.AttributeText
			a.IsVariantAttribute = true
		},
		Validate: s.checkAttribute,
	})
	s.attributeValues = crud.New[domain.AttributeValue](p.DB, repository.ProvideStore[domain.AttributeValue](p.DB), p.GenID, p.Clock, crud.Config[domain.AttributeValue]{
		Name:     "attribute_value",
		Validate: s.checkAttributeValue,
	})
	s.productAttributes = crud.New[domain.ProductAttribute](p.DB, repository.ProvideStore[domain.ProductAttribute](p.DB), p.GenID, p.Clock, crud.Config[domain.ProductAttribute]{
		Name:     "product_attribute",
		Validate: s.checkProductAttribute,
	})
	return s
}

func (s *Service) Categories() crud.Store[domain.Category] { return s.categories }
func (s *Service) Products() crud.Store[domain.Product] { return s.products }
func (s *Service) Variants() crud.Store[domain.ProductVariant] { return s.variants }
func (s *Service) Attributes() crud.Store[domain.Attribute] { return s.attributes }
func (s *Service) AttributeValues() crud.Store[domain.AttributeValue] { return s.attributeValues }
func (s *Service) ProductAttributes() crud.Store[domain.ProductAttribute] { return s.productAttributes }

func (s *Service) ProductTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	return s.products.GetTx(ctx, tx, id)
}

func (s *Service) VariantTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.ProductVariant, error) {
	return s.variants.GetTx(ctx, tx, id)
}

func (s *Service) AdjustStock(ctx context.Context, tx *gorm.DB, productID snowflake.ID, variantID *snowflake.ID, delta int64) (bool, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return false, crud.ErrInvalidBusiness
	}
	applied, err := s.repo.AdjustStock(ctx, tx, businessID, productID, variantID, delta)
	if err != nil {
		return false, err
	}
	if applied {
		fields := []zap.Field{zap.String("product_id", productID.String()), zap.Int64("delta", delta)}
		if variantID != nil {
			fields = append(fields, zap.String("variant_id", variantID.String()))
		}
		s.log.Debug("stock adjusted", fields...)
	}
	return applied, nil
}

// uniqueSlug normalizes want (or name when want is empty) and appends -N until
// it is free in the business. An explicit slug that is taken is a conflict.
func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, table string, businessID, id snowflake.ID, want, name string) (string, error) {
	if want != "" {
		normalized := slug.Make(want)
		if normalized == "" {
			return "", domain.ErrInvalidSlug
		}
		taken, err := s.repo.SlugExists(ctx, tx, table, businessID, normalized, id)
		if err != nil {
			return "", err
		}
		if taken {
			return "", domain.ErrSlugTaken
		}
		return normalized, nil
	}

	base := slug.Make(name)
	if base == "" {
		base = "item"
	}
	candidate := base
	for n := 1; ; n++ {
		taken, err := s.repo.SlugExists(ctx, tx, table, businessID, candidate, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
