package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/attrs"
	"gorm.io/gorm"
)

func (s *Service) checkVariant(ctx context.Context, tx *gorm.DB, v, old *domain.ProductVariant) error {
	if old != nil && old.ProductID != v.ProductID {
		return domain.ErrInvalidProduct.WithMessage("a variant cannot move to another product")
	}
	owned, err := s.repo.Owned(ctx, tx, "products", v.BusinessID, v.ProductID)
	if err != nil {
		return err
	}
	if !owned {
		return domain.ErrInvalidProduct
	}
	if v.Price.IsNegative() ||
		(v.CompareAtPrice != nil && v.CompareAtPrice.IsNegative()) ||
		(v.CostPrice != nil && v.CostPrice.IsNegative()) {
		return domain.ErrNegativePrice
	}
	if v.StockQuantity < 0 {
		return domain.ErrNegativeStock
	}

	taken, err := s.repo.SKUExists(ctx, tx, v.BusinessID, v.SKU, v.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrSKUTaken
	}

	declared, err := s.repo.DeclaredAttributes(ctx, tx, v.ProductID)
	if err != nil {
		return err
	}
	var selectIDs []snowflake.ID
	for _, d := range declared {
		if d.Type == domain.AttributeSelect {
			selectIDs = append(selectIDs, d.AttributeID)
		}
	}
	options, err := s.repo.AttributeOptions(ctx, tx, selectIDs)
	if err != nil {
		return err
	}
	return CheckAttributes(declared, options, v.Attributes.Data())
}

// CheckAttributes validates a variant's attribute bag against the attributes
// declared on its product. Every problem is reported as a detail.
func CheckAttributes(declared []domain.DeclaredAttribute, options map[snowflake.ID][]string, bag attrs.Bag) error {
	byName := make(map[string]domain.DeclaredAttribute, len(declared))
	for _, d := range declared {
		byName[d.Name] = d
	}

	var details []apperror.Detail
	for _, key := range bag.Keys() {
		value := bag[key]
		d, ok := byName[key]
		if !ok {
			details = append(details, apperror.Detail{Field: "attributes." + key, Code: "unknown_attribute", Message: "attribute is not declared on the product"})
			continue
		}
		if value.Kind() != d.Type.Kind() {
			details = append(details, apperror.Detail{Field: "attributes." + key, Code: "invalid_type", Message: "expected a " + string(d.Type.Kind())})
			continue
		}
		if d.Type == domain.AttributeSelect && !contains(options[d.AttributeID], value.Text()) {
			details = append(details, apperror.Detail{Field: "attributes." + key, Code: "invalid_choice", Message: "value is not one of the attribute options"})
		}
	}
	for _, d := range declared {
		if _, ok := bag[d.Name]; d.IsRequired && !ok {
			details = append(details, apperror.Detail{Field: "attributes." + d.Name, Code: "required", Message: "attribute is required"})
		}
	}

	if len(details) > 0 {
		return domain.ErrInvalidAttributes.WithDetails(details...)
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func (s *Service) keepSingleDefault(ctx context.Context, tx *gorm.DB, v *domain.ProductVariant) error {
	if !v.IsDefault {
		return nil
	}
	return s.repo.ClearDefaultVariant(ctx, tx, v.ProductID, v.ID)
}

func (s *Service) presentVariants(ctx context.Context, db *gorm.DB, variants []*domain.ProductVariant) error {
	ids := make([]snowflake.ID, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.ProductID)
	}
	tracked, err := s.repo.TrackedProducts(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, v := range variants {
		v.Discount()
		v.IsInStock = !tracked[v.ProductID] || v.StockQuantity > 0
	}
	return nil
}
