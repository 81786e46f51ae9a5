package service

import (
	"context"
	"errors"

	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"gorm.io/gorm"
)

func (s *Service) checkAttribute(ctx context.Context, tx *gorm.DB, a, _ *domain.Attribute) error {
	if !a.Type.Valid() {
		return domain.ErrInvalidAttrType
	}
	taken, err := s.repo.AttributeNameExists(ctx, tx, a.BusinessID, a.Name, a.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrAttributeNameTaken
	}
	return nil
}

func (s *Service) checkAttributeValue(ctx context.Context, tx *gorm.DB, v, _ *domain.AttributeValue) error {
	attribute, err := s.attributes.GetTx(ctx, tx, v.AttributeID)
	if err != nil {
		if errors.Is(err, s.attributes.NotFound()) {
			return domain.ErrInvalidAttribute
		}
		return err
	}
	if attribute.Type != domain.AttributeSelect && attribute.Type != domain.AttributeColor {
		return domain.ErrAttributeValueOwner
	}
	return nil
}

func (s *Service) checkProductAttribute(ctx context.Context, tx *gorm.DB, pa, _ *domain.ProductAttribute) error {
	owned, err := s.repo.Owned(ctx, tx, "products", pa.BusinessID, pa.ProductID)
	if err != nil {
		return err
	}
	if !owned {
		return domain.ErrInvalidProduct
	}
	if owned, err = s.repo.Owned(ctx, tx, "attributes", pa.BusinessID, pa.AttributeID); err != nil {
		return err
	}
	if !owned {
		return domain.ErrInvalidAttribute
	}
	dup, err := s.repo.ProductAttributeExists(ctx, tx, pa.ProductID, pa.AttributeID, pa.ID)
	if err != nil {
		return err
	}
	if dup {
		return domain.ErrProductAttrExists
	}
	return nil
}
