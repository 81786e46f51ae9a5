package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"gorm.io/gorm"
)

func (s *Service) checkProduct(ctx context.Context, tx *gorm.DB, p, _ *domain.Product) error {
	if !p.ProductType.Valid() {
		return domain.ErrInvalidProductType
	}
	if p.ProductType == domain.ProductService {
		p.IsService = true
	}
	if p.BasePrice.IsNegative() || (p.CostPrice != nil && p.CostPrice.IsNegative()) {
		return domain.ErrNegativePrice
	}
	if p.StockQuantity < 0 {
		return domain.ErrNegativeStock
	}
	if p.CategoryID != nil {
		owned, err := s.repo.Owned(ctx, tx, "categories", p.BusinessID, *p.CategoryID)
		if err != nil {
			return err
		}
		if !owned {
			return domain.ErrInvalidCategory
		}
	}

	value, err := s.uniqueSlug(ctx, tx, "products", p.BusinessID, p.ID, p.Slug, p.Name)
	if err != nil {
		return err
	}
	p.Slug = value
	return nil
}

func (s *Service) deleteVariants(ctx context.Context, tx *gorm.DB, p *domain.Product) error {
	return s.repo.DeleteVariants(ctx, tx, p.ID, s.clock.Now())
}

// presentProducts fills price and is_in_stock. Price is the first active
// variant's price for products with variants, else the base price.
func (s *Service) presentProducts(ctx context.Context, db *gorm.DB, products []*domain.Product) error {
	var withVariants []snowflake.ID
	for _, p := range products {
		if p.HasVariants {
			withVariants = append(withVariants, p.ID)
		}
	}
	variants, err := s.repo.ActiveVariants(ctx, db, withVariants)
	if err != nil {
		return err
	}
	byProduct := make(map[snowflake.ID][]*domain.ProductVariant, len(withVariants))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}

	for _, p := range products {
		p.Price = p.BasePrice
		p.IsInStock = p.StockQuantity > 0
		if p.HasVariants {
			list := byProduct[p.ID]
			if len(list) > 0 {
				p.Price = list[0].Price
			}
			p.IsInStock = false
			for _, v := range list {
				if v.StockQuantity > 0 {
					p.IsInStock = true
					break
				}
			}
		}
		if !p.TrackInventory {
			p.IsInStock = true
		}
	}
	return nil
}
