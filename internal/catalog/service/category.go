package service

import (
	"context"

	"github.com/smallbiznis/bizcore/internal/catalog/domain"
	"gorm.io/gorm"
)

const maxCategoryDepth = 32

func (s *Service) checkCategory(ctx context.Context, tx *gorm.DB, c, _ *domain.Category) error {
	if c.ParentID != nil {
		if *c.ParentID == c.ID {
			return domain.ErrInvalidParent
		}
		owned, err := s.repo.Owned(ctx, tx, "categories", c.BusinessID, *c.ParentID)
		if err != nil {
			return err
		}
		if !owned {
			return domain.ErrInvalidParent
		}
		// Walk up from the new parent; reaching c means the move creates a cycle.
		next := c.ParentID
		for depth := 0; next != nil; depth++ {
			if *next == c.ID || depth > maxCategoryDepth {
				return domain.ErrInvalidParent
			}
			if next, err = s.repo.ParentOf(ctx, tx, *next); err != nil {
				return err
			}
		}
	}

	value, err := s.uniqueSlug(ctx, tx, "categories", c.BusinessID, c.ID, c.Slug, c.Name)
	if err != nil {
		return err
	}
	c.Slug = value
	return nil
}

// detachCategory moves subcategories up one level and leaves products uncategorized.
func (s *Service) detachCategory(ctx context.Context, tx *gorm.DB, c *domain.Category) error {
	return s.repo.DetachCategory(ctx, tx, c.BusinessID, c.ID, c.ParentID)
}
