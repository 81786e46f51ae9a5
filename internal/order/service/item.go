package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// checkItem resolves the product and variant, snapshots their names and
// prices, and recomputes the line totals.
func (s *Service) checkItem(ctx context.Context, tx *gorm.DB, it, old *domain.OrderItem) error {
	if old != nil && old.OrderID != it.OrderID {
		return domain.ErrInvalidOrder.WithMessage("items cannot move between orders")
	}
	if _, err := s.editableOrder(ctx, tx, it.OrderID); err != nil {
		return err
	}

	product, err := s.catalog.ProductTx(ctx, tx, it.ProductID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return domain.ErrInvalidProduct
		}
		return err
	}
	var variant *catalogdomain.ProductVariant
	if it.VariantID != nil {
		variant, err = s.catalog.VariantTx(ctx, tx, *it.VariantID)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrVariantNotFound) {
				return domain.ErrInvalidVariant
			}
			return err
		}
		if variant.ProductID != product.ID {
			return domain.ErrInvalidVariant
		}
	} else if product.HasVariants {
		return domain.ErrVariantRequired
	}

	if it.UnitPrice.IsNegative() {
		return domain.ErrInvalidUnitPrice
	}
	if it.UnitPrice.IsZero() {
		it.UnitPrice = product.BasePrice
		if variant != nil {
			it.UnitPrice = variant.Price
		}
	}
	if it.DiscountPercentage.IsNegative() || it.DiscountPercentage.GreaterThan(hundred) {
		return domain.ErrInvalidDiscount
	}
	if it.TaxPercentage.IsNegative() || it.TaxPercentage.GreaterThan(hundred) {
		return domain.ErrInvalidTax
	}

	it.ProductName = product.Name
	it.ProductSKU = product.SKU
	it.VariantName = ""
	if variant != nil {
		it.VariantName = variant.Name
		it.ProductSKU = variant.SKU
	}
	it.ComputeTotals()
	return nil
}

// itemError points a validation failure at its position in a nested items array.
func itemError(index int, err error) error {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindValidation {
		return err
	}
	return appErr.WithDetails(apperror.Detail{
		Field:   fmt.Sprintf("items[%d].%s", index, appErr.Field),
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}
