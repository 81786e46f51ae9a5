package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"gorm.io/gorm"
)

// stockLine is the demand on one stock source: a product, or a variant of a
// product that has variants. Items sharing a source are summed.
type stockLine struct {
	index     int
	productID snowflake.ID
	variantID *snowflake.ID
	name      string
	quantity  int64
	available int64
}

func (l *stockLine) shortage() apperror.Detail {
	return apperror.Detail{
		Field:   fmt.Sprintf("items[%d].quantity", l.index),
		Code:    domain.ErrInsufficientStock.Code,
		Message: fmt.Sprintf("%s: %d requested, %d available", l.name, l.quantity, l.available),
	}
}

// stockLines groups the tracked items of an order by stock source.
func (s *Service) stockLines(ctx context.Context, tx *gorm.DB, items []*domain.OrderItem) ([]*stockLine, error) {
	var lines []*stockLine
	byKey := make(map[string]*stockLine)
	for i, it := range items {
		product, err := s.catalog.ProductTx(ctx, tx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrProductNotFound) {
				return nil, itemError(i, domain.ErrInvalidProduct)
			}
			return nil, err
		}
		if !product.TrackInventory {
			continue
		}

		line := &stockLine{index: i, productID: product.ID, name: product.Name, available: product.StockQuantity}
		key := product.ID.String()
		if product.HasVariants {
			if it.VariantID == nil {
				return nil, itemError(i, domain.ErrVariantRequired)
			}
			variant, err := s.catalog.VariantTx(ctx, tx, *it.VariantID)
			if err != nil {
				if errors.Is(err, catalogdomain.ErrVariantNotFound) {
					return nil, itemError(i, domain.ErrInvalidVariant)
				}
				return nil, err
			}
			line.variantID = it.VariantID
			line.name = product.Name + " - " + variant.Name
			line.available = variant.StockQuantity
			key += "/" + variant.ID.String()
		}

		if existing, ok := byKey[key]; ok {
			existing.quantity += it.Quantity
			continue
		}
		line.quantity = it.Quantity
		byKey[key] = line
		lines = append(lines, line)
	}
	return lines, nil
}

// deductStock checks every line before touching any stock, then deducts the
// catalog stock and, when the order ships from a warehouse that stocks the
// item, the warehouse quantity with a sale movement. It returns low-stock notices.
func (s *Service) deductStock(ctx context.Context, tx *gorm.DB, o *domain.Order, items []*domain.OrderItem) ([]string, error) {
	lines, err := s.stockLines(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	var shortages []apperror.Detail
	for _, line := range lines {
		if line.available < line.quantity {
			shortages = append(shortages, line.shortage())
			continue
		}
		short, err := s.warehouseShortage(ctx, tx, o, line)
		if err != nil {
			return nil, err
		}
		if short != nil {
			shortages = append(shortages, *short)
		}
	}
	if len(shortages) > 0 {
		return nil, domain.ErrInsufficientStock.WithDetails(shortages...)
	}

	var alerts []string
	for _, line := range lines {
		ok, err := s.catalog.AdjustStock(ctx, tx, line.productID, line.variantID, -line.quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrInsufficientStock.WithDetails(line.shortage())
		}
		if line.available-line.quantity <= 0 {
			alerts = append(alerts, line.name+" is out of stock")
		}

		item, err := s.moveWarehouse(ctx, tx, o, line, -line.quantity, inventorydomain.MovementSale)
		if err != nil {
			return nil, err
		}
		if item != nil && item.LowStock() {
			alerts = append(alerts, fmt.Sprintf("%s has %d left in the warehouse", line.name, item.Quantity))
		}
	}
	return alerts, nil
}

// releaseStock returns what deductStock took. It is a no-op for orders that
// never held stock.
func (s *Service) releaseStock(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	if !o.StockDeducted {
		return nil
	}
	items, err := s.repo.Items(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	lines, err := s.stockLines(ctx, tx, items)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := s.catalog.AdjustStock(ctx, tx, line.productID, line.variantID, line.quantity); err != nil {
			return err
		}
		if _, err := s.moveWarehouse(ctx, tx, o, line, line.quantity, inventorydomain.MovementReturn); err != nil {
			return err
		}
	}
	o.StockDeducted = false
	return nil
}

// warehouseShortage reports a line the order's warehouse cannot cover.
func (s *Service) warehouseShortage(ctx context.Context, tx *gorm.DB, o *domain.Order, line *stockLine) (*apperror.Detail, error) {
	if o.WarehouseID == nil {
		return nil, nil
	}
	item, err := s.inventory.FindItemTx(ctx, tx, *o.WarehouseID, line.productID, line.variantID)
	if err != nil || item == nil || item.Quantity >= line.quantity {
		return nil, err
	}
	inWarehouse := *line
	inWarehouse.available = item.Quantity
	detail := inWarehouse.shortage()
	return &detail, nil
}

func (s *Service) moveWarehouse(ctx context.Context, tx *gorm.DB, o *domain.Order, line *stockLine, qty int64, kind inventorydomain.MovementType) (*inventorydomain.InventoryItem, error) {
	if o.WarehouseID == nil {
		return nil, nil
	}
	item, err := s.inventory.FindItemTx(ctx, tx, *o.WarehouseID, line.productID, line.variantID)
	if err != nil || item == nil {
		return nil, err
	}
	_, err = s.inventory.MoveTx(ctx, tx, item, inventorydomain.MovementRequest{
		MovementType:  kind,
		Quantity:      qty,
		ReferenceType: "order",
		ReferenceID:   o.OrderNumber,
	})
	if errors.Is(err, inventorydomain.ErrNegativeStock) {
		line.available = item.Quantity
		return nil, domain.ErrInsufficientStock.WithDetails(line.shortage())
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
