package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/inventory/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) RecordMovement(ctx context.Context, itemID snowflake.ID, req domain.MovementRequest) (*domain.InventoryMovement, error) {
	return s.movements.Create(ctx, movementFrom(itemID, req))
}

func (s *Service) MoveTx(ctx context.Context, tx *gorm.DB, item *domain.InventoryItem, req domain.MovementRequest) (*domain.InventoryMovement, error) {
	m := movementFrom(item.ID, req)
	if err := s.movements.CreateTx(ctx, tx, m); err != nil {
		return nil, err
	}
	item.Quantity = m.NewQuantity
	return m, nil
}

func movementFrom(itemID snowflake.ID, req domain.MovementRequest) *domain.InventoryMovement {
	return &domain.InventoryMovement{
		InventoryItemID: itemID,
		MovementType:    req.MovementType,
		Quantity:        req.Quantity,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		UnitCost:        req.UnitCost,
		Notes:           req.Notes,
	}
}

// applyMovement changes the item's quantity and records the before and after
// values on the movement. Purchases with a unit cost also roll the item's
// weighted average cost.
func (s *Service) applyMovement(ctx context.Context, tx *gorm.DB, m *domain.InventoryMovement) error {
	if !m.MovementType.Valid() {
		return domain.ErrInvalidMovementType
	}
	if m.Quantity == 0 {
		return domain.ErrInvalidQuantity.WithMessage("quantity cannot be zero")
	}
	if m.UnitCost != nil && m.UnitCost.IsNegative() {
		return domain.ErrInvalidQuantity.WithMessage("unit cost cannot be negative")
	}

	before, err := s.items.GetTx(ctx, tx, m.InventoryItemID)
	if err != nil {
		if errors.Is(err, s.items.NotFound()) {
			return domain.ErrInvalidItem
		}
		return err
	}
	applied, err := s.repo.AddQuantity(ctx, tx, before.ID, m.Quantity)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrNegativeStock
	}
	after, err := s.items.GetTx(ctx, tx, before.ID)
	if err != nil {
		return err
	}

	m.NewQuantity = after.Quantity
	m.PreviousQuantity = after.Quantity - m.Quantity
	m.CreatedBy = bizcontext.ActorID(ctx)
	m.TotalCost = nil
	if m.UnitCost != nil {
		total := m.UnitCost.Mul(decimal.NewFromInt(abs(m.Quantity))).Round(2)
		m.TotalCost = &total
	}

	if m.MovementType == domain.MovementPurchase && m.Quantity > 0 && m.UnitCost != nil && after.Quantity > 0 {
		prev := decimal.NewFromInt(m.PreviousQuantity)
		if m.PreviousQuantity < 0 {
			prev = decimal.Zero
		}
		value := after.AverageCost.Mul(prev).Add(m.UnitCost.Mul(decimal.NewFromInt(m.Quantity)))
		after.AverageCost = value.Div(prev.Add(decimal.NewFromInt(m.Quantity))).Round(2)
		if err := tx.WithContext(ctx).Model(after).Update("average_cost", after.AverageCost).Error; err != nil {
			return err
		}
	}

	s.metrics.RecordStockMovement(ctx, string(m.MovementType))
	s.log.Debug("stock movement applied",
		zap.String("inventory_item_id", after.ID.String()),
		zap.String("movement_type", string(m.MovementType)),
		zap.Int64("quantity", m.Quantity),
		zap.Int64("new_quantity", m.NewQuantity),
	)
	return nil
}

func (s *Service) applyAdjustment(ctx context.Context, tx *gorm.DB, a *domain.StockAdjustment) error {
	if !a.Reason.Valid() {
		return domain.ErrInvalidReason
	}
	if a.AdjustmentQuantity == 0 {
		return domain.ErrInvalidQuantity.WithMessage("adjustment cannot be zero")
	}
	item, err := s.items.GetTx(ctx, tx, a.InventoryItemID)
	if err != nil {
		if errors.Is(err, s.items.NotFound()) {
			return domain.ErrInvalidItem
		}
		return err
	}

	number, err := s.refs.Next(ctx, tx, a.BusinessID, referencedomain.DocAdjustment, s.clock.Now())
	if err != nil {
		return err
	}
	a.AdjustmentNumber = number
	a.PerformedBy = bizcontext.ActorID(ctx)

	m, err := s.MoveTx(ctx, tx, item, domain.MovementRequest{
		MovementType:  domain.MovementAdjustment,
		Quantity:      a.AdjustmentQuantity,
		ReferenceType: "stock_adjustment",
		ReferenceID:   number,
		Notes:         string(a.Reason) + ": " + a.Notes,
	})
	if err != nil {
		return err
	}
	a.PreviousQuantity = m.PreviousQuantity
	a.NewQuantity = m.NewQuantity
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
