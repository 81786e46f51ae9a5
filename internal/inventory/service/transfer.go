package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/inventory/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const transferReference = "stock_transfer"

func (s *Service) openTransfer(ctx context.Context, tx *gorm.DB, t *domain.StockTransfer) error {
	now := s.clock.Now()
	number, err := s.refs.Next(ctx, tx, t.BusinessID, referencedomain.DocTransfer, now)
	if err != nil {
		return err
	}
	t.TransferNumber = number
	t.Status = domain.TransferPending
	if t.RequestedDate.IsZero() {
		t.RequestedDate = now
	}
	t.SentDate = nil
	t.ReceivedDate = nil
	t.InitiatedBy = bizcontext.ActorID(ctx)
	return nil
}

func (s *Service) checkTransfer(ctx context.Context, tx *gorm.DB, t, old *domain.StockTransfer) error {
	if old != nil && old.Status != domain.TransferPending {
		return domain.ErrTransferNotPending
	}
	if t.FromWarehouseID == t.ToWarehouseID {
		return domain.ErrSameWarehouse
	}
	for _, id := range []snowflake.ID{t.FromWarehouseID, t.ToWarehouseID} {
		active, err := s.repo.ActiveWarehouse(ctx, tx, t.BusinessID, id)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrInvalidWarehouse
		}
	}
	return nil
}

func (s *Service) dropTransfer(ctx context.Context, tx *gorm.DB, t *domain.StockTransfer) error {
	if t.Status != domain.TransferPending {
		return domain.ErrTransferNotPending
	}
	return tx.WithContext(ctx).Where("transfer_id = ?", t.ID).Delete(&domain.StockTransferItem{}).Error
}

func (s *Service) pendingTransfer(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	t, err := s.transfers.GetTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, s.transfers.NotFound()) {
			return domain.ErrInvalidTransfer
		}
		return err
	}
	if t.Status != domain.TransferPending {
		return domain.ErrTransferNotPending
	}
	return nil
}

func (s *Service) checkTransferItem(ctx context.Context, tx *gorm.DB, item, old *domain.StockTransferItem) error {
	if old != nil && old.TransferID != item.TransferID {
		return domain.ErrInvalidTransfer
	}
	if err := s.pendingTransfer(ctx, tx, item.TransferID); err != nil {
		return err
	}
	return s.checkProductRef(ctx, tx, item.ProductID, item.VariantID)
}

func (s *Service) checkTransferItemDelete(ctx context.Context, tx *gorm.DB, item *domain.StockTransferItem) error {
	return s.pendingTransfer(ctx, tx, item.TransferID)
}

// SendTransfer takes the items out of the source warehouse. Every line is
// checked before anything is moved.
func (s *Service) SendTransfer(ctx context.Context, id snowflake.ID) (*domain.StockTransfer, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, t *domain.StockTransfer, lines []*domain.StockTransferItem) error {
		if t.Status != domain.TransferPending {
			return domain.ErrTransferNotPending
		}
		if len(lines) == 0 {
			return domain.ErrTransferEmpty
		}

		sources := make([]*domain.InventoryItem, len(lines))
		var shortages []apperror.Detail
		for i, line := range lines {
			src, err := s.repo.FindItem(ctx, tx, t.FromWarehouseID, line.ProductID, line.VariantID)
			if err != nil {
				return err
			}
			if src == nil || src.Available() < line.QuantitySent {
				shortages = append(shortages, apperror.Detail{
					Field:   fmt.Sprintf("items[%d].quantity_sent", i),
					Code:    "insufficient_stock",
					Message: fmt.Sprintf("not enough stock for product %s", line.ProductID),
				})
				continue
			}
			sources[i] = src
		}
		if len(shortages) > 0 {
			return domain.ErrInsufficientStock.WithDetails(shortages...)
		}

		for i, line := range lines {
			if _, err := s.MoveTx(ctx, tx, sources[i], domain.MovementRequest{
				MovementType:  domain.MovementTransfer,
				Quantity:      -line.QuantitySent,
				ReferenceType: transferReference,
				ReferenceID:   t.TransferNumber,
			}); err != nil {
				return err
			}
		}
		now := s.clock.Now()
		t.Status = domain.TransferInTransit
		t.SentDate = &now
		return nil
	})
}

// ReceiveTransfer books the received quantities into the destination
// warehouse, creating inventory items that do not exist yet.
func (s *Service) ReceiveTransfer(ctx context.Context, id snowflake.ID, req domain.ReceiveRequest) (*domain.StockTransfer, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, t *domain.StockTransfer, lines []*domain.StockTransferItem) error {
		if t.Status != domain.TransferInTransit {
			return domain.ErrTransferNotInTransit
		}
		known := make(map[snowflake.ID]bool, len(lines))
		for _, line := range lines {
			known[line.ID] = true
		}
		for itemID := range req.Items {
			if !known[itemID] {
				return domain.ErrInvalidReceived.WithMessage("unknown transfer item " + itemID.String())
			}
		}

		for _, line := range lines {
			qty := line.QuantitySent
			if given, ok := req.Items[line.ID]; ok {
				qty = given
			}
			if qty < 0 || qty > line.QuantitySent {
				return domain.ErrInvalidReceived
			}
			line.QuantityReceived = qty
			if err := s.repo.SaveTransferItem(ctx, tx, line); err != nil {
				return err
			}
			if qty == 0 {
				continue
			}

			dest, err := s.destinationItem(ctx, tx, t, line)
			if err != nil {
				return err
			}
			if _, err := s.MoveTx(ctx, tx, dest, domain.MovementRequest{
				MovementType:  domain.MovementTransfer,
				Quantity:      qty,
				ReferenceType: transferReference,
				ReferenceID:   t.TransferNumber,
			}); err != nil {
				return err
			}
		}
		now := s.clock.Now()
		t.Status = domain.TransferCompleted
		t.ReceivedDate = &now
		t.ReceivedBy = bizcontext.ActorID(ctx)
		return nil
	})
}

// CancelTransfer closes a pending transfer, or returns the stock of one in
// transit to its source warehouse.
func (s *Service) CancelTransfer(ctx context.Context, id snowflake.ID) (*domain.StockTransfer, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, t *domain.StockTransfer, lines []*domain.StockTransferItem) error {
		switch t.Status {
		case domain.TransferPending:
		case domain.TransferInTransit:
			for _, line := range lines {
				src, err := s.repo.FindItem(ctx, tx, t.FromWarehouseID, line.ProductID, line.VariantID)
				if err != nil {
					return err
				}
				if src == nil {
					return domain.ErrInvalidItem.WithMessage("source inventory item no longer exists")
				}
				if _, err := s.MoveTx(ctx, tx, src, domain.MovementRequest{
					MovementType:  domain.MovementTransfer,
					Quantity:      line.QuantitySent,
					ReferenceType: transferReference,
					ReferenceID:   t.TransferNumber,
					Notes:         "transfer cancelled",
				}); err != nil {
					return err
				}
			}
		default:
			return domain.ErrTransferFinished
		}
		t.Status = domain.TransferCancelled
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, fn func(tx *gorm.DB, t *domain.StockTransfer, lines []*domain.StockTransferItem) error) (*domain.StockTransfer, error) {
	var transfer *domain.StockTransfer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.transfers.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		lines, err := s.repo.TransferItems(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		from := t.Status
		if err := fn(tx, t, lines); err != nil {
			return err
		}
		t.UpdatedAt = s.clock.Now()
		if err := s.transferStore.WithTrx(tx).Save(ctx, t); err != nil {
			return err
		}
		s.log.Info("stock transfer status changed",
			zap.String("transfer_number", t.TransferNumber),
			zap.String("from", string(from)),
			zap.String("to", string(t.Status)),
		)
		transfer = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

func (s *Service) destinationItem(ctx context.Context, tx *gorm.DB, t *domain.StockTransfer, line *domain.StockTransferItem) (*domain.InventoryItem, error) {
	dest, err := s.repo.FindItem(ctx, tx, t.ToWarehouseID, line.ProductID, line.VariantID)
	if err != nil || dest != nil {
		return dest, err
	}
	dest = &domain.InventoryItem{
		WarehouseID: t.ToWarehouseID,
		ProductID:   line.ProductID,
		VariantID:   line.VariantID,
	}
	src, err := s.repo.FindItem(ctx, tx, t.FromWarehouseID, line.ProductID, line.VariantID)
	if err != nil {
		return nil, err
	}
	if src != nil {
		dest.AverageCost = src.AverageCost
		dest.MinStockLevel = src.MinStockLevel
	}
	if err := s.items.CreateTx(ctx, tx, dest); err != nil {
		return nil, err
	}
	return dest, nil
}
