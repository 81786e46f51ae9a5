package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/inventory/domain"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Service
	Refs    referencedomain.Generator
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	catalog catalogdomain.Service
	refs    referencedomain.Generator
	metrics *metrics.Metrics

	warehouses    *crud.Service[domain.Warehouse, *domain.Warehouse]
	items         *crud.Service[domain.InventoryItem, *domain.InventoryItem]
	movements     *crud.Service[domain.InventoryMovement, *domain.InventoryMovement]
	transfers     *crud.Service[domain.StockTransfer, *domain.StockTransfer]
	transferItems *crud.Service[domain.StockTransferItem, *domain.StockTransferItem]
	adjustments   *crud.Service[domain.StockAdjustment, *domain.StockAdjustment]
	transferStore repository.Repository[domain.StockTransfer]
}

func New(p Params) domain.Service {
	s := &Service{
		db:            p.DB,
		log:           p.Log.Named("inventory.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		catalog:       p.Catalog,
		refs:          p.Refs,
		metrics:       p.Metrics,
		transferStore: repository.ProvideStore[domain.StockTransfer](p.DB),
	}

	s.warehouses = crud.New[domain.Warehouse](p.DB, repository.ProvideStore[domain.Warehouse](p.DB), p.GenID, p.Clock, crud.Config[domain.Warehouse]{
		Name:      "warehouse",
		Defaults:  func(w *domain.Warehouse) { w.IsActive = true },
		Validate:  s.checkWarehouse,
		AfterSave: s.keepSingleMain,
	})
	s.items = crud.New[domain.InventoryItem](p.DB, repository.ProvideStore[domain.InventoryItem](p.DB), p.GenID, p.Clock, crud.Config[domain.InventoryItem]{
		Name:     "inventory_item",
		ReadOnly: domain.ItemReadOnly,
		Validate: s.checkItem,
		Present: func(_ context.Context, _ *gorm.DB, items []*domain.InventoryItem) error {
			for _, item := range items {
				item.Compute()
			}
			return nil
		},
	})
	s.movements = crud.New[domain.InventoryMovement](p.DB, repository.ProvideStore[domain.InventoryMovement](p.DB), p.GenID, p.Clock, crud.Config[domain.InventoryMovement]{
		Name:         "inventory_movement",
		ReadOnly:     domain.MovementReadOnly,
		AppendOnly:   true,
		BeforeCreate: s.applyMovement,
	})
	s.transfers = crud.New[domain.StockTransfer](p.DB, s.transferStore, p.GenID, p.Clock, crud.Config[domain.StockTransfer]{
		Name:         "stock_transfer",
		ReadOnly:     domain.TransferReadOnly,
		BeforeCreate: s.openTransfer,
		Validate:     s.checkTransfer,
		BeforeDelete: s.dropTransfer,
	})
	s.transferItems = crud.New[domain.StockTransferItem](p.DB, repository.ProvideStore[domain.StockTransferItem](p.DB), p.GenID, p.Clock, crud.Config[domain.StockTransferItem]{
		Name:         "stock_transfer_item",
		ReadOnly:     domain.TransferItemRO,
		Validate:     s.checkTransferItem,
		BeforeDelete: s.checkTransferItemDelete,
	})
	s.adjustments = crud.New[domain.StockAdjustment](p.DB, repository.ProvideStore[domain.StockAdjustment](p.DB), p.GenID, p.Clock, crud.Config[domain.StockAdjustment]{
		Name:         "stock_adjustment",
		ReadOnly:     domain.AdjustmentReadOnly,
		AppendOnly:   true,
		BeforeCreate: s.applyAdjustment,
	})
	return s
}

func (s *Service) Warehouses() crud.Store[domain.Warehouse] { return s.warehouses }
func (s *Service) Items() crud.Store[domain.InventoryItem] { return s.items }
func (s *Service) Movements() crud.Store[domain.InventoryMovement] { return s.movements }
func (s *Service) Transfers() crud.Store[domain.StockTransfer] { return s.transfers }
func (s *Service) TransferItems() crud.Store[domain.StockTransferItem] { return s.transferItems }
func (s *Service) Adjustments() crud.Store[domain.StockAdjustment] { return s.adjustments }

func (s *Service) checkWarehouse(ctx context.Context, tx *gorm.DB, w, _ *domain.Warehouse) error {
	taken, err := s.repo.CodeExists(ctx, tx, w.BusinessID, w.Code, w.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrCodeTaken
	}
	return nil
}

// keepSingleMain demotes the previous main warehouse.
func (s *Service) keepSingleMain(ctx context.Context, tx *gorm.DB, w *domain.Warehouse) error {
	if !w.IsMain {
		return nil
	}
	return s.repo.ClearMainWarehouse(ctx, tx, w.BusinessID, w.ID)
}

func (s *Service) checkItem(ctx context.Context, tx *gorm.DB, item, old *domain.InventoryItem) error {
	if old != nil {
		if old.WarehouseID != item.WarehouseID || old.ProductID != item.ProductID || !sameID(old.VariantID, item.VariantID) {
			return domain.ErrInvalidItem.WithMessage("warehouse, product and variant cannot change")
		}
		if old.Quantity != item.Quantity || old.ReservedQuantity != item.ReservedQuantity {
			return domain.ErrQuantityViaMovements
		}
		return nil
	}

	if item.Quantity < 0 || item.ReservedQuantity < 0 || item.ReservedQuantity > item.Quantity {
		return domain.ErrNegativeStock
	}
	active, err := s.repo.ActiveWarehouse(ctx, tx, item.BusinessID, item.WarehouseID)
	if err != nil {
		return err
	}
	if !active {
		return domain.ErrInvalidWarehouse
	}
	if err := s.checkProductRef(ctx, tx, item.ProductID, item.VariantID); err != nil {
		return err
	}
	existing, err := s.repo.FindItem(ctx, tx, item.WarehouseID, item.ProductID, item.VariantID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != item.ID {
		return domain.ErrItemExists
	}
	return nil
}

// checkProductRef verifies the product belongs to the business and the variant,
// when given, belongs to the product.
func (s *Service) checkProductRef(ctx context.Context, tx *gorm.DB, productID snowflake.ID, variantID *snowflake.ID) error {
	if _, err := s.catalog.ProductTx(ctx, tx, productID); err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return domain.ErrInvalidProduct
		}
		return err
	}
	if variantID == nil {
		return nil
	}
	variant, err := s.catalog.VariantTx(ctx, tx, *variantID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrVariantNotFound) {
			return domain.ErrInvalidVariant
		}
		return err
	}
	if variant.ProductID != productID {
		return domain.ErrInvalidVariant
	}
	return nil
}

func (s *Service) Reserve(ctx context.Context, itemID snowflake.ID, qty int64) (*domain.InventoryItem, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return s.withItem(ctx, itemID, func(tx *gorm.DB) error {
		ok, err := s.repo.Reserve(ctx, tx, itemID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientStock
		}
		return nil
	})
}

func (s *Service) ReleaseReservation(ctx context.Context, itemID snowflake.ID, qty int64) (*domain.InventoryItem, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return s.withItem(ctx, itemID, func(tx *gorm.DB) error {
		return s.repo.Release(ctx, tx, itemID, qty)
	})
}

// withItem runs fn in a transaction after checking the item is visible to the
// business, then returns the reloaded item.
func (s *Service) withItem(ctx context.Context, itemID snowflake.ID, fn func(tx *gorm.DB) error) (*domain.InventoryItem, error) {
	var item *domain.InventoryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.items.GetTx(ctx, tx, itemID); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		item, err = s.items.GetTx(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	item.Compute()
	return item, nil
}

func (s *Service) FindItemTx(ctx context.Context, tx *gorm.DB, warehouseID, productID snowflake.ID, variantID *snowflake.ID) (*domain.InventoryItem, error) {
	return s.repo.FindItem(ctx, tx, warehouseID, productID, variantID)
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
