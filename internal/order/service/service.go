package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/crud"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/internal/providers/pdf"
	"github.com/smallbiznis/bizcore/internal/ratelimit"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Catalog   catalogdomain.Service
	Inventory inventorydomain.Service
	Customers customerdomain.Service
	Refs      referencedomain.Generator
	Notifier  notificationdomain.Service `optional:"true"`
	Locker    *ratelimit.Locker          `optional:"true"`
	Tunables  *config.TunablesHolder     `optional:"true"`
	Metrics   *metrics.Metrics           `optional:"true"`
	PDF       pdf.Renderer               `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	catalog   catalogdomain.Service
	inventory inventorydomain.Service
	customers customerdomain.Service
	refs      referencedomain.Generator
	notifier  notificationdomain.Service
	locker    *ratelimit.Locker
	tunables  *config.TunablesHolder
	metrics   *metrics.Metrics
	pdf       pdf.Renderer

	orders   *crud.Service[domain.Order, *domain.Order]
	items    *crud.Service[domain.OrderItem, *domain.OrderItem]
	history  *crud.Service[domain.OrderStatusHistory, *domain.OrderStatusHistory]
	payments *crud.Service[domain.OrderPayment, *domain.OrderPayment]
	refunds  *crud.Service[domain.OrderRefund, *domain.OrderRefund]
}

func New(p Params) domain.Service {
	s := &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		catalog:   p.Catalog,
		inventory: p.Inventory,
		customers: p.Customers,
		refs:      p.Refs,
		notifier:  p.Notifier,
		locker:    p.Locker,
		tunables:  p.Tunables,
		metrics:   p.Metrics,
		pdf:       p.PDF,
	}
	if s.pdf == nil {
		s.pdf = pdf.New()
	}

	s.orders = crud.New[domain.Order](p.DB, repository.ProvideStore[domain.Order](p.DB), p.GenID, p.Clock, crud.Config[domain.Order]{
		Name:     "order",
		ReadOnly: domain.OrderReadOnly,
		Defaults: func(o *domain.Order) {
			o.OrderType = domain.TypeInStore
			o.Status = domain.StatusPending
		},
		BeforeCreate: s.openOrder,
		Validate:     s.checkOrder,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
			if o.StockDeducted {
				return domain.ErrInvalidTransition.WithMessage("cancel the order before deleting it")
			}
			return nil
		},
	})
	s.items = crud.New[domain.OrderItem](p.DB, repository.ProvideStore[domain.OrderItem](p.DB), p.GenID, p.Clock, crud.Config[domain.OrderItem]{
		Name:     "order_item",
		ReadOnly: domain.ItemReadOnly,
		Validate: s.checkItem,
		AfterSave: func(ctx context.Context, tx *gorm.DB, it *domain.OrderItem) error {
			return s.resum(ctx, tx, it.OrderID)
		},
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, it *domain.OrderItem) error {
			_, err := s.editableOrder(ctx, tx, it.OrderID)
			return err
		},
		AfterDelete: func(ctx context.Context, tx *gorm.DB, it *domain.OrderItem) error {
			return s.resum(ctx, tx, it.OrderID)
		},
	})
	s.history = crud.New[domain.OrderStatusHistory](p.DB, repository.ProvideStore[domain.OrderStatusHistory](p.DB), p.GenID, p.Clock, crud.Config[domain.OrderStatusHistory]{
		Name:       "order_status_history",
		AppendOnly: true,
	})
	s.payments = crud.New[domain.OrderPayment](p.DB, repository.ProvideStore[domain.OrderPayment](p.DB), p.GenID, p.Clock, crud.Config[domain.OrderPayment]{
		Name:     "order_payment",
		ReadOnly: domain.PaymentReadOnly,
		Defaults: func(pay *domain.OrderPayment) {
			pay.PaymentMethod = domain.MethodCash
			pay.Status = domain.PaymentPending
		},
		Validate: s.checkPayment,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, pay *domain.OrderPayment) error {
			if pay.Status != domain.PaymentPending {
				return domain.ErrPaymentImmutable
			}
			return nil
		},
	})
	s.refunds = crud.New[domain.OrderRefund](p.DB, repository.ProvideStore[domain.OrderRefund](p.DB), p.GenID, p.Clock, crud.Config[domain.OrderRefund]{
		Name:     "order_refund",
		ReadOnly: domain.RefundReadOnly,
		Defaults: func(r *domain.OrderRefund) {
			r.Reason = domain.ReasonCustomerRequest
			r.Status = domain.RefundPending
		},
		BeforeCreate: s.openRefund,
		Validate:     s.checkRefund,
		BeforeDelete: func(ctx context.Context, tx *gorm.DB, r *domain.OrderRefund) error {
			if r.Status != domain.RefundPending {
				return domain.ErrRefundImmutable
			}
			return nil
		},
	})
	return s
}

func (s *Service) Orders() crud.Store[domain.Order] { return &orderStore{svc: s} }
func (s *Service) Items() crud.Store[domain.OrderItem] { return s.items }
func (s *Service) History() crud.Store[domain.OrderStatusHistory] { return s.history }
func (s *Service) Payments() crud.Store[domain.OrderPayment] { return s.payments }
func (s *Service) Refunds() crud.Store[domain.OrderRefund] { return s.refunds }

func (s *Service) openOrder(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	now := s.clock.Now()
	number, err := s.refs.Next(ctx, tx, o.BusinessID, referencedomain.DocOrder, now)
	if err != nil {
		return err
	}
	o.OrderNumber = number
	o.OrderDate = now
	o.CreatedBy = bizcontext.ActorID(ctx)
	o.Subtotal = decimal.Zero
	o.DiscountAmount = decimal.Zero
	o.TaxAmount = decimal.Zero
	o.StockDeducted = false
	o.ConfirmedAt, o.CompletedAt, o.CancelledAt = nil, nil, nil

	if o.CustomerID != nil && o.CustomerName == "" {
		customer, err := s.customers.GetTx(ctx, tx, *o.CustomerID)
		if err != nil {
			if errors.Is(err, customerdomain.ErrNotFound) {
				return domain.ErrInvalidCustomer
			}
			return err
		}
		o.CustomerName = customer.FullName()
		if o.CustomerEmail == "" {
			o.CustomerEmail = customer.Email
		}
		if o.CustomerPhone == "" {
			o.CustomerPhone = customer.Phone
		}
	}
	return nil
}

func (s *Service) checkOrder(ctx context.Context, tx *gorm.DB, o, old *domain.Order) error {
	if !o.OrderType.Valid() {
		return domain.ErrInvalidOrderType
	}
	if !o.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	if old == nil && !o.Status.Editable() {
		return domain.ErrInvalidInitial
	}
	if o.ShippingCost.IsNegative() {
		return domain.ErrNegativeShipping
	}
	if old != nil && !old.Status.Editable() {
		if !o.ShippingCost.Equal(old.ShippingCost) || !sameID(o.WarehouseID, old.WarehouseID) || !sameID(o.CustomerID, old.CustomerID) {
			return domain.ErrOrderLocked.WithMessage("customer, warehouse and shipping are fixed once the order is confirmed")
		}
	}

	if o.CustomerID != nil && (old == nil || !sameID(o.CustomerID, old.CustomerID)) {
		ok, err := s.customers.Exists(ctx, tx, *o.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}
	}
	if o.WarehouseID != nil && (old == nil || !sameID(o.WarehouseID, old.WarehouseID)) {
		ok, err := s.repo.Owned(ctx, tx, "warehouses", o.BusinessID, *o.WarehouseID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidWarehouse
		}
	}

	o.Total = orderTotal(o)
	return nil
}

func orderTotal(o *domain.Order) decimal.Decimal {
	return o.Subtotal.Sub(o.DiscountAmount).Add(o.TaxAmount).Add(o.ShippingCost).Round(2)
}

// resum recomputes the order's money columns from its items.
func (s *Service) resum(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) error {
	o, err := s.orders.GetTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	items, err := s.repo.Items(ctx, tx, orderID)
	if err != nil {
		return err
	}

	o.Subtotal, o.DiscountAmount, o.TaxAmount = decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		o.Subtotal = o.Subtotal.Add(it.Subtotal)
		o.DiscountAmount = o.DiscountAmount.Add(it.DiscountAmount)
		o.TaxAmount = o.TaxAmount.Add(it.TaxAmount)
	}
	o.Total = orderTotal(o)
	o.UpdatedAt = s.clock.Now()
	return s.repo.UpdateOrder(ctx, tx, o, "subtotal", "discount_amount", "tax_amount", "total")
}

func (s *Service) loadOrder(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	o, err := s.orders.GetTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrInvalidOrder
		}
		return nil, err
	}
	return o, nil
}

func (s *Service) editableOrder(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	o, err := s.loadOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Editable() {
		return nil, domain.ErrOrderLocked
	}
	return o, nil
}

// orderStore adds nested items to the generic order store.
type orderStore struct {
	svc *Service
}

func (o *orderStore) New() *domain.Order { return o.svc.orders.New() }

func (o *orderStore) Build(body map[string]json.RawMessage) (*domain.Order, error) {
	order, err := o.svc.orders.Build(body)
	if err != nil {
		return nil, err
	}
	if raw, ok := body["status"]; ok {
		if err := json.Unmarshal(raw, &order.Status); err != nil {
			return nil, crud.DecodeError(err)
		}
	}
	if raw, ok := body["items"]; ok {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, crud.DecodeError(err)
		}
		for _, fields := range items {
			it, err := o.svc.items.Build(fields)
			if err != nil {
				return nil, err
			}
			order.Items = append(order.Items, it)
		}
	}
	return order, nil
}

func (o *orderStore) List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*domain.Order, *pagination.PageInfo, error) {
	return o.svc.orders.List(ctx, page, opts...)
}

func (o *orderStore) Get(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	order, err := o.svc.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Items, err = o.svc.repo.Items(ctx, o.svc.db, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

// Create stores the order and its items in one transaction.
func (o *orderStore) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return o.svc.orders.Create(ctx, nil)
	}
	items := order.Items
	order.Items = nil
	err := o.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := o.svc.orders.CreateTx(ctx, tx, order); err != nil {
			return err
		}
		for i, it := range items {
			it.OrderID = order.ID
			if err := o.svc.items.CreateTx(ctx, tx, it); err != nil {
				return itemError(i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o.Get(ctx, order.ID)
}

func (o *orderStore) Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*domain.Order, error) {
	return o.svc.orders.Update(ctx, id, patch)
}

func (o *orderStore) Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*domain.Order, error) {
	return o.svc.orders.Replace(ctx, id, body)
}

func (o *orderStore) Delete(ctx context.Context, id snowflake.ID) error {
	return o.svc.orders.Delete(ctx, id)
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
