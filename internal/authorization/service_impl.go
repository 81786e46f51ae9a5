package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleCashier  = "cashier"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

const (
	ResourceBusiness           = "business"
	ResourceMember             = "business_member"
	ResourceCustomer           = "customer"
	ResourceCategory           = "category"
	ResourceProduct            = "product"
	ResourceProductVariant     = "product_variant"
	ResourceAttribute          = "attribute"
	ResourceWarehouse          = "warehouse"
	ResourceInventory          = "inventory"
	ResourceStockTransfer      = "stock_transfer"
	ResourceStockAdjustment    = "stock_adjustment"
	ResourceOrder              = "order"
	ResourceOrderItem          = "order_item"
	ResourceOrderPayment       = "order_payment"
	ResourceOrderRefund        = "order_refund"
	ResourceServiceProvider    = "service_provider"
	ResourceReservation        = "reservation"
	ResourceReservationService = "reservation_service"
	ResourceAvailability       = "provider_availability"
	ResourceWaitingList        = "waiting_list"
	ResourceAccount            = "account"
	ResourceTransaction        = "transaction"
	ResourceInvoice            = "invoice"
	ResourceExpense            = "expense"
	ResourcePaymentTerm        = "payment_term"
	ResourcePayment            = "payment"
	ResourceNotification       = "notification"
	ResourceAnalytics          = "analytics"
)

// frontlineResources are the ones every role may write, so staff on the floor can ring up sales and book visits.
var frontlineResources = []string{
	ResourceOrder,
	ResourceOrderItem,
	ResourceOrderPayment,
	ResourceOrderRefund,
	ResourceReservation,
	ResourceReservationService,
	ResourceWaitingList,
	ResourceCustomer,
	ResourceNotification,
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Can resolves in order: staff, membership, owner, per-member overrides, role policy.
func (s *ServiceImpl) Can(ctx context.Context, actor bizcontext.Actor, membership *bizcontext.Membership, resource, action string) (bool, error) {
	if actor.UserID == 0 {
		return false, ErrInvalidActor
	}
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return false, ErrInvalidResource
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}

	if actor.IsStaff {
		return true, nil
	}
	if membership == nil || !membership.IsActive || membership.BusinessID == 0 {
		return false, ErrNotMember
	}

	role := strings.ToLower(strings.TrimSpace(membership.Role))
	if role == RoleOwner {
		return true, nil
	}

	if allowed, ok := membership.Permissions[resource+"."+action]; ok {
		return allowed, nil
	}
	if allowed, ok := membership.Permissions[resource]; ok {
		return allowed, nil
	}

	// Roles come from the membership row; casbin only stores role policies.
	domain := fmt.Sprintf("business:%s", membership.BusinessID.String())
	return s.enforcer.Enforce("role:"+role, domain, resource, action)
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor bizcontext.Actor, membership *bizcontext.Membership, resource, action string) error {
	allowed, err := s.Can(ctx, actor, membership, resource, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("user_id", actor.UserID.String()),
			zap.String("resource", resource),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:owner", "*", "*"},
		{"role:admin", "*", "*"},
		{"role:manager", "*", ActionRead},
		{"role:employee", "*", ActionRead},
		{"role:cashier", "*", ActionRead},
	}
	for _, role := range []string{RoleManager, RoleEmployee, RoleCashier} {
		for _, resource := range frontlineResources {
			policies = append(policies, []string{"role:" + role, resource, ActionWrite})
		}
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
