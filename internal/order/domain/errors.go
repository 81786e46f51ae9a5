package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrOrderNotFound = apperror.NotFound("order_not_found")

	ErrInvalidOrder      = apperror.Validation("order_id", "invalid_order", "unknown order")
	ErrInvalidCustomer   = apperror.Validation("customer_id", "invalid_customer", "customer must belong to this business")
	ErrInvalidWarehouse  = apperror.Validation("warehouse_id", "invalid_warehouse", "warehouse must belong to this business")
	ErrInvalidOrderType  = apperror.Validation("order_type", "invalid_order_type", "invalid order type")
	ErrInvalidStatus     = apperror.Validation("status", "invalid_status", "invalid status")
	ErrInvalidInitial    = apperror.Validation("status", "invalid_initial_status", "orders start as draft or pending")
	ErrInvalidTransition = apperror.Validation("status", "invalid_transition", "status change not allowed")
	ErrNotPending        = apperror.Validation("status", "order_not_pending", "only pending orders can be confirmed")
	ErrNotDraft          = apperror.Validation("status", "order_not_draft", "only draft orders can be submitted")
	ErrOrderLocked       = apperror.Validation("order_id", "order_locked", "items can only change while the order is draft or pending")
	ErrEmptyOrder        = apperror.Validation("items", "empty_order", "order has no items")
	ErrNegativeShipping  = apperror.Validation("shipping_cost", "invalid_shipping_cost", "shipping cost cannot be negative")
	ErrNoReceipt         = apperror.Validation("status", "receipt_unavailable", "receipts are issued for confirmed orders only")

	ErrInvalidProduct    = apperror.Validation("product_id", "invalid_product", "product must belong to this business")
	ErrVariantRequired   = apperror.Validation("variant_id", "variant_required", "this product requires a variant")
	ErrInvalidVariant    = apperror.Validation("variant_id", "invalid_variant", "variant does not belong to the product")
	ErrInvalidUnitPrice  = apperror.Validation("unit_price", "invalid_unit_price", "unit price cannot be negative")
	ErrInvalidDiscount   = apperror.Validation("discount_percentage", "invalid_discount_percentage", "discount must be between 0 and 100")
	ErrInvalidTax        = apperror.Validation("tax_percentage", "invalid_tax_percentage", "tax must be between 0 and 100")
	ErrInsufficientStock = apperror.Validation("items", "insufficient_stock", "insufficient stock")

	ErrInvalidMethod     = apperror.Validation("payment_method", "invalid_payment_method", "invalid payment method")
	ErrInvalidAmount     = apperror.Validation("amount", "invalid_amount", "amount must be greater than zero")
	ErrPaymentNotPending = apperror.Validation("status", "payment_not_pending", "only pending payments can be completed")
	ErrOrderClosed       = apperror.Validation("order_id", "order_closed", "order no longer accepts payments")

	ErrInvalidReason     = apperror.Validation("reason", "invalid_reason", "invalid refund reason")
	ErrRefundExceedsPaid = apperror.Validation("amount", "refund_exceeds_paid", "refund exceeds the amount paid")
	ErrRefundNotPending  = apperror.Validation("status", "refund_not_pending", "only pending refunds can be reviewed")
	ErrRefundNotApproved = apperror.Validation("status", "refund_not_approved", "only approved refunds can be processed")
	ErrPaymentImmutable  = apperror.Validation("status", "payment_immutable", "completed payments cannot be changed")
	ErrRefundImmutable   = apperror.Validation("status", "refund_immutable", "reviewed refunds cannot be changed")
)
