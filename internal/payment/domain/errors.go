package domain

import (
	"errors"

	"github.com/smallbiznis/bizcore/pkg/apperror"
)

var (
	ErrPaymentNotFound = apperror.NotFound("payment_not_found")

	ErrInvalidAmount   = apperror.Validation("amount", "invalid_amount", "amount must be greater than zero")
	ErrInvalidProvider = apperror.Validation("provider", "invalid_provider", "unknown payment provider")
	ErrInvalidMethod   = apperror.Validation("payment_method", "invalid_payment_method", "invalid payment method")
	ErrInvalidInvoice  = apperror.Validation("invoice_id", "invalid_invoice", "invoice must belong to this business")
	ErrInvalidOrder    = apperror.Validation("order_id", "invalid_order", "order must belong to this business")
	ErrInvalidCustomer = apperror.Validation("customer_id", "invalid_customer", "customer must belong to this business")
	ErrInvalidStatus   = apperror.Validation("status", "invalid_status", "new payments are pending or authorized; edits may only authorize a pending payment")
	ErrPaymentLocked   = apperror.Validation("status", "payment_locked", "only pending or authorized payments can be changed")
	ErrNotCapturable   = apperror.Validation("status", "not_capturable", "only pending or authorized payments can be captured")
	ErrNotRefundable   = apperror.Validation("status", "not_refundable", "only captured payments can be refunded")
	ErrNotCancellable  = apperror.Validation("status", "not_cancellable", "only pending or authorized payments can fail or be cancelled")
	ErrRefundTooLarge  = apperror.Validation("amount", "refund_exceeds_payment", "refund exceeds the amount left on the payment")

	ErrInvalidPayload   = apperror.Validation("payload", "invalid_payload", "webhook payload is not valid")
	ErrInvalidEvent     = apperror.Validation("payload", "invalid_event", "webhook event is missing required fields")
	ErrInvalidSignature = apperror.Unauthenticated("invalid_signature")
	ErrInvalidConfig    = apperror.Validation("provider", "provider_not_configured", "webhook secret is not configured for this provider")
	ErrUnknownReference = apperror.Validation("provider_reference", "unknown_reference", "no payment matches the provider reference")

	// ErrEventIgnored marks provider events with no payment meaning.
	ErrEventIgnored = errors.New("event_ignored")
)
