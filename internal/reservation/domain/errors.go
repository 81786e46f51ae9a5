package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrInvalidCustomer     = apperror.Validation("customer_id", "invalid_customer", "customer does not belong to this business")
	ErrCustomerRequired    = apperror.Validation("customer_name", "customer_required", "a customer or a walk-in name is required")
	ErrInvalidProvider     = apperror.Validation("service_provider_id", "invalid_service_provider", "service provider does not belong to this business")
	ErrInactiveProvider    = apperror.Validation("service_provider_id", "inactive_service_provider", "service provider is not taking reservations")
	ErrNoWalkIns           = apperror.Validation("customer_id", "walk_ins_not_accepted", "this provider only serves registered customers")
	ErrInvalidTimes        = apperror.Validation("end_datetime", "invalid_end_datetime", "end must be after start")
	ErrOverlap             = apperror.Validation("start_datetime", "reservation_overlap", "the provider already has a reservation at this time")
	ErrProviderUnavailable = apperror.Validation("start_datetime", "provider_unavailable", "the provider is not available at this time")
	ErrNegativeDeposit     = apperror.Validation("deposit_amount", "invalid_deposit_amount", "deposit cannot be negative")
	ErrInvalidStatus       = apperror.Validation("status", "invalid_status", "invalid reservation status")
	ErrInvalidTransition   = apperror.Validation("status", "invalid_status_transition", "this status change is not allowed")
	ErrNotPending          = apperror.Validation("status", "reservation_not_pending", "only pending reservations can be confirmed")
	ErrDepositRequired     = apperror.Validation("deposit_paid", "deposit_required", "the deposit must be paid before confirming")
	ErrDepositNotRequired  = apperror.Validation("requires_deposit", "deposit_not_required", "this reservation does not require a deposit")
	ErrReservationClosed   = apperror.Validation("reservation_id", "reservation_closed", "completed, cancelled or missed reservations cannot change")
	ErrInvalidReservation  = apperror.Validation("reservation_id", "invalid_reservation", "reservation does not belong to this business")

	ErrInvalidProduct   = apperror.Validation("product_id", "invalid_product", "product does not belong to this business")
	ErrInvalidUnitPrice = apperror.Validation("unit_price", "invalid_unit_price", "unit price cannot be negative")
	ErrInvalidDiscount  = apperror.Validation("discount_amount", "invalid_discount_amount", "discount must be between zero and the line amount")

	ErrInvalidWorkingHours     = apperror.Validation("working_hours", "invalid_working_hours", "working hours need weekday keys and HH:MM spans with breaks inside them")
	ErrInvalidAvailability     = apperror.Validation("availability_type", "invalid_availability_type", "invalid availability type")
	ErrInvalidAvailabilitySpan = apperror.Validation("end_time", "invalid_end_time", "end time must be after start time")
	ErrAvailabilityDay         = apperror.Validation("date", "invalid_availability_day", "set exactly one of date or weekday")

	ErrInvalidWaitingStatus = apperror.Validation("status", "invalid_waiting_status", "invalid waiting list status")
)
