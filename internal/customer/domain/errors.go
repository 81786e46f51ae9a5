package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrNotFound             = apperror.NotFound("customer_not_found")
	ErrInvalidPoints        = apperror.Validation("points", "invalid_points", "points must be greater than zero")
	ErrInsufficientPoints   = apperror.Validation("points", "insufficient_points", "not enough loyalty points")
	ErrInvalidPurchase      = apperror.Validation("amount", "invalid_amount", "purchase amount cannot be negative")
	ErrInvalidUser          = apperror.Validation("user_id", "invalid_user", "unknown user")
	ErrCustomerUserConflict = apperror.Conflict("customer_exists", "this user is already a customer of the business")
)
