package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrBusinessNotFound     = apperror.NotFound("business_not_found")
	ErrBusinessTypeNotFound = apperror.NotFound("business_type_not_found")
	ErrMemberNotFound       = apperror.NotFound("member_not_found")
	ErrInvalidName          = apperror.Validation("name", "invalid_name", "name is required")
	ErrInvalidBusinessType  = apperror.Validation("business_type_id", "invalid_business_type", "unknown business type")
	ErrInvalidTimezone      = apperror.Validation("timezone", "invalid_timezone", "unknown time zone")
	ErrInvalidSubscription  = apperror.Validation("subscription_status", "invalid_subscription_status", "invalid subscription status")
	ErrInvalidRole          = apperror.Validation("role", "invalid_role", "invalid role")
	ErrInvalidEmail         = apperror.Validation("email", "invalid_email", "no user with this email")
	ErrAlreadyMember        = apperror.Conflict("already_member", "user is already a member of this business")
	ErrLastOwner            = apperror.Validation("role", "last_owner", "the business must keep an active owner")
	ErrOwnerOnly            = apperror.Permission("owner_only")
	ErrStaffOnly            = apperror.Permission("staff_only")
	ErrUnauthenticated      = apperror.Unauthenticated("authentication_required")
)
