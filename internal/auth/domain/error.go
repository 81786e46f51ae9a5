package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrInvalidCredentials = apperror.Unauthenticated("invalid_credentials")
	ErrInvalidToken       = apperror.Unauthenticated("invalid_token")
	ErrTokenRevoked       = apperror.Unauthenticated("token_revoked")
	ErrUserInactive       = apperror.Unauthenticated("user_inactive")
	ErrUserNotFound       = apperror.NotFound("user_not_found")
	ErrUserExists         = apperror.Conflict("user_exists", "a user with this email already exists")
	ErrInvalidEmail       = apperror.Validation("email", "invalid_email", "enter a valid email address")
	ErrPasswordTooShort   = apperror.Validation("password", "password_too_short", "password must be at least 8 characters")
	ErrWrongPassword      = apperror.Validation("current_password", "wrong_password", "current password is incorrect")
	ErrInvalidResetToken  = apperror.Validation("token", "invalid_reset_token", "reset token is invalid or expired")
	ErrInvalidUserType    = apperror.Validation("user_type", "invalid_user_type", "invalid user type")
)
