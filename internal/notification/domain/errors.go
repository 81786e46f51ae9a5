package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrNotFound          = apperror.NotFound("notification_not_found")
	ErrInvalidRecipient  = apperror.Validation("user_id", "invalid_user", "recipient is not a member of this business")
	ErrInvalidType       = apperror.Validation("type", "invalid_type", "invalid notification type")
	ErrInvalidChannel    = apperror.Validation("channel", "invalid_channel", "invalid channel")
	ErrInvalidPriority   = apperror.Validation("priority", "invalid_priority", "invalid priority")
	ErrInvalidMutedTypes = apperror.Validation("muted_types", "invalid_muted_types", "unknown notification type")
	ErrUnauthenticated   = apperror.Unauthenticated("unauthenticated")
)
