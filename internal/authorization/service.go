package authorization

import (
	"context"

	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/pkg/apperror"
)

// Service decides whether an actor may perform an action on a business resource.
type Service interface {
	Can(ctx context.Context, actor bizcontext.Actor, membership *bizcontext.Membership, resource, action string) (bool, error)
	Authorize(ctx context.Context, actor bizcontext.Actor, membership *bizcontext.Membership, resource, action string) error
}

var (
	ErrInvalidActor    = apperror.Unauthenticated("invalid_actor")
	ErrInvalidResource = apperror.Validation("resource", "invalid_resource", "resource is required")
	ErrInvalidAction   = apperror.Validation("action", "invalid_action", "action is required")
	ErrForbidden       = apperror.Permission("forbidden")
	// ErrNotMember hides the existence of businesses the caller does not belong to.
	ErrNotMember = apperror.NotFound("business_not_found")
)
