// Package bizcontext carries the authenticated actor and the active business
// membership on the request context.
package bizcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type actorKey struct{}
type businessKey struct{}
type membershipKey struct{}

// Actor is the authenticated caller.
type Actor struct {
	UserID  snowflake.ID
	IsStaff bool
}

// Membership is the caller's role inside the business being addressed.
// Staff callers may act on a business without one.
type Membership struct {
	MemberID    snowflake.ID
	BusinessID  snowflake.ID
	Role        string
	IsActive    bool
	Permissions map[string]bool
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// WithBusiness scopes ctx to businessID. membership is nil for staff acting without one.
func WithBusiness(ctx context.Context, businessID snowflake.ID, membership *Membership) context.Context {
	ctx = context.WithValue(ctx, businessKey{}, businessID)
	if membership != nil {
		ctx = context.WithValue(ctx, membershipKey{}, *membership)
	}
	return ctx
}

func BusinessIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(businessKey{}).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

func MembershipFromContext(ctx context.Context) (Membership, bool) {
	if ctx == nil {
		return Membership{}, false
	}
	m, ok := ctx.Value(membershipKey{}).(Membership)
	return m, ok
}

// ActorID returns the caller's user id, or nil for background work.
func ActorID(ctx context.Context) *snowflake.ID {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil
	}
	id := actor.UserID
	return &id
}
