package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	obscontext "github.com/smallbiznis/bizcore/internal/observability/context"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
	paramBusinessID     = "business_id"
)

// AuthRequired resolves the bearer access token into the request actor.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := bizcontext.WithActor(c.Request.Context(), bizcontext.Actor{UserID: user.ID, IsStaff: user.IsStaff})
		ctx = obscontext.WithActorID(ctx, user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so upgrades may pass ?access_token= instead.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader(headerAuthorization))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// BusinessContext scopes the request to :business_id. Non-staff callers must
// hold an active membership; otherwise the business is reported as missing.
func (s *Server) BusinessContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, err := pathID(c, paramBusinessID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, ok := bizcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		membership, err := s.businessSvc.ResolveMembership(c.Request.Context(), businessID, actor.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if membership == nil && !actor.IsStaff {
			AbortWithError(c, authorization.ErrNotMember)
			return
		}

		ctx := bizcontext.WithBusiness(c.Request.Context(), businessID, membership)
		ctx = obscontext.WithBusinessID(ctx, businessID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize gates a route on the caller's permission for resource/action.
func (s *Server) authorize(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor, ok := bizcontext.ActorFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		var membership *bizcontext.Membership
		if m, ok := bizcontext.MembershipFromContext(ctx); ok {
			membership = &m
		}
		if err := s.authzSvc.Authorize(ctx, actor, membership, resource, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// staffOnly gates platform-wide operations.
func (s *Server) staffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := bizcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !actor.IsStaff {
			AbortWithError(c, authorization.ErrForbidden)
			return
		}
		c.Next()
	}
}

// requireRole admits staff and active members holding one of roles.
func (s *Server) requireRole(roles ...businessdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if actor, ok := bizcontext.ActorFromContext(ctx); ok && actor.IsStaff {
			c.Next()
			return
		}
		membership, ok := bizcontext.MembershipFromContext(ctx)
		if !ok || !membership.IsActive {
			AbortWithError(c, authorization.ErrNotMember)
			return
		}
		for _, role := range roles {
			if strings.EqualFold(membership.Role, string(role)) {
				c.Next()
				return
			}
		}
		AbortWithError(c, authorization.ErrForbidden)
	}
}
