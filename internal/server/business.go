package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
)

func (s *Server) registerBusinessRoutes(biz *gin.RouterGroup) {
	biz.GET("", s.authorize(authorization.ResourceBusiness, authorization.ActionRead), s.GetBusiness)
	biz.PATCH("", s.authorize(authorization.ResourceBusiness, authorization.ActionWrite), s.UpdateBusiness)
	biz.DELETE("", s.authorize(authorization.ResourceBusiness, authorization.ActionWrite), s.DeleteBusiness)

	members := biz.Group("/members")
	members.GET("", s.authorize(authorization.ResourceMember, authorization.ActionRead), s.ListMembers)
	members.POST("", s.authorize(authorization.ResourceMember, authorization.ActionWrite), s.AddMember)
	members.GET("/:id", s.authorize(authorization.ResourceMember, authorization.ActionRead), s.GetMember)
	members.PATCH("/:id", s.authorize(authorization.ResourceMember, authorization.ActionWrite), s.UpdateMember)
	members.DELETE("/:id", s.authorize(authorization.ResourceMember, authorization.ActionWrite), s.RemoveMember)
}

func (s *Server) ListBusinessTypes(c *gin.Context) {
	types, err := s.businessSvc.ListTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

func (s *Server) GetBusinessType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	t, err := s.businessSvc.GetType(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (s *Server) CreateBusinessType(c *gin.Context) {
	var req businessdomain.BusinessType
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	t, err := s.businessSvc.CreateType(c.Request.Context(), &req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": t})
}

func (s *Server) UpdateBusinessType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	t, err := s.businessSvc.UpdateType(c.Request.Context(), id, body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (s *Server) CreateBusiness(c *gin.Context) {
	var req businessdomain.CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	business, err := s.businessSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": business})
}

// ListBusinesses returns the caller's businesses, or every business for staff.
func (s *Server) ListBusinesses(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	items, pageInfo, err := s.businessSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func (s *Server) GetBusiness(c *gin.Context) {
	business, err := s.businessSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": business})
}

func (s *Server) UpdateBusiness(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	business, err := s.businessSvc.Update(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": business})
}

func (s *Server) DeleteBusiness(c *gin.Context) {
	if err := s.businessSvc.Delete(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Role     string `form:"role"`
		IsActive string `form:"is_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, invalidParamError("is_active"))
		return
	}

	items, pageInfo, err := s.businessSvc.ListMembers(c.Request.Context(), query.Pagination, businessdomain.MemberFilter{
		Role:     businessdomain.Role(strings.ToLower(strings.TrimSpace(query.Role))),
		IsActive: isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func (s *Server) GetMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	member, err := s.businessSvc.GetMember(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": member})
}

// AddMember attaches an existing user, found by email, to the business.
func (s *Server) AddMember(c *gin.Context) {
	var req businessdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	member, err := s.businessSvc.AddMember(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (s *Server) UpdateMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req businessdomain.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	member, err := s.businessSvc.UpdateMember(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) RemoveMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.businessSvc.RemoveMember(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
