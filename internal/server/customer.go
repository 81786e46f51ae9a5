package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
)

type loyaltyRequest struct {
	Points int64 `json:"points"`
}

func (s *Server) registerCustomerRoutes(biz *gin.RouterGroup) {
	customers := resource[customerdomain.Customer]{
		path:   "customers",
		object: authorization.ResourceCustomer,
		store:  s.customerSvc,
		filters: []filter{
			boolFilter("is_vip", "is_vip"),
			boolFilter("is_blocked", "is_blocked"),
			searchFilter("first_name", "last_name", "email", "phone", "customer_number"),
			dateRange("created_at"),
		},
	}.mount(s, biz)

	write := s.authorize(authorization.ResourceCustomer, authorization.ActionWrite)
	customers.POST("/:id/loyalty/add", write, s.loyalty(s.customerSvc.AddLoyaltyPoints))
	customers.POST("/:id/loyalty/redeem", write, s.loyalty(s.customerSvc.RedeemLoyaltyPoints))
}

func (s *Server) loyalty(apply func(ctx context.Context, id snowflake.ID, points int64) (*customerdomain.Customer, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		var req loyaltyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		customer, err := apply(c.Request.Context(), id, req.Points)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": customer})
	}
}
