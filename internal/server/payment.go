package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/authorization"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
)

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type failRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) registerPaymentRoutes(biz *gin.RouterGroup) {
	payments := resource[paymentdomain.Payment]{
		path:   "payments",
		object: authorization.ResourcePayment,
		store:  s.paymentSvc.Payments(),
		filters: []filter{
			textFilter("status", "status"),
			textFilter("provider", "provider"),
			idFilter("invoice_id", "invoice_id"),
			idFilter("order_id", "order_id"),
			idFilter("customer_id", "customer_id"),
			dateRange("created_at"),
		},
	}.mount(s, biz)

	write := s.authorize(authorization.ResourcePayment, authorization.ActionWrite)
	payments.POST("/:id/capture", write, s.CapturePayment)
	payments.POST("/:id/refund", write, s.RefundPayment)
	payments.POST("/:id/fail", write, s.FailPayment)
	payments.POST("/:id/cancel", write, s.CancelPayment)

	biz.GET("/payment-events", s.authorize(authorization.ResourcePayment, authorization.ActionRead), s.ListPaymentEvents)
}

func (s *Server) CapturePayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payment, err := s.paymentSvc.Capture(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// RefundPayment refunds amount, or whatever is left on the payment when amount is omitted.
func (s *Server) RefundPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req refundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	payment, err := s.paymentSvc.Refund(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) FailPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req failRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	payment, err := s.paymentSvc.Fail(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) CancelPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payment, err := s.paymentSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) ListPaymentEvents(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	events, pageInfo, err := s.paymentSvc.Events(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "page_info": pageInfo})
}
