package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
)

const contentTypePDF = "application/pdf"

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) registerOrderRoutes(biz *gin.RouterGroup) {
	orders := resource[orderdomain.Order]{
		path:   "orders",
		object: authorization.ResourceOrder,
		store:  s.orderSvc.Orders(),
		filters: []filter{
			textFilter("status", "status"),
			textFilter("order_type", "order_type"),
			idFilter("customer_id", "customer_id"),
			searchFilter("order_number", "customer_name"),
			dateRange("order_date"),
		},
	}.mount(s, biz)

	read := s.authorize(authorization.ResourceOrder, authorization.ActionRead)
	write := s.authorize(authorization.ResourceOrder, authorization.ActionWrite)
	orders.POST("/:id/submit", write, s.orderTransition(s.orderSvc.Submit))
	orders.POST("/:id/confirm", write, s.orderTransition(s.orderSvc.Confirm))
	orders.POST("/:id/cancel", write, s.orderTransition(s.orderSvc.Cancel))
	orders.POST("/:id/status", write, s.ChangeOrderStatus)
	orders.GET("/:id/receipt", read, s.OrderReceipt)

	resource[orderdomain.OrderItem]{
		path:    "order-items",
		object:  authorization.ResourceOrderItem,
		store:   s.orderSvc.Items(),
		filters: []filter{idFilter("order_id", "order_id"), idFilter("product_id", "product_id")},
	}.mount(s, biz)

	resource[orderdomain.OrderStatusHistory]{
		path:     "order-status-history",
		object:   authorization.ResourceOrder,
		store:    s.orderSvc.History(),
		filters:  []filter{idFilter("order_id", "order_id")},
		readOnly: true,
	}.mount(s, biz)

	payments := resource[orderdomain.OrderPayment]{
		path:   "order-payments",
		object: authorization.ResourceOrderPayment,
		store:  s.orderSvc.Payments(),
		filters: []filter{
			idFilter("order_id", "order_id"),
			textFilter("status", "status"),
			textFilter("payment_method", "payment_method"),
		},
	}.mount(s, biz)
	payments.POST("/:id/complete", s.authorize(authorization.ResourceOrderPayment, authorization.ActionWrite), s.CompleteOrderPayment)

	refunds := resource[orderdomain.OrderRefund]{
		path:   "order-refunds",
		object: authorization.ResourceOrderRefund,
		store:  s.orderSvc.Refunds(),
		filters: []filter{
			idFilter("order_id", "order_id"),
			textFilter("status", "status"),
		},
	}.mount(s, biz)

	refundWrite := s.authorize(authorization.ResourceOrderRefund, authorization.ActionWrite)
	refunds.POST("/:id/approve", refundWrite, s.ApproveRefund)
	refunds.POST("/:id/reject", refundWrite, s.RejectRefund)
	refunds.POST("/:id/process", refundWrite, s.ProcessRefund)
}

// optionalNotes binds {"notes": ...} when a body is present.
func optionalNotes(c *gin.Context) (string, error) {
	var req notesRequest
	if c.Request.ContentLength == 0 {
		return "", nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", invalidRequestError()
	}
	return req.Notes, nil
}

func (s *Server) orderTransition(apply func(ctx context.Context, id snowflake.ID, notes string) (*orderdomain.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		notes, err := optionalNotes(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		order, err := apply(c.Request.Context(), id, notes)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": order})
	}
}

func (s *Server) ChangeOrderStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req orderdomain.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	order, err := s.orderSvc.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) OrderReceipt(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.orderSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, id))
	c.Data(http.StatusOK, contentTypePDF, doc)
}

func (s *Server) CompleteOrderPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payment, err := s.orderSvc.CompletePayment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) ApproveRefund(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	refund, err := s.orderSvc.ApproveRefund(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refund})
}

func (s *Server) RejectRefund(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	notes, err := optionalNotes(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	refund, err := s.orderSvc.RejectRefund(c.Request.Context(), id, notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refund})
}

// ProcessRefund pays out an approved refund, restocking items when asked to.
func (s *Server) ProcessRefund(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	refund, err := s.orderSvc.ProcessRefund(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refund})
}
