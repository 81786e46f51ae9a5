package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
)

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) registerInventoryRoutes(biz *gin.RouterGroup) {
	resource[inventorydomain.Warehouse]{
		path:   "warehouses",
		object: authorization.ResourceWarehouse,
		store:  s.inventorySvc.Warehouses(),
		filters: []filter{
			boolFilter("is_active", "is_active"),
			boolFilter("is_main", "is_main"),
			searchFilter("name", "code"),
		},
	}.mount(s, biz)

	items := resource[inventorydomain.InventoryItem]{
		path:   "inventory-items",
		object: authorization.ResourceInventory,
		store:  s.inventorySvc.Items(),
		filters: []filter{
			idFilter("warehouse_id", "warehouse_id"),
			idFilter("product_id", "product_id"),
			idFilter("variant_id", "variant_id"),
			flagFilter("low_stock", "quantity <= min_stock_level"),
		},
	}.mount(s, biz)

	write := s.authorize(authorization.ResourceInventory, authorization.ActionWrite)
	items.POST("/:id/reserve", write, s.ReserveStock)
	items.POST("/:id/release", write, s.ReleaseStock)
	items.POST("/:id/movements", write, s.RecordMovement)

	resource[inventorydomain.InventoryMovement]{
		path:   "inventory-movements",
		object: authorization.ResourceInventory,
		store:  s.inventorySvc.Movements(),
		filters: []filter{
			idFilter("inventory_item_id", "inventory_item_id"),
			textFilter("movement_type", "movement_type"),
			dateRange("created_at"),
		},
	}.mount(s, biz)

	transfers := resource[inventorydomain.StockTransfer]{
		path:   "stock-transfers",
		object: authorization.ResourceStockTransfer,
		store:  s.inventorySvc.Transfers(),
		filters: []filter{
			textFilter("status", "status"),
			idFilter("from_warehouse_id", "from_warehouse_id"),
			idFilter("to_warehouse_id", "to_warehouse_id"),
			dateRange("requested_date"),
		},
	}.mount(s, biz)

	transferWrite := s.authorize(authorization.ResourceStockTransfer, authorization.ActionWrite)
	transfers.POST("/:id/send", transferWrite, s.SendTransfer)
	transfers.POST("/:id/receive", transferWrite, s.ReceiveTransfer)
	transfers.POST("/:id/cancel", transferWrite, s.CancelTransfer)

	resource[inventorydomain.StockTransferItem]{
		path:    "stock-transfer-items",
		object:  authorization.ResourceStockTransfer,
		store:   s.inventorySvc.TransferItems(),
		filters: []filter{idFilter("transfer_id", "transfer_id")},
	}.mount(s, biz)

	resource[inventorydomain.StockAdjustment]{
		path:   "stock-adjustments",
		object: authorization.ResourceStockAdjustment,
		store:  s.inventorySvc.Adjustments(),
		filters: []filter{
			idFilter("inventory_item_id", "inventory_item_id"),
			textFilter("reason", "reason"),
			dateRange("created_at"),
		},
	}.mount(s, biz)
}

func (s *Server) ReserveStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	item, err := s.inventorySvc.Reserve(c.Request.Context(), id, req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ReleaseStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	item, err := s.inventorySvc.ReleaseReservation(c.Request.Context(), id, req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RecordMovement(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req inventorydomain.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	movement, err := s.inventorySvc.RecordMovement(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": movement})
}

func (s *Server) SendTransfer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	transfer, err := s.inventorySvc.SendTransfer(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transfer})
}

// ReceiveTransfer accepts an optional body; without one every item is received in full.
func (s *Server) ReceiveTransfer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req inventorydomain.ReceiveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	transfer, err := s.inventorySvc.ReceiveTransfer(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transfer})
}

func (s *Server) CancelTransfer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	transfer, err := s.inventorySvc.CancelTransfer(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transfer})
}
