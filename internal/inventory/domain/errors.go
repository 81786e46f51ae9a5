package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrInvalidWarehouse     = apperror.Validation("warehouse_id", "invalid_warehouse", "warehouse does not belong to this business")
	ErrInvalidProduct       = apperror.Validation("product_id", "invalid_product", "product does not belong to this business")
	ErrInvalidVariant       = apperror.Validation("variant_id", "invalid_variant", "variant does not belong to the product")
	ErrInvalidItem          = apperror.Validation("inventory_item_id", "invalid_inventory_item", "inventory item does not belong to this business")
	ErrItemExists           = apperror.Conflict("inventory_item_exists", "this product is already stocked in the warehouse")
	ErrCodeTaken            = apperror.Conflict("warehouse_code_taken", "warehouse code already used in this business")
	ErrInvalidQuantity      = apperror.Validation("quantity", "invalid_quantity", "quantity must be greater than zero")
	ErrInsufficientStock    = apperror.Validation("quantity", "insufficient_stock", "not enough stock available")
	ErrNegativeStock        = apperror.Validation("quantity", "negative_stock", "stock cannot go below zero")
	ErrQuantityViaMovements = apperror.Validation("quantity", "use_movements", "stock quantities change through movements and adjustments")
	ErrInvalidMovementType  = apperror.Validation("movement_type", "invalid_movement_type", "invalid movement type")
	ErrInvalidReason        = apperror.Validation("reason", "invalid_reason", "invalid adjustment reason")
	ErrSameWarehouse        = apperror.Validation("to_warehouse_id", "same_warehouse", "source and destination warehouses must differ")
	ErrTransferNotPending   = apperror.Validation("status", "transfer_not_pending", "only pending transfers can be changed")
	ErrTransferNotInTransit = apperror.Validation("status", "transfer_not_in_transit", "only transfers in transit can be received")
	ErrTransferFinished     = apperror.Validation("status", "transfer_closed", "completed or cancelled transfers cannot be cancelled")
	ErrTransferEmpty        = apperror.Validation("items", "empty_transfer", "transfer has no items")
	ErrInvalidReceived      = apperror.Validation("quantity_received", "invalid_quantity_received", "received quantity must be between zero and the quantity sent")
	ErrInvalidTransfer      = apperror.Validation("transfer_id", "invalid_transfer", "transfer does not belong to this business")
)
