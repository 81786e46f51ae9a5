package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/crud"
)

type StatusChange struct {
	Status Status `json:"status"`
	Notes  string `json:"notes"`
}

type Service interface {
	// Orders accepts an "items" array on create and returns items on Get.
	Orders() crud.Store[Order]
	Items() crud.Store[OrderItem]
	History() crud.Store[OrderStatusHistory]
	Payments() crud.Store[OrderPayment]
	Refunds() crud.Store[OrderRefund]

	Submit(ctx context.Context, id snowflake.ID, notes string) (*Order, error)
	// Confirm checks stock for every item, deducts it and moves the order to confirmed.
	Confirm(ctx context.Context, id snowflake.ID, notes string) (*Order, error)
	Cancel(ctx context.Context, id snowflake.ID, notes string) (*Order, error)
	ChangeStatus(ctx context.Context, id snowflake.ID, change StatusChange) (*Order, error)

	CompletePayment(ctx context.Context, id snowflake.ID) (*OrderPayment, error)
	ApproveRefund(ctx context.Context, id snowflake.ID) (*OrderRefund, error)
	RejectRefund(ctx context.Context, id snowflake.ID, notes string) (*OrderRefund, error)
	ProcessRefund(ctx context.Context, id snowflake.ID) (*OrderRefund, error)

	// Receipt renders the sale receipt of a confirmed order as PDF.
	Receipt(ctx context.Context, id snowflake.ID) ([]byte, error)
}
