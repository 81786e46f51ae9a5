package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
)

type Service interface {
	Payments() crud.Store[Payment]

	// Capture settles an open payment and credits its invoice.
	Capture(ctx context.Context, id snowflake.ID) (*Payment, error)
	// Refund returns part or all of a captured payment and debits its invoice.
	Refund(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (*Payment, error)
	Fail(ctx context.Context, id snowflake.ID, reason string) (*Payment, error)
	Cancel(ctx context.Context, id snowflake.ID) (*Payment, error)

	// ProcessEvent stores a parsed gateway event once and applies it to the
	// payment it references. A replayed event returns the stored copy.
	ProcessEvent(ctx context.Context, event *Event, payload []byte) (*WebhookEvent, error)
	Events(ctx context.Context, page pagination.Pagination) ([]*WebhookEvent, *pagination.PageInfo, error)
}

// Ingester verifies and parses raw gateway webhooks.
type Ingester interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*WebhookEvent, error)
}
