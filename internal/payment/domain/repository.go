package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Owned reports whether table holds a live row id in the business.
	Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error)
	UpdatePayment(ctx context.Context, db *gorm.DB, payment *Payment, columns ...string) error
	// FindByReference locates a live payment by gateway reference across businesses.
	FindByReference(ctx context.Context, db *gorm.DB, provider Provider, reference string) (*Payment, error)

	// InsertEvent stores event unless its provider and external id were seen before.
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, externalID string) (*WebhookEvent, error)
	SaveEventResult(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	// ListEvents fetches one row past pageSize so callers can detect more pages.
	ListEvents(ctx context.Context, db *gorm.DB, businessID snowflake.ID, afterID int64, pageSize int) ([]*WebhookEvent, error)
}
