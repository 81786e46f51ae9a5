package domain

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/crud"
	"gorm.io/gorm"
)

// NotifyRequest fans one message out to explicit users and to members holding Roles.
type NotifyRequest struct {
	BusinessID snowflake.ID
	Recipients []snowflake.ID
	Roles      []string
	Type       NotificationType
	Channel    Channel
	Priority   Priority
	Title      string
	Message    string
	URL        string
	Metadata   map[string]any
}

type Service interface {
	// Notifications is scoped to the caller's own rows unless the caller is staff.
	Notifications() crud.Store[Notification]

	MarkRead(ctx context.Context, id snowflake.ID) (*Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int64, error)

	GetPreference(ctx context.Context) (*NotificationPreference, error)
	UpsertPreference(ctx context.Context, patch map[string]json.RawMessage) (*NotificationPreference, error)

	// Notify stores notifications inside tx, honoring each recipient's preferences.
	// It returns the ones due for live delivery; pass them to Publish after commit.
	Notify(ctx context.Context, tx *gorm.DB, req NotifyRequest) ([]*Notification, error)
	Publish(items ...*Notification)
}
