package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	TypeSystem      NotificationType = "system"
	TypeOrder       NotificationType = "order"
	TypeReservation NotificationType = "reservation"
	TypeInventory   NotificationType = "inventory"
	TypeFinance     NotificationType = "finance"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeSystem, TypeOrder, TypeReservation, TypeInventory, TypeFinance:
		return true
	}
	return false
}

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Notification is addressed to one user inside one business.
type Notification struct {
	db.Model
	UserID   snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Type     NotificationType  `gorm:"type:text;not null" json:"type"`
	Channel  Channel           `gorm:"type:text;not null" json:"channel"`
	Priority Priority          `gorm:"type:text;not null" json:"priority"`
	Title    string            `gorm:"type:text;not null" json:"title" validate:"required,max=200"`
	Message  string            `gorm:"type:text;not null" json:"message" validate:"required"`
	URL      string            `gorm:"column:url;type:text" json:"url" validate:"omitempty,max=500"`
	Metadata datatypes.JSONMap `json:"metadata"`
	IsRead   bool              `gorm:"not null;index" json:"is_read"`
	ReadAt   *time.Time        `json:"read_at"`
	SentAt   *time.Time        `json:"sent_at"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationPreference is unique per (business, user).
type NotificationPreference struct {
	db.Model
	UserID          snowflake.ID                          `gorm:"not null;index" json:"user_id"`
	AllowInApp      bool                                  `gorm:"not null" json:"allow_in_app"`
	AllowEmail      bool                                  `gorm:"not null" json:"allow_email"`
	AllowSMS        bool                                  `gorm:"column:allow_sms;not null" json:"allow_sms"`
	AllowPush       bool                                  `gorm:"not null" json:"allow_push"`
	MutedTypes      datatypes.JSONSlice[NotificationType] `json:"muted_types"`
	IsMuted         bool                                  `gorm:"not null" json:"is_muted"`
	QuietHoursStart string                                `gorm:"type:text" json:"quiet_hours_start" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd   string                                `gorm:"type:text" json:"quiet_hours_end" validate:"omitempty,datetime=15:04"`
}

func (NotificationPreference) TableName() string { return "notification_preferences" }

// DefaultPreference applies until the user saves their own.
func DefaultPreference(businessID, userID snowflake.ID) *NotificationPreference {
	return &NotificationPreference{
		Model:      db.Model{BusinessID: businessID},
		UserID:     userID,
		AllowInApp: true,
		AllowEmail: true,
	}
}

// Accepts reports whether a notification of type t on channel c should be stored.
func (p *NotificationPreference) Accepts(t NotificationType, c Channel) bool {
	if p.IsMuted {
		return false
	}
	for _, muted := range p.MutedTypes {
		if muted == t {
			return false
		}
	}
	switch c {
	case ChannelInApp:
		return p.AllowInApp
	case ChannelEmail:
		return p.AllowEmail
	case ChannelSMS:
		return p.AllowSMS
	case ChannelPush:
		return p.AllowPush
	}
	return false
}

// Quiet reports whether at falls in the user's quiet window. Windows may wrap midnight.
func (p *NotificationPreference) Quiet(at time.Time) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	start, err1 := time.Parse("15:04", p.QuietHoursStart)
	end, err2 := time.Parse("15:04", p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}
	minute := at.Hour()*60 + at.Minute()
	from := start.Hour()*60 + start.Minute()
	to := end.Hour()*60 + end.Minute()
	if from <= to {
		return minute >= from && minute < to
	}
	return minute >= from || minute < to
}

var (
	NotificationReadOnly = []string{"sent_at", "read_at"}
	PreferenceReadOnly   = []string{"user_id"}
)
