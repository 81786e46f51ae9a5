package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

const ClockLayout = "15:04"

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active statuses hold the provider's time slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	// Cancelled and no-show reservations may only be reopened as pending.
	StatusCancelled: {StatusPending},
	StatusNoShow:    {StatusPending},
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type AvailabilityType string

const (
	AvailabilityOpen        AvailabilityType = "available"
	AvailabilityUnavailable AvailabilityType = "unavailable"
	AvailabilityBreak       AvailabilityType = "break"
)

func (t AvailabilityType) Valid() bool {
	return t == AvailabilityOpen || t == AvailabilityUnavailable || t == AvailabilityBreak
}

// Blocking types take the provider out of service.
func (t AvailabilityType) Blocking() bool {
	return t == AvailabilityUnavailable || t == AvailabilityBreak
}

type WaitingStatus string

const (
	WaitingOpen      WaitingStatus = "waiting"
	WaitingNotified  WaitingStatus = "notified"
	WaitingBooked    WaitingStatus = "booked"
	WaitingCancelled WaitingStatus = "cancelled"
)

func (s WaitingStatus) Valid() bool {
	switch s {
	case WaitingOpen, WaitingNotified, WaitingBooked, WaitingCancelled:
		return true
	}
	return false
}

// Span is a time-of-day interval written as HH:MM.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns the span as minutes after midnight. ok is false when either
// bound is malformed or the span is empty.
func (s Span) Minutes() (start, end int, ok bool) {
	from, err1 := time.Parse(ClockLayout, s.Start)
	to, err2 := time.Parse(ClockLayout, s.End)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	start = from.Hour()*60 + from.Minute()
	end = to.Hour()*60 + to.Minute()
	return start, end, end > start
}

type WorkingDay struct {
	Span
	Breaks []Span `json:"breaks,omitempty"`
}

// WorkingHours is keyed by lowercase weekday name, e.g. "monday".
type WorkingHours map[string]WorkingDay

// Validate reports the first malformed weekday key, or "" when all are fine.
func (w WorkingHours) Validate() string {
	for day, hours := range w {
		if _, ok := weekday(day); !ok {
			return day
		}
		start, end, ok := hours.Minutes()
		if !ok {
			return day
		}
		for _, b := range hours.Breaks {
			bs, be, ok := b.Minutes()
			if !ok || bs < start || be > end {
				return day
			}
		}
	}
	return ""
}

func weekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

type ServiceProvider struct {
	db.Model
	UserID         *snowflake.ID                    `gorm:"index" json:"user_id"`
	Name           string                           `gorm:"type:text;not null" json:"name" validate:"required,max=200"`
	Title          string                           `gorm:"type:text" json:"title" validate:"max=100"`
	Bio            string                           `gorm:"type:text" json:"bio"`
	ImageURL       string                           `gorm:"column:image_url;type:text" json:"image_url" validate:"omitempty,url"`
	Specialties    datatypes.JSONSlice[string]      `json:"specialties"`
	IsActive       bool                             `gorm:"not null" json:"is_active"`
	AcceptsWalkIns bool                             `gorm:"not null" json:"accepts_walk_ins"`
	WorkingHours   datatypes.JSONType[WorkingHours] `json:"working_hours"`
	db.SoftDelete
}

func (ServiceProvider) TableName() string { return "service_providers" }

type Reservation struct {
	db.Model
	ReservationNumber  string          `gorm:"type:text;not null;index" json:"reservation_number"`
	CustomerID         *snowflake.ID   `gorm:"index" json:"customer_id"`
	CustomerName       string          `gorm:"type:text" json:"customer_name" validate:"max=200"`
	CustomerEmail      string          `gorm:"type:text" json:"customer_email" validate:"omitempty,email"`
	CustomerPhone      string          `gorm:"type:text" json:"customer_phone" validate:"max=20"`
	ServiceProviderID  *snowflake.ID   `gorm:"index" json:"service_provider_id"`
	StartDatetime      time.Time       `gorm:"not null;index" json:"start_datetime"`
	EndDatetime        time.Time       `gorm:"not null" json:"end_datetime"`
	DurationMinutes    int64           `gorm:"not null" json:"duration_minutes"`
	Status             Status          `gorm:"type:text;not null;index" json:"status"`
	ReminderSent       bool            `gorm:"not null" json:"reminder_sent"`
	ReminderSentAt     *time.Time      `json:"reminder_sent_at"`
	ConfirmedAt        *time.Time      `json:"confirmed_at"`
	ConfirmedBy        *snowflake.ID   `json:"confirmed_by"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CancelledBy        *snowflake.ID   `json:"cancelled_by"`
	CancellationReason string          `gorm:"type:text" json:"cancellation_reason"`
	RequiresDeposit    bool            `gorm:"not null" json:"requires_deposit"`
	DepositAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"deposit_amount"`
	DepositPaid        bool            `gorm:"not null" json:"deposit_paid"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	CreatedBy          *snowflake.ID   `json:"created_by"`
	Notes              string          `gorm:"type:text" json:"notes"`
	InternalNotes      string          `gorm:"type:text" json:"internal_notes"`
	IsPast             bool            `gorm:"-" json:"is_past"`
	IsUpcoming         bool            `gorm:"-" json:"is_upcoming"`
	db.SoftDelete
}

func (Reservation) TableName() string { return "reservations" }

// Overlaps uses half-open intervals, so back-to-back slots do not collide.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartDatetime.Before(end) && r.EndDatetime.After(start)
}

func (r *Reservation) Compute(now time.Time) {
	r.IsPast = r.EndDatetime.Before(now)
	r.IsUpcoming = r.StartDatetime.After(now) && r.StartDatetime.Before(now.Add(24*time.Hour))
}

type ReservationService struct {
	db.Model
	ReservationID   snowflake.ID    `gorm:"not null;index" json:"reservation_id"`
	ProductID       snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Quantity        int64           `gorm:"not null" json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	DurationMinutes int64           `gorm:"not null" json:"duration_minutes" validate:"gte=0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Notes           string          `gorm:"type:text" json:"notes"`
}

func (ReservationService) TableName() string { return "reservation_services" }

func (s *ReservationService) ComputeTotal() {
	s.Total = s.UnitPrice.Mul(decimal.NewFromInt(s.Quantity)).Sub(s.DiscountAmount).Round(2)
}

// ReservationStatusHistory is append-only.
type ReservationStatusHistory struct {
	db.Model
	ReservationID  snowflake.ID  `gorm:"not null;index" json:"reservation_id"`
	PreviousStatus Status        `gorm:"type:text;not null" json:"previous_status"`
	NewStatus      Status        `gorm:"type:text;not null" json:"new_status"`
	ChangedBy      *snowflake.ID `json:"changed_by"`
	Notes          string        `gorm:"type:text" json:"notes"`
}

func (ReservationStatusHistory) TableName() string { return "reservation_status_history" }

// ProviderAvailability is a one-off (Date) or weekly (Weekday) exception to a
// provider's working hours.
type ProviderAvailability struct {
	db.Model
	ServiceProviderID snowflake.ID     `gorm:"not null;index" json:"service_provider_id"`
	AvailabilityType  AvailabilityType `gorm:"type:text;not null" json:"availability_type"`
	Date              *db.Date         `json:"date"`
	Weekday           *int             `json:"weekday" validate:"omitempty,min=0,max=6"`
	StartTime         string           `gorm:"type:text;not null" json:"start_time" validate:"required,datetime=15:04"`
	EndTime           string           `gorm:"type:text;not null" json:"end_time" validate:"required,datetime=15:04"`
	Reason            string           `gorm:"type:text" json:"reason" validate:"max=200"`
}

func (ProviderAvailability) TableName() string { return "provider_availability" }

func (a *ProviderAvailability) Span() Span { return Span{Start: a.StartTime, End: a.EndTime} }

// Covers reports whether the availability window intersects [start, end).
// Both bounds are read in UTC.
func (a *ProviderAvailability) Covers(start, end time.Time) bool {
	from, to, ok := a.Span().Minutes()
	if !ok {
		return false
	}
	for day := dayOf(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if a.Date != nil && !a.Date.Time.Equal(day) {
			continue
		}
		if a.Weekday != nil && time.Weekday(*a.Weekday) != day.Weekday() {
			continue
		}
		windowStart := day.Add(time.Duration(from) * time.Minute)
		windowEnd := day.Add(time.Duration(to) * time.Minute)
		if windowStart.Before(end) && windowEnd.After(start) {
			return true
		}
	}
	return false
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type WaitingListEntry struct {
	db.Model
	CustomerID        *snowflake.ID `gorm:"index" json:"customer_id"`
	CustomerName      string        `gorm:"type:text" json:"customer_name" validate:"max=200"`
	CustomerPhone     string        `gorm:"type:text" json:"customer_phone" validate:"max=20"`
	ServiceProviderID *snowflake.ID `gorm:"index" json:"service_provider_id"`
	ProductID         *snowflake.ID `json:"product_id"`
	PreferredDate     *db.Date      `json:"preferred_date"`
	PreferredTime     string        `gorm:"type:text" json:"preferred_time" validate:"omitempty,datetime=15:04"`
	Status            WaitingStatus `gorm:"type:text;not null;index" json:"status"`
	NotifiedAt        *time.Time    `json:"notified_at"`
	Notes             string        `gorm:"type:text" json:"notes"`
}

func (WaitingListEntry) TableName() string { return "waiting_list" }

var (
	ReservationReadOnly = []string{
		"reservation_number", "status", "duration_minutes", "confirmed_at", "confirmed_by",
		"cancelled_at", "cancelled_by", "deposit_paid", "total_amount", "created_by",
		"reminder_sent_at", "is_past", "is_upcoming",
	}
	ServiceReadOnly = []string{"total"}
	WaitingReadOnly = []string{"notified_at"}
)
