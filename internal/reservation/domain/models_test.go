package domain

import (
	"testing"
	"time"

	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
)

func TestAvailabilityCovers(t *testing.T) {
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	wd := int(time.Monday)
	weekly := &ProviderAvailability{Weekday: &wd, StartTime: "13:00", EndTime: "14:00"}
	once := &ProviderAvailability{Date: db.DatePtr(monday.AddDate(0, 0, 1)), StartTime: "09:00", EndTime: "10:00"}

	cases := []struct {
		name       string
		a          *ProviderAvailability
		start, end time.Time
		want       bool
	}{
		{"inside", weekly, monday.Add(13 * time.Hour), monday.Add(13*time.Hour + 30*time.Minute), true},
		{"ends at window start", weekly, monday.Add(12 * time.Hour), monday.Add(13 * time.Hour), false},
		{"starts at window end", weekly, monday.Add(14 * time.Hour), monday.Add(15 * time.Hour), false},
		{"other weekday", weekly, monday.Add(37 * time.Hour), monday.Add(38 * time.Hour), false},
		{"next week", weekly, monday.AddDate(0, 0, 7).Add(13 * time.Hour), monday.AddDate(0, 0, 7).Add(14 * time.Hour), true},
		{"spans midnight", once, monday.Add(23 * time.Hour), monday.Add(34 * time.Hour), true},
		{"wrong date", once, monday.Add(9 * time.Hour), monday.Add(10 * time.Hour), false},
		{"malformed", &ProviderAvailability{Weekday: &wd, StartTime: "9am", EndTime: "10:00"}, monday, monday.Add(24 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Covers(tc.start, tc.end))
		})
	}
}

func TestWorkingHoursValidate(t *testing.T) {
	ok := WorkingHours{
		"Monday":   {Span: Span{Start: "09:00", End: "18:00"}, Breaks: []Span{{Start: "13:00", End: "14:00"}}},
		"saturday": {Span: Span{Start: "10:00", End: "14:00"}},
	}
	assert.Empty(t, ok.Validate())
	assert.Equal(t, "noday", WorkingHours{"noday": {Span: Span{Start: "09:00", End: "10:00"}}}.Validate())
	assert.Equal(t, "friday", WorkingHours{"friday": {Span: Span{Start: "18:00", End: "09:00"}}}.Validate())
	assert.Equal(t, "friday", WorkingHours{"friday": {
		Span:   Span{Start: "09:00", End: "18:00"},
		Breaks: []Span{{Start: "08:00", End: "09:30"}},
	}}.Validate())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusConfirmed))
	assert.True(t, StatusCancelled.CanTransition(StatusPending))
	assert.False(t, StatusCompleted.CanTransition(StatusPending))
	assert.False(t, StatusPending.CanTransition(StatusInProgress))
	assert.True(t, StatusInProgress.Active())
	assert.False(t, StatusNoShow.Active())
}

func TestReservationOverlaps(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 3, 3, h, 0, 0, 0, time.UTC) }
	r := &Reservation{StartDatetime: at(10), EndDatetime: at(11)}
	assert.True(t, r.Overlaps(at(10), at(12)))
	assert.False(t, r.Overlaps(at(11), at(12)))
	assert.False(t, r.Overlaps(at(9), at(10)))

	r.Compute(at(9))
	assert.True(t, r.IsUpcoming)
	assert.False(t, r.IsPast)
	r.Compute(at(12))
	assert.True(t, r.IsPast)
}
