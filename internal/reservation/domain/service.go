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
	Providers() crud.Store[ServiceProvider]
	Reservations() crud.Store[Reservation]
	Services() crud.Store[ReservationService]
	History() crud.Store[ReservationStatusHistory]
	Availability() crud.Store[ProviderAvailability]
	WaitingList() crud.Store[WaitingListEntry]

	// Confirm moves a pending reservation to confirmed once any required deposit is paid.
	Confirm(ctx context.Context, id snowflake.ID, notes string) (*Reservation, error)
	ChangeStatus(ctx context.Context, id snowflake.ID, change StatusChange) (*Reservation, error)
	MarkDepositPaid(ctx context.Context, id snowflake.ID) (*Reservation, error)
}
