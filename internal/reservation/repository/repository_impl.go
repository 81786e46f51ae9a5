package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/reservation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Owned(ctx context.Context, db *gorm.DB, table string, businessID, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table(table).
		Where("business_id = ? AND id = ? AND is_deleted = ?", businessID, id, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) Overlapping(ctx context.Context, db *gorm.DB, providerID snowflake.ID, start, end time.Time, exceptID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Reservation{}).
		Where("service_provider_id = ? AND id <> ? AND is_deleted = ?", providerID, exceptID, false).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusConfirmed, domain.StatusInProgress}).
		Where("start_datetime < ? AND end_datetime > ?", end.UTC(), start.UTC()).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) BlockingAvailability(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]*domain.ProviderAvailability, error) {
	var out []*domain.ProviderAvailability
	err := db.WithContext(ctx).
		Where("service_provider_id = ? AND availability_type IN ?", providerID,
			[]domain.AvailabilityType{domain.AvailabilityUnavailable, domain.AvailabilityBreak}).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *repo) ServicesTotal(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := db.WithContext(ctx).Model(&domain.ReservationService{}).
		Where("reservation_id = ?", reservationID).
		Pluck("total", &totals).Error
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, err
}

func (r *repo) UpdateReservation(ctx context.Context, db *gorm.DB, res *domain.Reservation, columns ...string) error {
	return db.WithContext(ctx).Model(res).
		Select(append(columns, "updated_at")).
		Updates(res).Error
}
