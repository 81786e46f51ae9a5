package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, payment *domain.Payment, columns ...string) error {
	return db.WithContext(ctx).Model(payment).
		Select(append(columns, "updated_at")).
		Updates(payment).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, provider domain.Provider, reference string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_reference = ? AND is_deleted = ?", provider, reference, false).
		Order("id ASC").
		Take(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, externalID string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repo) SaveEventResult(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	return db.WithContext(ctx).Model(event).
		Select("business_id", "payment_id", "processed", "processed_at", "error").
		Updates(event).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, businessID snowflake.ID, afterID int64, pageSize int) ([]*domain.WebhookEvent, error) {
	var events []*domain.WebhookEvent
	query := option.WithCursor(afterID, pageSize).Apply(db.WithContext(ctx).Where("business_id = ?", businessID))
	err := query.Find(&events).Error
	return events, err
}
