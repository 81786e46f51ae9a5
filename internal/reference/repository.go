package reference

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/reference/domain"
	"gorm.io/gorm"
)

type repo struct{}

func NewRepository() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, businessID snowflake.ID, docType string, day int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reference_sequences SET value = value + 1, updated_at = ?
		 WHERE business_id = ? AND doc_type = ? AND day = ?`,
		time.Now().UTC(), businessID, docType, day,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, seq *domain.Sequence) error {
	return db.WithContext(ctx).Create(seq).Error
}

func (r *repo) Current(ctx context.Context, db *gorm.DB, businessID snowflake.ID, docType string, day int) (int64, error) {
	var seq domain.Sequence
	err := db.WithContext(ctx).
		Where("business_id = ? AND doc_type = ? AND day = ?", businessID, docType, day).
		Take(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}
