package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/internal/reference/format"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type generator struct {
	repo domain.Repository
	log  *zap.Logger
}

func NewGenerator(repo domain.Repository, log *zap.Logger) domain.Generator {
	return &generator{repo: repo, log: log.Named("reference.generator")}
}

func (g *generator) Next(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, docType string, at time.Time) (string, error) {
	seq, err := g.next(ctx, tx, businessID, docType, format.Day(at))
	if err != nil {
		return "", err
	}
	return format.Render(format.DocumentTemplate, docType, at.UTC(), seq)
}

func (g *generator) NextCustomerNumber(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, businessSlug string) (string, error) {
	seq, err := g.next(ctx, tx, businessID, domain.DocCustomer, 0)
	if err != nil {
		return "", err
	}
	return format.Render(format.CustomerTemplate, format.CustomerPrefix(businessSlug), time.Time{}, seq)
}

// next bumps the counter in place. The first allocation of a day inserts the
// row; losing that insert race means another writer created it, so the
// increment is retried once.
func (g *generator) next(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, docType string, day int) (int64, error) {
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := g.repo.Increment(ctx, tx, businessID, docType, day)
		if err != nil {
			return 0, err
		}
		if updated {
			return g.repo.Current(ctx, tx, businessID, docType, day)
		}

		err = g.insertFirst(ctx, tx, businessID, docType, day)
		if err == nil {
			return 1, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return 0, err
		}
		g.log.Debug("reference sequence insert raced", zap.String("doc_type", docType), zap.Int("day", day))
	}
	return 0, fmt.Errorf("allocate %s sequence for business %s: contention", docType, businessID)
}

// insertFirst runs in a savepoint so a duplicate-key failure does not abort the
// caller's transaction on postgres.
func (g *generator) insertFirst(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, docType string, day int) error {
	return tx.Transaction(func(sp *gorm.DB) error {
		return g.repo.Insert(ctx, sp, &domain.Sequence{
			BusinessID: businessID,
			DocType:    docType,
			Day:        day,
			Value:      1,
			UpdatedAt:  time.Now().UTC(),
		})
	})
}
