package reference

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestNextIsConsecutivePerBusinessAndDay(t *testing.T) {
	conn, err := db.NewTest(&domain.Sequence{})
	require.NoError(t, err)
	gen := NewGenerator(NewRepository(), zap.NewNop())
	ctx := context.Background()

	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	business := snowflake.ID(1)

	var first, second, otherDay, otherBusiness string
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		if first, err = gen.Next(ctx, tx, business, domain.DocOrder, day); err != nil {
			return err
		}
		if second, err = gen.Next(ctx, tx, business, domain.DocOrder, day.Add(time.Hour)); err != nil {
			return err
		}
		if otherDay, err = gen.Next(ctx, tx, business, domain.DocOrder, day.AddDate(0, 0, 1)); err != nil {
			return err
		}
		otherBusiness, err = gen.Next(ctx, tx, snowflake.ID(2), domain.DocOrder, day)
		return err
	}))

	assert.Equal(t, "ORD-20240501-0001", first)
	assert.Equal(t, "ORD-20240501-0002", second)
	assert.Equal(t, "ORD-20240502-0001", otherDay)
	assert.Equal(t, "ORD-20240501-0001", otherBusiness)
}

func TestCustomerNumbersIgnoreTheDay(t *testing.T) {
	conn, err := db.NewTest(&domain.Sequence{})
	require.NoError(t, err)
	gen := NewGenerator(NewRepository(), zap.NewNop())

	a, err := gen.NextCustomerNumber(context.Background(), conn, 1, "cafe-central")
	require.NoError(t, err)
	b, err := gen.NextCustomerNumber(context.Background(), conn, 1, "cafe-central")
	require.NoError(t, err)

	assert.Equal(t, "CAF-0001", a)
	assert.Equal(t, "CAF-0002", b)
}
