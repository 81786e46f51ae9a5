package migration

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/internal/seed"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateAndSeed(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	for _, model := range Models() {
		assert.True(t, conn.Migrator().HasTable(model), "%T", model)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, seed.EnsureBusinessTypes(ctx, conn, node))
	require.NoError(t, seed.EnsureBusinessTypes(ctx, conn, node))

	var types int64
	require.NoError(t, conn.Model(&businessdomain.BusinessType{}).Count(&types).Error)
	assert.Equal(t, int64(6), types)

	assert.Error(t, seed.EnsureStaffAdmin(ctx, conn, node, "root@bizcore.local", "short"))
	require.NoError(t, seed.EnsureStaffAdmin(ctx, conn, node, " Root@Bizcore.local ", "s3cret-pass"))
	require.NoError(t, seed.EnsureStaffAdmin(ctx, conn, node, "root@bizcore.local", ""))

	var user authdomain.User
	require.NoError(t, conn.Where("email = ?", "root@bizcore.local").Take(&user).Error)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsActive)
	assert.NoError(t, seed.EnsureStaffAdmin(ctx, conn, node, "", ""))
}
