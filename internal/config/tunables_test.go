package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTunablesHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.yml")
	content := []byte("tunables:\n  loyaltyPointsPerUnit: 500\n  lowStockNotifications: false\n  loginRatePerSecond: 1\n  loginBurst: 3\n  confirmLockSeconds: 5\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewTunablesHolder(Config{TunablesPath: path}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	require.Equal(t, int64(500), got.LoyaltyPointsPerUnit)
	require.False(t, got.LowStockNotifications)
	require.Equal(t, 3, got.LoginBurst)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *TunablesHolder
	require.Equal(t, DefaultTunables(), holder.Get())
}

func TestValidateTunablesRejectsNonPositiveBurst(t *testing.T) {
	tunables := DefaultTunables()
	tunables.LoginBurst = 0
	require.Error(t, validateTunables(tunables))
}
