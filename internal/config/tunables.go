package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Tunables are operational knobs that can change without a restart.
type Tunables struct {
	// LoyaltyPointsPerUnit is how many currency units earn one loyalty point on completed orders.
	LoyaltyPointsPerUnit int64 `mapstructure:"loyaltyPointsPerUnit"`
	// LowStockNotifications toggles owner notifications when confirmation leaves stock at or below minimum.
	LowStockNotifications bool    `mapstructure:"lowStockNotifications"`
	LoginRatePerSecond    float64 `mapstructure:"loginRatePerSecond"`
	LoginBurst            int     `mapstructure:"loginBurst"`
	ConfirmLockSeconds    int     `mapstructure:"confirmLockSeconds"`
}

func DefaultTunables() Tunables {
	return Tunables{
		LoyaltyPointsPerUnit:  1000,
		LowStockNotifications: true,
		LoginRatePerSecond:    0.2,
		LoginBurst:            5,
		ConfirmLockSeconds:    15,
	}
}

type TunablesHolder struct {
	current atomic.Value // holds Tunables
}

// NewStaticTunables returns a holder that never reloads.
func NewStaticTunables(t Tunables) *TunablesHolder {
	holder := &TunablesHolder{}
	holder.current.Store(t)
	return holder
}

// NewTunablesHolder reads tunables.yml and hot-reloads it on change.
func NewTunablesHolder(cfg Config, log *zap.Logger) (*TunablesHolder, error) {
	v := viper.New()

	if cfg.TunablesPath != "" {
		v.SetConfigFile(cfg.TunablesPath)
	} else {
		v.SetConfigName("tunables")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/bizcore")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BIZCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTunables()
	v.SetDefault("tunables.loyaltyPointsPerUnit", defaults.LoyaltyPointsPerUnit)
	v.SetDefault("tunables.lowStockNotifications", defaults.LowStockNotifications)
	v.SetDefault("tunables.loginRatePerSecond", defaults.LoginRatePerSecond)
	v.SetDefault("tunables.loginBurst", defaults.LoginBurst)
	v.SetDefault("tunables.confirmLockSeconds", defaults.ConfirmLockSeconds)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var t Tunables
	if err := v.UnmarshalKey("tunables", &t); err != nil {
		return nil, err
	}
	if err := validateTunables(t); err != nil {
		return nil, err
	}

	holder := NewStaticTunables(t)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Tunables
		if err := v.UnmarshalKey("tunables", &updated); err != nil {
			log.Warn("tunables reload failed", zap.Error(err))
			return
		}
		if err := validateTunables(updated); err != nil {
			log.Warn("invalid tunables ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tunables reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *TunablesHolder) Get() Tunables {
	if h == nil {
		return DefaultTunables()
	}
	return h.current.Load().(Tunables)
}

func validateTunables(t Tunables) error {
	if t.LoyaltyPointsPerUnit < 0 {
		return errors.New("tunables.loyaltyPointsPerUnit cannot be negative")
	}
	if t.LoginRatePerSecond <= 0 || t.LoginBurst <= 0 {
		return errors.New("tunables.login rate and burst must be positive")
	}
	if t.ConfirmLockSeconds <= 0 {
		return errors.New("tunables.confirmLockSeconds must be positive")
	}
	return nil
}
