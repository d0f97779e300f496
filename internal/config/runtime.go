package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RuntimeConfig holds operational knobs that may change without a restart.
type RuntimeConfig struct {
	SweepInterval      time.Duration `mapstructure:"sweepInterval"`
	SweepTimeout       time.Duration `mapstructure:"sweepTimeout"`
	RecentInvoiceLimit int           `mapstructure:"recentInvoiceLimit"`
	PaymentRatePerSec  float64       `mapstructure:"paymentRatePerSec"`
	PaymentBurst       int           `mapstructure:"paymentBurst"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		SweepInterval:      time.Hour,
		SweepTimeout:       2 * time.Minute,
		RecentInvoiceLimit: 5,
		PaymentRatePerSec:  5,
		PaymentBurst:       10,
	}
}

// RuntimeConfigHolder serves the current runtime config and hot-reloads the
// backing YAML file when it changes on disk.
type RuntimeConfigHolder struct {
	current atomic.Value // holds RuntimeConfig
}

func NewRuntimeConfigHolder() (*RuntimeConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoiced")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoiced")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultRuntimeConfig()
		v.SetDefault("runtime.sweepInterval", defaults.SweepInterval)
		v.SetDefault("runtime.sweepTimeout", defaults.SweepTimeout)
		v.SetDefault("runtime.recentInvoiceLimit", defaults.RecentInvoiceLimit)
		v.SetDefault("runtime.paymentRatePerSec", defaults.PaymentRatePerSec)
		v.SetDefault("runtime.paymentBurst", defaults.PaymentBurst)
	}

	var cfg RuntimeConfig
	if err := v.UnmarshalKey("runtime", &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validateRuntimeConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RuntimeConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RuntimeConfig
		if err := v.UnmarshalKey("runtime", &updated); err != nil {
			log.Printf("[runtime-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validateRuntimeConfig(updated); err != nil {
			log.Printf("[runtime-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[runtime-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRuntimeConfigHolder wraps a fixed config with no file watching.
func NewStaticRuntimeConfigHolder(cfg RuntimeConfig) *RuntimeConfigHolder {
	holder := &RuntimeConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (h *RuntimeConfigHolder) Get() RuntimeConfig {
	return h.current.Load().(RuntimeConfig)
}

func (c RuntimeConfig) withDefaults() RuntimeConfig {
	defaults := DefaultRuntimeConfig()
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaults.SweepInterval
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	if c.RecentInvoiceLimit <= 0 {
		c.RecentInvoiceLimit = defaults.RecentInvoiceLimit
	}
	if c.PaymentRatePerSec <= 0 {
		c.PaymentRatePerSec = defaults.PaymentRatePerSec
	}
	if c.PaymentBurst <= 0 {
		c.PaymentBurst = defaults.PaymentBurst
	}
	return c
}

func validateRuntimeConfig(cfg RuntimeConfig) error {
	if cfg.SweepInterval < time.Minute {
		return errors.New("runtime.sweepInterval must be at least 1m")
	}
	if cfg.SweepTimeout <= 0 {
		return errors.New("runtime.sweepTimeout must be positive")
	}
	return nil
}
