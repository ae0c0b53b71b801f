package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StockPolicy holds tunables applied when inventory records are created lazily.
type StockPolicy struct {
	DefaultMinAlertStock float64 `mapstructure:"defaultMinAlertStock"`
	DefaultMaxStockLevel float64 `mapstructure:"defaultMaxStockLevel"`
	// LowStockEvents toggles the inventory.low_stock outbox event.
	LowStockEvents bool `mapstructure:"lowStockEvents"`
}

func DefaultStockPolicy() StockPolicy {
	return StockPolicy{
		DefaultMinAlertStock: 0,
		DefaultMaxStockLevel: 0,
		LowStockEvents:       true,
	}
}

type StockPolicyHolder struct {
	current atomic.Value // holds StockPolicy
}

// NewStaticStockPolicyHolder returns a holder that never reloads.
func NewStaticStockPolicyHolder(policy StockPolicy) *StockPolicyHolder {
	holder := &StockPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewStockPolicyHolder(cfg Config) (*StockPolicyHolder, error) {
	v := viper.New()

	if cfg.StockPolicyPath != "" {
		v.SetConfigFile(cfg.StockPolicyPath)
	} else {
		v.SetConfigName("stock_policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/coretrack")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CORETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStockPolicy()
	v.SetDefault("inventory.defaultMinAlertStock", defaults.DefaultMinAlertStock)
	v.SetDefault("inventory.defaultMaxStockLevel", defaults.DefaultMaxStockLevel)
	v.SetDefault("inventory.lowStockEvents", defaults.LowStockEvents)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var policy StockPolicy
	if err := v.UnmarshalKey("inventory", &policy); err != nil {
		return nil, err
	}
	if err := validateStockPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticStockPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated StockPolicy
		if err := v.UnmarshalKey("inventory", &updated); err != nil {
			log.Printf("[stock-policy] reload failed: %v", err)
			return
		}
		if err := validateStockPolicy(updated); err != nil {
			log.Printf("[stock-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[stock-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *StockPolicyHolder) Get() StockPolicy {
	if h == nil {
		return DefaultStockPolicy()
	}
	return h.current.Load().(StockPolicy)
}

func validateStockPolicy(p StockPolicy) error {
	if p.DefaultMinAlertStock < 0 {
		return errors.New("inventory.defaultMinAlertStock cannot be negative")
	}
	if p.DefaultMaxStockLevel < 0 {
		return errors.New("inventory.defaultMaxStockLevel cannot be negative")
	}
	if p.DefaultMaxStockLevel > 0 && p.DefaultMaxStockLevel < p.DefaultMinAlertStock {
		return errors.New("inventory.defaultMaxStockLevel must not be below defaultMinAlertStock")
	}
	return nil
}
