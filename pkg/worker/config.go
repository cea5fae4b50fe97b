package worker

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfig holds default worker configuration values.
type DefaultConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SetDefaults sets viper defaults for worker configuration.
func (c *DefaultConfig) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}

	v.SetDefault(p+"concurrency", 8)
	v.SetDefault(p+"timeout", "1m")
}

// NewPool creates a pool from the configured defaults.
func (c *DefaultConfig) NewPool(logger *slog.Logger) *Pool {
	return New(&Config{
		Concurrency: c.Concurrency,
		Timeout:     c.Timeout,
		Logger:      logger,
	})
}
