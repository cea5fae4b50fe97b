package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Provider constants
const (
	ProviderMemory = "memory"
	ProviderBadger = "badger"
	ProviderRedis  = "redis"
)

// Config holds store configuration.
type Config struct {
	Provider string        `mapstructure:"provider"` // memory, badger, redis
	TTL      time.Duration `mapstructure:"ttl"`      // Default expiry for cached entries
	Badger   BadgerConfig  `mapstructure:"badger"`   // Badger-specific config
	Redis    RedisConfig   `mapstructure:"redis"`    // Redis-specific config
}

// SetDefaults sets viper defaults for store configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"provider", ProviderMemory)
	v.SetDefault(p+"ttl", 10*time.Minute)
	v.SetDefault(p+"badger.path", "~/.realm/cache")
	v.SetDefault(p+"badger.in_memory", false)
	v.SetDefault(p+"redis.addr", "localhost:6379")
	v.SetDefault(p+"redis.password", "")
	v.SetDefault(p+"redis.db", 0)
}

// Services holds initialized store services.
type Services struct {
	Store Store
	TTL   time.Duration
}

// Initialize creates a Store from the configuration.
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := c.open(ctx, logger)
	if err != nil {
		return nil, err
	}
	return &Services{Store: s, TTL: c.TTL}, nil
}

func (c *Config) open(ctx context.Context, logger *slog.Logger) (Store, error) {
	switch c.Provider {
	case ProviderMemory, "": // Default to memory if empty
		logger.Info("using in-memory store")
		return NewMemoryStore(time.Minute), nil

	case ProviderBadger:
		s, err := NewBadgerStore(&c.Badger, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger store: %w", err)
		}
		return s, nil

	case ProviderRedis:
		s, err := NewRedisStore(ctx, &c.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store provider: %s", c.Provider)
	}
}

// Close closes the store.
func (s *Services) Close() error {
	if s != nil && s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
