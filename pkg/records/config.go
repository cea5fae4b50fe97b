package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/arc20-me/realm-stack/pkg/store"
)

// Provider constants
const (
	ProviderBadger   = "badger"
	ProviderPostgres = "postgres"
)

// Config holds durable record store configuration.
type Config struct {
	Provider string             `mapstructure:"provider"` // badger, postgres
	Badger   store.BadgerConfig `mapstructure:"badger"`
	Postgres PostgresConfig     `mapstructure:"postgres"`
}

// PostgresConfig holds postgres connection settings.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SetDefaults sets viper defaults for record configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"provider", ProviderBadger)
	v.SetDefault(p+"badger.path", "~/.realm/records")
	v.SetDefault(p+"badger.in_memory", false)
	v.SetDefault(p+"postgres.dsn", "")
}

// Services holds the initialized repository.
type Services struct {
	Repository Repository
	closer     func() error
}

// Initialize opens the configured repository.
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch c.Provider {
	case ProviderBadger, "":
		kv, err := store.NewBadgerStore(&c.Badger, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger records: %w", err)
		}
		repo := NewEmbeddedRepository(kv)
		return &Services{Repository: repo, closer: repo.Close}, nil

	case ProviderPostgres:
		if c.Postgres.DSN == "" {
			return nil, fmt.Errorf("records.postgres.dsn is required")
		}
		db, err := OpenPostgres(c.Postgres.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres records: %w", err)
		}
		logger.Info("connected to postgres records store")
		repo := NewPostgresRepository(db)
		return &Services{Repository: repo, closer: repo.Close}, nil

	default:
		return nil, fmt.Errorf("unknown records provider: %s", c.Provider)
	}
}

// Close closes the repository.
func (s *Services) Close() error {
	if s != nil && s.closer != nil {
		return s.closer()
	}
	return nil
}
