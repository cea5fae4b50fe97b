package blob

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/arc20-me/realm-stack/pkg/store"
)

// Provider constants
const (
	ProviderBadger = "badger"
	ProviderS3     = "s3"
)

// Config holds blob storage configuration.
type Config struct {
	Provider string             `mapstructure:"provider"` // badger, s3
	Badger   store.BadgerConfig `mapstructure:"badger"`
	S3       S3Config           `mapstructure:"s3"`
}

// SetDefaults sets viper defaults for blob configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"provider", ProviderBadger)
	v.SetDefault(p+"badger.path", "~/.realm/blobs")
	v.SetDefault(p+"badger.in_memory", false)
	v.SetDefault(p+"s3.region", "auto")
	v.SetDefault(p+"s3.path_style", false)
}

// Services holds initialized blob services.
type Services struct {
	Storage Storage
	closer  func() error
}

// Initialize creates the configured blob storage.
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch c.Provider {
	case ProviderBadger, "":
		kv, err := store.NewBadgerStore(&c.Badger, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger blob store: %w", err)
		}
		s := NewEmbeddedStorage(kv)
		return &Services{Storage: s, closer: s.Close}, nil

	case ProviderS3:
		s, err := NewS3Storage(ctx, &c.S3, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 blob store: %w", err)
		}
		return &Services{Storage: s}, nil

	default:
		return nil, fmt.Errorf("unknown blob provider: %s", c.Provider)
	}
}

// Embedded reports whether objects are served by this process rather than an external bucket.
func (s *Services) Embedded() bool {
	_, ok := s.Storage.(*EmbeddedStorage)
	return ok
}

// Close releases the storage.
func (s *Services) Close() error {
	if s != nil && s.closer != nil {
		return s.closer()
	}
	return nil
}
