package media

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/arc20-me/realm-stack/pkg/electrumx"
)

// Defaults
const (
	DefaultPublicBase = "https://static.arc20.me/images/"
	DefaultOrdBase    = "https://ordinals.com/content/"
	DefaultMaxBytes   = 10 << 20
)

// Config holds media configuration.
type Config struct {
	PublicBase   string        `mapstructure:"public_base"`   // Public URL prefix for stored media
	OrdBase      string        `mapstructure:"ord_base"`      // Ordinals content endpoint
	Inline       bool          `mapstructure:"inline"`        // Return data URIs for freshly resolved media
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // Timeout for content and external URL fetches
	MaxBytes     int64         `mapstructure:"max_bytes"`     // Largest payload accepted from a fetch
}

// SetDefaults sets viper defaults for media configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"public_base", DefaultPublicBase)
	v.SetDefault(p+"ord_base", DefaultOrdBase)
	v.SetDefault(p+"inline", true)
	v.SetDefault(p+"fetch_timeout", 30*time.Second)
	v.SetDefault(p+"max_bytes", DefaultMaxBytes)
}

// Services holds initialized media services.
type Services struct {
	Resolver *Resolver
}

// Initialize creates the media resolver on top of the indexer services.
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger, indexer *electrumx.Services) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	resolver := NewResolver(indexer.Client, ResolverOptions{
		Methods:    indexer.Methods,
		TxMirror:   indexer.TxMirror,
		HTTPClient: &http.Client{Timeout: timeout},
		OrdBase:    c.OrdBase,
		MaxBytes:   c.MaxBytes,
	}, logger)

	return &Services{Resolver: resolver}, nil
}
