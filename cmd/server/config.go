package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/swaggo/swag"

	"github.com/arc20-me/realm-stack/pkg/assets"
	"github.com/arc20-me/realm-stack/pkg/blob"
	"github.com/arc20-me/realm-stack/pkg/electrumx"
	"github.com/arc20-me/realm-stack/pkg/logging"
	"github.com/arc20-me/realm-stack/pkg/media"
	"github.com/arc20-me/realm-stack/pkg/proxy"
	"github.com/arc20-me/realm-stack/pkg/realm"
	"github.com/arc20-me/realm-stack/pkg/records"
	"github.com/arc20-me/realm-stack/pkg/sequence"
	"github.com/arc20-me/realm-stack/pkg/store"
	"github.com/arc20-me/realm-stack/pkg/worker"
)

// Config holds the complete server configuration
type Config struct {
	Log    logging.Config `mapstructure:"log"`
	Server ServerConfig   `mapstructure:"server"`

	// Upstream and media resolution
	Indexer electrumx.Config `mapstructure:"indexer"`
	Media   media.Config     `mapstructure:"media"`

	// Storage
	Blob    blob.Config    `mapstructure:"blob"`
	Cache   store.Config   `mapstructure:"cache"`
	Records records.Config `mapstructure:"records"`

	// Side effects
	Sequence sequence.Config      `mapstructure:"sequence"`
	Worker   worker.DefaultConfig `mapstructure:"worker"`

	Proxy proxy.Config `mapstructure:"proxy"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	BasePath       string   `mapstructure:"base_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Services holds all initialized services
type Services struct {
	Indexer  *electrumx.Services
	Media    *media.Services
	Blob     *blob.Services
	Cache    *store.Services
	Records  *records.Services
	Pool     *worker.Pool
	Assets   *assets.Materializer
	Pipeline *realm.Pipeline
	Realm    *realm.Service
}

// SetDefaults configures viper defaults for all settings
func (c *Config) SetDefaults(v *viper.Viper) {
	c.Log.SetDefaults(v, "log")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.allowed_origins", []string{"https://arc20.me", "http://localhost:5173"})

	// Cascade to package configs
	c.Indexer.SetDefaults(v, "indexer")
	c.Media.SetDefaults(v, "media")
	c.Blob.SetDefaults(v, "blob")
	c.Cache.SetDefaults(v, "cache")
	c.Records.SetDefaults(v, "records")
	c.Sequence.SetDefaults(v, "sequence")
	c.Worker.SetDefaults(v, "worker")
	c.Proxy.SetDefaults(v, "proxy")
}

// Initialize creates all services from the configuration
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger) (_ *Services, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Services{}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	if svc.Indexer, err = c.Indexer.Initialize(ctx, logging.Component(logger, "indexer")); err != nil {
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	if svc.Media, err = c.Media.Initialize(ctx, logging.Component(logger, "media"), svc.Indexer); err != nil {
		return nil, fmt.Errorf("failed to initialize media: %w", err)
	}
	if svc.Blob, err = c.Blob.Initialize(ctx, logging.Component(logger, "blob")); err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	if svc.Cache, err = c.Cache.Initialize(ctx, logging.Component(logger, "cache")); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if svc.Records, err = c.Records.Initialize(ctx, logging.Component(logger, "records")); err != nil {
		return nil, fmt.Errorf("failed to initialize records: %w", err)
	}

	svc.Pool = c.Worker.NewPool(logger)

	svc.Assets = assets.NewMaterializer(svc.Blob.Storage, svc.Media.Resolver, svc.Pool, assets.Options{
		PublicBase: c.Media.PublicBase,
		Inline:     c.Media.Inline,
	}, logging.Component(logger, "assets"))

	pipelineDeps := &realm.PipelineDeps{
		Indexer: svc.Indexer.Client,
		Methods: svc.Indexer.Methods,
		Assets:  svc.Assets,
		Pool:    svc.Pool,
		Logger:  logging.Component(logger, "realm"),
	}
	if notifier := c.Sequence.NewClient(logging.Component(logger, "sequence")); notifier != nil {
		pipelineDeps.Notifier = notifier
	}
	svc.Pipeline = realm.NewPipeline(pipelineDeps)

	svc.Realm = realm.NewService(&realm.ServiceDeps{
		Pipeline: svc.Pipeline,
		Cache:    svc.Cache.Store,
		CacheTTL: svc.Cache.TTL,
		Records:  svc.Records.Repository,
		Pool:     svc.Pool,
		Logger:   logging.Component(logger, "realm"),
	})

	return svc, nil
}

// RegisterRoutes registers all HTTP routes on the Fiber app
func (c *Config) RegisterRoutes(app *fiber.App, svc *Services) {
	api := app.Group(c.Server.BasePath)

	realm.NewRoutes(svc.Realm, slog.Default()).Register(api, "/realm")

	if c.Proxy.Enabled {
		proxy.NewRoutes(&proxy.RoutesDeps{
			Indexer: svc.Indexer.Client,
			Cache:   svc.Cache.Store,
			TTL:     c.Proxy.TTL,
			Origins: c.Server.AllowedOrigins,
		}).Register(app, "/proxy")
	}

	// Stored media is only served here when there is no external bucket
	if svc.Blob.Embedded() {
		assets.NewRoutes(svc.Blob.Storage, slog.Default()).Register(app, "/images")
	}

	api.Get("/health", healthHandler(svc))

	registerDocsRoutes(app)
}

// registerDocsRoutes serves the OpenAPI document and the Scalar reference UI
func registerDocsRoutes(app *fiber.App) {
	app.Get("/api-spec/swagger.json", func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc()
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "api spec not registered",
			})
		}
		c.Set("Content-Type", fiber.MIMEApplicationJSON)
		return c.SendString(doc)
	})

	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!doctype html>
<html>
<head>
    <title>Realm Stack API</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
    <script id="api-reference" data-url="/api-spec/swagger.json"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
		c.Set("Content-Type", "text/html")
		return c.SendString(html)
	})
}

// Close closes all services, draining background work before the stores it writes to.
func (svc *Services) Close() error {
	if svc == nil {
		return nil
	}
	var errs []error

	if svc.Pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := svc.Pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("worker shutdown: %w", err))
		}
		cancel()
	}

	if svc.Records != nil {
		if err := svc.Records.Close(); err != nil {
			errs = append(errs, fmt.Errorf("records close: %w", err))
		}
	}

	if svc.Cache != nil {
		if err := svc.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if svc.Blob != nil {
		if err := svc.Blob.Close(); err != nil {
			errs = append(errs, fmt.Errorf("blob close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// LoadConfig loads configuration from file and environment.
// Configuration is loaded from YAML files in order of precedence:
// 1. Explicit configPath argument (if provided)
// 2. ./config.yaml
// 3. ~/.realm/config.yaml
// 4. /etc/realm/config.yaml
// Environment variables with prefix REALM_ override config file values.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	cfg := &Config{}
	cfg.SetDefaults(v)

	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvPrefix("REALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.realm")
		v.AddConfigPath("/etc/realm")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
