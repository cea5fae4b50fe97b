// Package proxy forwards raw indexer requests to the mirrors with response caching.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"

	"github.com/arc20-me/realm-stack/pkg/electrumx"
	"github.com/arc20-me/realm-stack/pkg/store"
)

// CacheKeyPrefix namespaces proxied responses in the cache.
const CacheKeyPrefix = "cache:proxy:"

// UnavailableMessage is the body returned when no mirror answers.
const UnavailableMessage = "All API servers are unavailable"

// Config holds proxy configuration.
type Config struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// SetDefaults sets viper defaults for proxy configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"enabled", true)
	v.SetDefault(p+"ttl", 10*time.Minute)
}

// Fetcher fetches a path from the indexer mirrors.
type Fetcher interface {
	Fetch(ctx context.Context, path string, opts ...electrumx.Option) (*electrumx.Reply, error)
}

// AllowedOrigin returns origin when it is in allowed, otherwise "".
func AllowedOrigin(allowed []string, origin string) string {
	if origin != "" && slices.Contains(allowed, origin) {
		return origin
	}
	return ""
}

// RoutesDeps holds dependencies for routes
type RoutesDeps struct {
	Indexer Fetcher
	Cache   store.Store // optional
	TTL     time.Duration
	Origins []string
	Logger  *slog.Logger
}

// Routes handles the proxy endpoint
type Routes struct {
	indexer Fetcher
	cache   store.Store
	ttl     time.Duration
	origins []string
	logger  *slog.Logger
}

// NewRoutes creates a new routes handler
func NewRoutes(deps *RoutesDeps) *Routes {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	var cache store.Store
	if deps.Cache != nil {
		cache = store.WithPrefix(deps.Cache, CacheKeyPrefix)
	}
	return &Routes{
		indexer: deps.Indexer,
		cache:   cache,
		ttl:     ttl,
		origins: deps.Origins,
		logger:  logger,
	}
}

// Register registers the routes on a Fiber router
func (r *Routes) Register(router fiber.Router, prefix string) {
	g := router.Group(prefix)
	g.Get("/*", r.HandleProxy)
}

// HandleProxy forwards a request to an indexer mirror
// @Summary Indexer proxy
// @Description Forward a method path such as blockchain.atomicals.get?params=["id"] to an indexer mirror. Successful JSON replies are cached.
// @Tags proxy
// @Produce json
// @Param path path string true "Method path"
// @Success 200 {object} map[string]interface{} "Indexer reply"
// @Failure 503 {string} string "All API servers are unavailable"
// @Router /proxy/{path} [get]
func (r *Routes) HandleProxy(c *fiber.Ctx) error {
	path := "/" + c.Params("*")
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		path += "?" + string(q)
	}
	if origin := AllowedOrigin(r.origins, c.Get(fiber.HeaderOrigin)); origin != "" {
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	}

	ctx := c.UserContext()
	if body, ok := r.cached(ctx, path); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderCacheControl, "public, max-age=600")
		return c.Send(body)
	}

	reply, err := r.indexer.Fetch(ctx, path)
	if err != nil {
		if !errors.Is(err, electrumx.ErrUnavailable) {
			r.logger.Warn("proxy fetch failed", "path", path, "error", err)
		}
		return c.Status(electrumx.StatusUnavailable).SendString(UnavailableMessage)
	}

	if json.Valid(reply.Body) && r.cache != nil {
		if err := r.cache.Set(ctx, []byte(path), reply.Body, r.ttl); err != nil {
			r.logger.Warn("proxy cache write failed", "path", path, "error", err)
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set("X-Indexer", reply.Mirror)
	return c.Send(reply.Body)
}

func (r *Routes) cached(ctx context.Context, path string) ([]byte, bool) {
	if r.cache == nil {
		return nil, false
	}
	body, err := r.cache.Get(ctx, []byte(path))
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			r.logger.Warn("proxy cache read failed", "path", path, "error", err)
		}
		return nil, false
	}
	return body, true
}
