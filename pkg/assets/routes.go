package assets

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arc20-me/realm-stack/pkg/blob"
)

// Routes serves stored media for deployments without an external bucket.
type Routes struct {
	storage blob.Storage
	logger  *slog.Logger
}

// NewRoutes creates a new routes handler
func NewRoutes(storage blob.Storage, logger *slog.Logger) *Routes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Routes{
		storage: storage,
		logger:  logger,
	}
}

// Register registers the routes on a Fiber router
func (r *Routes) Register(router fiber.Router, prefix string) {
	g := router.Group(prefix)
	g.Get("/*", r.HandleImage)
}

// HandleImage serves a stored media object
// @Summary Get stored media
// @Description Serve a re-hosted media object by content id or URL hash
// @Tags assets
// @Produce octet-stream
// @Param key path string true "Content id or URL hash"
// @Success 200 {file} binary "Content"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Not found"
// @Router /images/{key} [get]
func (r *Routes) HandleImage(c *fiber.Ctx) error {
	key := c.Params("*")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key is required",
		})
	}

	obj, err := r.storage.Get(c.UserContext(), ObjectKey(key))
	if errors.Is(err, blob.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}
	if err != nil {
		r.logger.Error("blob read failed", "key", key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "storage unavailable",
		})
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Length", strconv.Itoa(len(obj.Data)))
	c.Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Send(obj.Data)
}
