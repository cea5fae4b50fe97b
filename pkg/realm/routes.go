package realm

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Routes handles HTTP routes for realm lookups
type Routes struct {
	service *Service
	logger  *slog.Logger
}

// NewRoutes creates a new routes handler
func NewRoutes(service *Service, logger *slog.Logger) *Routes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Routes{
		service: service,
		logger:  logger,
	}
}

// Register registers the routes on a Fiber router
func (r *Routes) Register(router fiber.Router, prefix string) {
	g := router.Group(prefix)
	g.Get("/:realm", r.HandleRealm)
}

// HandleRealm resolves a realm name
// @Summary Resolve realm
// @Description Resolve a realm name into its atomical ids, owner and profile with re-hosted media
// @Tags realm
// @Produce json
// @Param realm path string true "Realm name"
// @Param action query string false "Pass update to bypass caches and rewrite the stored record"
// @Success 200 {object} Response
// @Failure 500 {object} map[string]string "Internal error"
// @Router /api/realm/{realm} [get]
func (r *Routes) HandleRealm(c *fiber.Ctx) error {
	// Params aliases the request buffer and the name outlives the request in background tasks.
	name := utils.CopyString(c.Params("realm"))
	body, err := r.service.Lookup(c.UserContext(), name, c.Query("action"))
	if err != nil {
		r.logger.Error("realm lookup failed", "realm", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "lookup failed",
		})
	}
	c.Set("Content-Type", fiber.MIMEApplicationJSON)
	return c.Send(body)
}
