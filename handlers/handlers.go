package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/plateful/plateful-server/database"
	"github.com/plateful/plateful-server/services"
	"github.com/plateful/plateful-server/utils"
)

// WebApp bundles the handler dependencies.
type WebApp struct {
	Notes   *services.NoteService
	Recipes *services.RecipeService
	DB      *database.DB
}

func NewWebApp(notes *services.NoteService, recipes *services.RecipeService, db *database.DB) *WebApp {
	return &WebApp{
		Notes:   notes,
		Recipes: recipes,
		DB:      db,
	}
}

func (app *WebApp) HandleHealth(c *fiber.Ctx) error {
	if err := app.DB.Ping(c.Context()); err != nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "UNHEALTHY", "database unreachable", nil)
	}
	return utils.SendSuccess(c, fiber.Map{"status": "ok"}, "")
}

// sendServiceError maps service-layer errors onto the HTTP surface. Missing
// and not-owned records share one opaque NOT_FOUND response.
func sendServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return utils.SendUnauthorized(c, "authentication required")
	case errors.Is(err, services.ErrNotFound):
		return utils.SendNotFound(c, "record not found")
	case errors.Is(err, services.ErrValidation):
		return utils.SendBadRequest(c, err.Error(), nil)
	default:
		return utils.SendInternalServerError(c, "internal error")
	}
}
