package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/plateful/plateful-server/middleware"
	"github.com/plateful/plateful-server/models"
	"github.com/plateful/plateful-server/utils"
)

func (app *WebApp) HandleListRecipes(c *fiber.Ctx) error {
	recipes, err := app.Recipes.List(c.Context(), middleware.Subject(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, recipes, "")
}

func (app *WebApp) HandleGetRecipe(c *fiber.Ctx) error {
	recipe, err := app.Recipes.Get(c.Context(), middleware.Subject(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, recipe, "")
}

// HandleCreateRecipe accepts pasted recipe text and returns the pending
// placeholder immediately; the parse happens in the background.
func (app *WebApp) HandleCreateRecipe(c *fiber.Ctx) error {
	var req models.CreateRecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "invalid request body", nil)
	}

	recipe, err := app.Recipes.Create(c.Context(), middleware.Subject(c), req.RecipeText)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendCreated(c, recipe, "recipe queued for parsing")
}

func (app *WebApp) HandleSearchRecipes(c *fiber.Ctx) error {
	recipes, err := app.Recipes.Search(c.Context(), middleware.Subject(c), c.Query("q"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, recipes, "")
}

func (app *WebApp) HandleDeleteRecipe(c *fiber.Ctx) error {
	if err := app.Recipes.Delete(c.Context(), middleware.Subject(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendNoContent(c)
}
