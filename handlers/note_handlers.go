package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/plateful/plateful-server/middleware"
	"github.com/plateful/plateful-server/models"
	"github.com/plateful/plateful-server/utils"
)

func (app *WebApp) HandleListNotes(c *fiber.Ctx) error {
	notes, err := app.Notes.List(c.Context(), middleware.Subject(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, notes, "")
}

func (app *WebApp) HandleGetNote(c *fiber.Ctx) error {
	note, err := app.Notes.Get(c.Context(), middleware.Subject(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, note, "")
}

func (app *WebApp) HandleCreateNote(c *fiber.Ctx) error {
	var req models.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "invalid request body", nil)
	}

	note, err := app.Notes.Create(c.Context(), middleware.Subject(c), req.Title, req.Content, req.WantSummary)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendCreated(c, note, "note created")
}

func (app *WebApp) HandleUpdateNote(c *fiber.Ctx) error {
	var req models.UpdateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "invalid request body", nil)
	}

	note, err := app.Notes.Update(c.Context(), middleware.Subject(c), c.Params("id"), req.Title, req.Content, req.WantSummary)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, note, "note updated")
}

func (app *WebApp) HandleDeleteNote(c *fiber.Ctx) error {
	if err := app.Notes.Delete(c.Context(), middleware.Subject(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendNoContent(c)
}
