package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"study-booking-api/db"
	"study-booking-api/store"
	"study-booking-api/utils"
)

// hierarchy returns the store bound to the live DB handle.
func hierarchy() *store.Store {
	return store.New(db.DB)
}

// callerID reads the verified identity placed by middleware.Protected.
func callerID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// storeError maps store sentinels onto the HTTP taxonomy. notFoundMsg names
// the entity for the 404 body; failMsg describes the operation for the 500
// body.
func storeError(c *fiber.Ctx, err error, notFoundMsg, failMsg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundMsg,
		})
	case errors.Is(err, store.ErrSlotFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Slot is full",
		})
	case errors.Is(err, store.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: failMsg,
			Error:   err.Error(),
		})
	}
}
