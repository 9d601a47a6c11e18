package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"study-booking-api/authz"
	"study-booking-api/models"
)

// CreateBooking claims one unit of a slot's capacity. Public: participants
// book without an account. The admission decision happens atomically in the
// store; a full slot answers 409, an unresolvable one 404.
func CreateBooking(c *fiber.Ctx) error {
	type CreateInput struct {
		SlotID    uint      `json:"slot_id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		ConsentAt time.Time `json:"consent_at"`
	}

	input := new(CreateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	booking := models.Booking{
		SlotID:    input.SlotID,
		Name:      input.Name,
		Email:     input.Email,
		ConsentAt: input.ConsentAt,
	}
	if err := hierarchy().AdmitBooking(c.Context(), &booking); err != nil {
		return storeError(c, err, "Time slot not found", "Failed to create booking")
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

// GetBooking returns one booking. Study owner only, it carries participant
// contact details.
func GetBooking(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking ID",
		})
	}

	study, err := hierarchy().StudyOfBooking(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Booking not found", "Failed to fetch booking")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	booking, err := hierarchy().GetBooking(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Booking not found", "Failed to fetch booking")
	}
	return c.JSON(booking)
}

// GetSlotBookings lists the live bookings of a slot. Study owner only.
func GetSlotBookings(c *fiber.Ctx) error {
	slotID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time slot ID",
		})
	}

	study, err := hierarchy().StudyOfSlot(c.Context(), uint(slotID))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch time slot")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	bookings, err := hierarchy().ListBookingsBySlot(c.Context(), uint(slotID))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch bookings")
	}
	return c.JSON(bookings)
}

// GetSlotBookingsAudit lists every booking ever admitted to a slot,
// soft-deleted rows included. Study owner only. This endpoint stays
// reachable after the slot or its ancestors are deleted, so booking history
// survives the cascade.
func GetSlotBookingsAudit(c *fiber.Ctx) error {
	slotID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time slot ID",
		})
	}

	study, err := hierarchy().StudyOfSlotAnyState(c.Context(), uint(slotID))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch time slot")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	bookings, err := hierarchy().AuditBookingsBySlot(c.Context(), uint(slotID))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch bookings")
	}
	return c.JSON(bookings)
}

// DeleteBooking soft-deletes a booking, releasing one unit of slot
// capacity. Study owner only.
func DeleteBooking(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking ID",
		})
	}

	study, err := hierarchy().StudyOfBooking(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Booking not found", "Failed to fetch booking")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	if err := hierarchy().DeleteBooking(c.Context(), uint(id)); err != nil {
		return storeError(c, err, "Booking not found", "Failed to delete booking")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
