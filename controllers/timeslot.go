package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"study-booking-api/authz"
	"study-booking-api/models"
	"study-booking-api/store"
)

// GetAllTimeSlots lists every visible slot with derived occupancy, ordered
// by start time. Public.
func GetAllTimeSlots(c *fiber.Ctx) error {
	slots, err := hierarchy().ListTimeSlots(c.Context())
	if err != nil {
		return storeError(c, err, "Time slots not found", "Failed to fetch time slots")
	}
	return c.JSON(slots)
}

// GetTimeSlot returns a slot with its derived occupancy. Public.
func GetTimeSlot(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time slot ID",
		})
	}

	slot, err := hierarchy().GetTimeSlot(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch time slot")
	}
	return c.JSON(slot)
}

// GetSessionTimeSlots lists a session's slots ordered by start time. Public.
func GetSessionTimeSlots(c *fiber.Ctx) error {
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	slots, err := hierarchy().ListTimeSlotsBySession(c.Context(), uint(sessionID))
	if err != nil {
		return storeError(c, err, "Session not found", "Failed to fetch time slots")
	}
	return c.JSON(slots)
}

// CreateTimeSlot adds a capacity-bounded window to a session. Study owner
// only.
func CreateTimeSlot(c *fiber.Ctx) error {
	type CreateInput struct {
		SessionID uint      `json:"session_id"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
		Capacity  int       `json:"capacity"`
	}

	input := new(CreateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.SessionID == 0 || input.StartTime.IsZero() || input.EndTime.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id, start_time and end_time are required",
		})
	}

	study, err := hierarchy().StudyOfSession(c.Context(), input.SessionID)
	if err != nil {
		return storeError(c, err, "Session not found", "Failed to fetch session")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	slot := models.TimeSlot{
		SessionID: input.SessionID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Capacity:  input.Capacity,
	}
	if err := hierarchy().CreateTimeSlot(c.Context(), &slot); err != nil {
		return storeError(c, err, "Session not found", "Failed to create time slot")
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

// UpdateTimeSlot changes a slot's window or capacity. Capacity can never
// drop below the bookings already admitted. Study owner only.
func UpdateTimeSlot(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time slot ID",
		})
	}

	type UpdateInput struct {
		StartTime *time.Time `json:"start_time"`
		EndTime   *time.Time `json:"end_time"`
		Capacity  *int       `json:"capacity"`
	}
	input := new(UpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	study, err := hierarchy().StudyOfSlot(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch time slot")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	slot, err := hierarchy().UpdateTimeSlot(c.Context(), uint(id), store.TimeSlotUpdate{
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Capacity:  input.Capacity,
	})
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to update time slot")
	}
	return c.JSON(slot)
}

// DeleteTimeSlot soft-deletes a slot; its bookings stay on record but leave
// every default read. Study owner only.
func DeleteTimeSlot(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time slot ID",
		})
	}

	study, err := hierarchy().StudyOfSlot(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Time slot not found", "Failed to fetch time slot")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	if err := hierarchy().DeleteTimeSlot(c.Context(), uint(id)); err != nil {
		return storeError(c, err, "Time slot not found", "Failed to delete time slot")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
