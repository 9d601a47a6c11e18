package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"study-booking-api/authz"
	"study-booking-api/models"
)

// GetAllSessions lists every session whose study is still live. Public.
func GetAllSessions(c *fiber.Ctx) error {
	sessions, err := hierarchy().ListSessions(c.Context())
	if err != nil {
		return storeError(c, err, "Sessions not found", "Failed to fetch sessions")
	}
	return c.JSON(sessions)
}

// GetSession returns a single session with its slots. Public.
func GetSession(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	session, err := hierarchy().GetSession(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Session not found", "Failed to fetch session")
	}
	return c.JSON(session)
}

// GetStudySessions lists a study's sessions. Public.
func GetStudySessions(c *fiber.Ctx) error {
	studyID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid study ID",
		})
	}

	sessions, err := hierarchy().ListSessionsByStudy(c.Context(), uint(studyID))
	if err != nil {
		return storeError(c, err, "Study not found", "Failed to fetch sessions")
	}
	return c.JSON(sessions)
}

// CreateSession attaches a dated session to a study. Study owner only.
func CreateSession(c *fiber.Ctx) error {
	type CreateInput struct {
		StudyID  uint      `json:"study_id"`
		Location string    `json:"location"`
		Date     time.Time `json:"date"`
	}

	input := new(CreateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.StudyID == 0 || input.Location == "" || input.Date.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "study_id, location and date are required",
		})
	}

	study, err := hierarchy().GetStudy(c.Context(), input.StudyID)
	if err != nil {
		return storeError(c, err, "Study not found", "Failed to fetch study")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	session := models.Session{
		StudyID:  input.StudyID,
		Location: input.Location,
		Date:     input.Date,
	}
	if err := hierarchy().CreateSession(c.Context(), &session); err != nil {
		return storeError(c, err, "Study not found", "Failed to create session")
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// DeleteSession soft-deletes a session and hides its slots and bookings.
// Study owner only.
func DeleteSession(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	study, err := hierarchy().StudyOfSession(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Session not found", "Failed to fetch session")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	if err := hierarchy().DeleteSession(c.Context(), uint(id)); err != nil {
		return storeError(c, err, "Session not found", "Failed to delete session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
