package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"study-booking-api/authz"
	"study-booking-api/models"
	"study-booking-api/redis"
)

const studiesCacheKey = "studies:all"

func invalidateStudyCache() {
	if redis.Client != nil {
		redis.Client.Del(redis.Ctx, studiesCacheKey)
	}
}

// GetAllStudies returns every live study. Public, cached.
func GetAllStudies(c *fiber.Ctx) error {
	if redis.Client != nil {
		if cached, err := redis.Client.Get(redis.Ctx, studiesCacheKey).Result(); err == nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.SendString(cached)
		}
	}

	studies, err := hierarchy().ListStudies(c.Context())
	if err != nil {
		return storeError(c, err, "", "Failed to fetch studies")
	}

	if redis.Client != nil {
		if payload, err := json.Marshal(studies); err == nil {
			redis.Client.Set(redis.Ctx, studiesCacheKey, payload, time.Minute)
		}
	}
	return c.JSON(studies)
}

// GetStudy returns a single study with its schedule. Public.
func GetStudy(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid study ID",
		})
	}

	study, err := hierarchy().GetStudy(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Study not found", "Failed to fetch study")
	}
	return c.JSON(study)
}

// GetMyStudies lists the studies owned by the caller.
func GetMyStudies(c *fiber.Ctx) error {
	studies, err := hierarchy().ListStudiesByOwner(c.Context(), callerID(c))
	if err != nil {
		return storeError(c, err, "", "Failed to fetch studies")
	}
	return c.JSON(studies)
}

// CreateStudy registers a new study owned by the caller.
func CreateStudy(c *fiber.Ctx) error {
	type CreateInput struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	input := new(CreateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	study := models.Study{
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     callerID(c),
	}
	if err := hierarchy().CreateStudy(c.Context(), &study); err != nil {
		return storeError(c, err, "", "Failed to create study")
	}

	invalidateStudyCache()
	return c.Status(fiber.StatusCreated).JSON(study)
}

// UpdateStudy edits the title/description. Owner only.
func UpdateStudy(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid study ID",
		})
	}

	type UpdateInput struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	input := new(UpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	study, err := hierarchy().GetStudy(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Study not found", "Failed to fetch study")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	if err := hierarchy().UpdateStudy(c.Context(), study, input.Title, input.Description); err != nil {
		return storeError(c, err, "Study not found", "Failed to update study")
	}

	invalidateStudyCache()
	return c.JSON(study)
}

// DeleteStudy soft-deletes a study; its sessions, slots and bookings drop
// out of every default read with it. Owner only.
func DeleteStudy(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid study ID",
		})
	}

	study, err := hierarchy().GetStudy(c.Context(), uint(id))
	if err != nil {
		return storeError(c, err, "Study not found", "Failed to fetch study")
	}
	if d := authz.CanManageStudy(callerID(c), study); !d.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": d.Reason,
		})
	}

	if err := hierarchy().DeleteStudy(c.Context(), study.ID); err != nil {
		return storeError(c, err, "Study not found", "Failed to delete study")
	}

	invalidateStudyCache()
	return c.SendStatus(fiber.StatusNoContent)
}
