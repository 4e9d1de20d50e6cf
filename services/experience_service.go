// services/experience_service.go
package services

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/models"
	"webar-publish-system/utils"
)

const qrRetryBudget = 3

type ExperienceService struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewExperienceService(db *gorm.DB, cfg *config.Config) *ExperienceService {
	return &ExperienceService{DB: db, Cfg: cfg}
}

// newUniqueQRID generates a code and retries a few times on collision.
// Best-effort only: two concurrent creations can still collide, and
// callers may supply a shared code explicitly. Resolution is
// last-writer-wins either way.
func (s *ExperienceService) newUniqueQRID() (string, error) {
	var code string
	for attempt := 0; attempt < qrRetryBudget; attempt++ {
		c, err := utils.NewQRID()
		if err != nil {
			return "", err
		}
		code = c

		var count int64
		if err := s.DB.Model(&models.Experience{}).Where("qr_id = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
		log.Printf("⚠️ QR code collision on %s, retrying (%d/%d)", code, attempt+1, qrRetryBudget)
	}
	// Out of retries; accept the colliding code.
	return code, nil
}

func (s *ExperienceService) ListExperiences(c *fiber.Ctx) error {
	var experiences []models.Experience
	if err := s.DB.Order("created_at DESC").Find(&experiences).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list experiences"})
	}
	return c.JSON(fiber.Map{"experiences": experiences})
}

func (s *ExperienceService) CreateExperience(c *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name"`
		QRID   string `json:"qr_id"`
		Active *bool  `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	qrID := req.QRID
	if qrID == "" {
		code, err := s.newUniqueQRID()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		qrID = code
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	experience := &models.Experience{
		ID:     uuid.NewString(),
		Name:   req.Name,
		QRID:   qrID,
		Active: active,
	}
	if err := s.DB.Create(experience).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create experience"})
	}

	return c.Status(fiber.StatusCreated).JSON(experience)
}

func (s *ExperienceService) GetExperience(c *fiber.Ctx) error {
	var experience models.Experience
	if err := s.DB.First(&experience, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}
	return c.JSON(experience)
}

// UpdateExperience patches name/qr_id/active; absent fields are left
// unchanged. Setting qr_id here skips uniqueness checking entirely:
// intentional sharing between experiences is allowed.
func (s *ExperienceService) UpdateExperience(c *fiber.Ctx) error {
	var experience models.Experience
	if err := s.DB.First(&experience, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}

	var req struct {
		Name   *string `json:"name"`
		QRID   *string `json:"qr_id"`
		Active *bool   `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Name != nil {
		if *req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name cannot be empty"})
		}
		experience.Name = *req.Name
	}
	if req.QRID != nil && *req.QRID != "" {
		experience.QRID = *req.QRID
	}
	if req.Active != nil {
		experience.Active = *req.Active
	}

	if err := s.DB.Save(&experience).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update experience"})
	}
	return c.JSON(experience)
}

// DeleteExperience removes the experience's pairs first (the service
// layer owns referential integrity), then the experience itself.
// Storage objects referenced by deleted pairs are not reclaimed.
func (s *ExperienceService) DeleteExperience(c *fiber.Ctx) error {
	var experience models.Experience
	if err := s.DB.First(&experience, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}

	if err := s.DB.Delete(&models.Pair{}, "experience_id = ?", experience.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete pairs"})
	}
	if err := s.DB.Delete(&experience).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete experience"})
	}

	return c.JSON(fiber.Map{"ok": true})
}
