// services/resolver_service.go
package services

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/models"
	"webar-publish-system/utils"
)

// ResolverService serves the public, unauthenticated QR lookup the
// viewer polls. Field names match what the viewer expects.
type ResolverService struct {
	DB     *gorm.DB
	Signer *utils.Signer
	Cfg    *config.Config
}

func NewResolverService(db *gorm.DB, signer *utils.Signer, cfg *config.Config) *ResolverService {
	return &ResolverService{DB: db, Signer: signer, Cfg: cfg}
}

type resolveResponse struct {
	Name            string  `json:"name"`
	QRID            string  `json:"qr_id"`
	VideoURL        *string `json:"videoUrl"`
	MindARTargetURL *string `json:"mindarTargetUrl"`
	// Raw state string so the viewer can render "preparing"/"failed"
	// instead of treating an absent target as a permanent error.
	MindTargetStatus *string `json:"mind_target_status"`
	MindTargetError  *string `json:"mind_target_error"`
}

// Resolve returns the serving payload for a QR code: the newest active
// experience with that code (codes may be shared, last writer wins)
// and its highest-priority active pair. A missing or not-yet-ready pair
// is a payload with null URLs, not an error; callers poll.
func (s *ResolverService) Resolve(c *fiber.Ctx) error {
	qrID := c.Params("qr_id")

	var experience models.Experience
	if err := s.DB.Where("qr_id = ? AND active = ?", qrID, true).
		Order("created_at DESC").
		First(&experience).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}

	resp := resolveResponse{
		Name: experience.Name,
		QRID: experience.QRID,
	}

	var pair models.Pair
	err := s.DB.Where("experience_id = ? AND active = ?", experience.ID, true).
		Order("priority DESC, created_at DESC").
		First(&pair).Error
	if err != nil {
		// No active pair yet: transient, pollable state.
		return c.JSON(resp)
	}

	status := pair.MindTargetStatus
	resp.MindTargetStatus = &status
	resp.MindTargetError = pair.MindTargetError

	if pair.VideoAssetID != "" {
		url := s.Cfg.AssetURL(pair.VideoAssetID, s.Signer.SignAsset(pair.VideoAssetID))
		resp.VideoURL = &url
	}
	// The target URL only appears once generation actually finished;
	// the status string and URL nullness always agree.
	if pair.MindTargetStatus == models.MindTargetReady && pair.MindAssetID != nil {
		url := s.Cfg.AssetURL(*pair.MindAssetID, s.Signer.SignAsset(*pair.MindAssetID))
		resp.MindARTargetURL = &url
	}

	return c.JSON(resp)
}
