// services/pair_service.go
package services

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/models"
	"webar-publish-system/utils"
)

// dispatchFailedMessage is the fixed error recorded when the trigger
// call itself fails (as opposed to the job reporting a failure).
const dispatchFailedMessage = "dispatch failed"

// Dispatcher triggers the external mind-target compilation job.
// Implemented by workers.TargetJobDispatcher.
type Dispatcher interface {
	Dispatch(pairID, imageURL string) error
}

type PairService struct {
	DB         *gorm.DB
	Signer     *utils.Signer
	Cfg        *config.Config
	Dispatcher Dispatcher
}

func NewPairService(db *gorm.DB, signer *utils.Signer, cfg *config.Config, dispatcher Dispatcher) *PairService {
	return &PairService{DB: db, Signer: signer, Cfg: cfg, Dispatcher: dispatcher}
}

// assetRef is the asset metadata attached to pair listings. The URL
// carries a freshly minted read token on every call; tokens are never
// cached or persisted.
type assetRef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

func (s *PairService) assetRefByID(id string) *assetRef {
	var asset models.Asset
	if err := s.DB.First(&asset, "id = ?", id).Error; err != nil {
		return nil
	}
	return &assetRef{
		ID:       asset.ID,
		Kind:     asset.Kind,
		MimeType: asset.MimeType,
		FileName: asset.FileName,
		URL:      s.Cfg.AssetURL(asset.ID, s.Signer.SignAsset(asset.ID)),
	}
}

type pairView struct {
	models.Pair
	ImageAsset *assetRef `json:"image_asset,omitempty"`
	VideoAsset *assetRef `json:"video_asset,omitempty"`
	MindAsset  *assetRef `json:"mind_asset,omitempty"`
}

func (s *PairService) view(pair models.Pair) pairView {
	v := pairView{Pair: pair}
	v.ImageAsset = s.assetRefByID(pair.ImageAssetID)
	v.VideoAsset = s.assetRefByID(pair.VideoAssetID)
	if pair.MindAssetID != nil {
		v.MindAsset = s.assetRefByID(*pair.MindAssetID)
	}
	return v
}

// imageURL builds the public URL the generation job downloads the
// source image from.
func (s *PairService) imageURL(imageAssetID string) string {
	return s.Cfg.AssetURL(imageAssetID, s.Signer.SignAsset(imageAssetID))
}

// dispatch triggers generation for a pending pair. A trigger failure
// flips the pair to failed right away; an accepted trigger resolves
// later through the completion callback.
func (s *PairService) dispatch(pair *models.Pair) {
	if err := s.Dispatcher.Dispatch(pair.ID, s.imageURL(pair.ImageAssetID)); err != nil {
		log.Printf("❌ [DISPATCH] Trigger failed for pair %s: %v", pair.ID, err)
		msg := dispatchFailedMessage
		now := time.Now()
		pair.MindTargetStatus = models.MindTargetFailed
		pair.MindTargetError = &msg
		pair.MindCompletedAt = &now
		if err := s.DB.Save(pair).Error; err != nil {
			log.Printf("❌ [DISPATCH] Failed to record dispatch failure for pair %s: %v", pair.ID, err)
		}
	}
}

// ListPairs returns an experience's pairs with joined asset metadata.
func (s *PairService) ListPairs(c *fiber.Ctx) error {
	var experience models.Experience
	if err := s.DB.First(&experience, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}

	var pairs []models.Pair
	if err := s.DB.Where("experience_id = ?", experience.ID).
		Order("priority DESC, created_at DESC").
		Find(&pairs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list pairs"})
	}

	views := make([]pairView, 0, len(pairs))
	for _, p := range pairs {
		views = append(views, s.view(p))
	}
	return c.JSON(fiber.Map{"pairs": views})
}

// CreatePair binds an already-uploaded image and video to an experience
// and kicks off target generation. Upload-then-bind ordering: both
// asset rows must exist before the pair can reference them.
func (s *PairService) CreatePair(c *fiber.Ctx) error {
	var experience models.Experience
	if err := s.DB.First(&experience, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "experience not found"})
	}

	var req struct {
		ImageAssetID string   `json:"image_asset_id"`
		VideoAssetID string   `json:"video_asset_id"`
		Threshold    *float64 `json:"threshold"`
		Priority     *int     `json:"priority"`
		Active       *bool    `json:"active"`
		Fingerprint  string   `json:"fingerprint"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ImageAssetID == "" || req.VideoAssetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image_asset_id and video_asset_id are required"})
	}
	if err := s.DB.First(&models.Asset{}, "id = ?", req.ImageAssetID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image_asset_id not found"})
	}
	if err := s.DB.First(&models.Asset{}, "id = ?", req.VideoAssetID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "video_asset_id not found"})
	}

	threshold := 0.8
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now()
	pair := &models.Pair{
		ID:               uuid.NewString(),
		ExperienceID:     experience.ID,
		ImageAssetID:     req.ImageAssetID,
		VideoAssetID:     req.VideoAssetID,
		Threshold:        threshold,
		Priority:         priority,
		Active:           active,
		Fingerprint:      req.Fingerprint,
		MindTargetStatus: models.MindTargetPending,
		MindRequestedAt:  &now,
	}
	if err := s.DB.Create(pair).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create pair"})
	}

	// Row insert and job trigger are two independent steps. A crash
	// between them leaves the pair pending until an operator retries.
	s.dispatch(pair)

	return c.Status(fiber.StatusCreated).JSON(s.view(*pair))
}

// UpdatePair applies partial updates. Changing the image asset is
// special: it forces generation back to pending, clears the previous
// mind target, and re-dispatches the job.
func (s *PairService) UpdatePair(c *fiber.Ctx) error {
	var pair models.Pair
	if err := s.DB.First(&pair, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pair not found"})
	}

	var req struct {
		ExperienceID *string  `json:"experience_id"`
		ImageAssetID *string  `json:"image_asset_id"`
		VideoAssetID *string  `json:"video_asset_id"`
		Threshold    *float64 `json:"threshold"`
		Priority     *int     `json:"priority"`
		Active       *bool    `json:"active"`
		Fingerprint  *string  `json:"fingerprint"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.ExperienceID != nil && *req.ExperienceID != pair.ExperienceID {
		if err := s.DB.First(&models.Experience{}, "id = ?", *req.ExperienceID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "experience_id not found"})
		}
		// Moves are a reassignment, not a copy.
		pair.ExperienceID = *req.ExperienceID
	}
	if req.VideoAssetID != nil && *req.VideoAssetID != pair.VideoAssetID {
		if err := s.DB.First(&models.Asset{}, "id = ?", *req.VideoAssetID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "video_asset_id not found"})
		}
		pair.VideoAssetID = *req.VideoAssetID
	}
	if req.Threshold != nil {
		pair.Threshold = *req.Threshold
	}
	if req.Priority != nil {
		pair.Priority = *req.Priority
	}
	if req.Active != nil {
		pair.Active = *req.Active
	}
	if req.Fingerprint != nil {
		pair.Fingerprint = *req.Fingerprint
	}

	imageChanged := false
	if req.ImageAssetID != nil && *req.ImageAssetID != pair.ImageAssetID {
		if err := s.DB.First(&models.Asset{}, "id = ?", *req.ImageAssetID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image_asset_id not found"})
		}
		now := time.Now()
		pair.ImageAssetID = *req.ImageAssetID
		pair.MindAssetID = nil
		pair.MindTargetStatus = models.MindTargetPending
		pair.MindTargetError = nil
		pair.MindRequestedAt = &now
		pair.MindCompletedAt = nil
		imageChanged = true
	}

	if err := s.DB.Save(&pair).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update pair"})
	}

	if imageChanged {
		s.dispatch(&pair)
	}

	return c.JSON(s.view(pair))
}

func (s *PairService) DeletePair(c *fiber.Ctx) error {
	var pair models.Pair
	if err := s.DB.First(&pair, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pair not found"})
	}
	if err := s.DB.Delete(&pair).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete pair"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RetryPair is the operator escape hatch for failed or stuck pairs: it
// resets generation state and repeats the dispatch step.
func (s *PairService) RetryPair(c *fiber.Ctx) error {
	var pair models.Pair
	if err := s.DB.First(&pair, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pair not found"})
	}

	now := time.Now()
	pair.MindAssetID = nil
	pair.MindTargetStatus = models.MindTargetPending
	pair.MindTargetError = nil
	pair.MindRequestedAt = &now
	pair.MindCompletedAt = nil
	if err := s.DB.Save(&pair).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reset pair"})
	}

	s.dispatch(&pair)
	return c.JSON(s.view(pair))
}

// CompleteJob is the generation job's callback (job-secret
// authenticated). Either mind_asset_id (success) or error (failure)
// must be present; error strings are recorded verbatim.
func (s *PairService) CompleteJob(c *fiber.Ctx) error {
	var req struct {
		PairID      string `json:"pair_id"`
		MindAssetID string `json:"mind_asset_id"`
		Error       string `json:"error"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PairID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pair_id is required"})
	}

	var pair models.Pair
	if err := s.DB.First(&pair, "id = ?", req.PairID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pair not found"})
	}
	if pair.MindTargetStatus != models.MindTargetPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pair is not pending"})
	}

	now := time.Now()
	if req.Error != "" {
		errMsg := req.Error
		pair.MindTargetStatus = models.MindTargetFailed
		pair.MindTargetError = &errMsg
		pair.MindCompletedAt = &now
	} else {
		if req.MindAssetID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mind_asset_id or error is required"})
		}
		if err := s.DB.First(&models.Asset{}, "id = ?", req.MindAssetID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mind_asset_id not found"})
		}
		mindID := req.MindAssetID
		pair.MindAssetID = &mindID
		pair.MindTargetStatus = models.MindTargetReady
		pair.MindTargetError = nil
		pair.MindCompletedAt = &now
	}

	if err := s.DB.Save(&pair).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update pair"})
	}

	log.Printf("✅ [JOB] Pair %s completed with status %s", pair.ID, pair.MindTargetStatus)
	return c.JSON(s.view(pair))
}
