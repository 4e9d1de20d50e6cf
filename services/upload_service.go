// services/upload_service.go
package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/models"
	"webar-publish-system/utils"
)

// UploadService is the broker for direct-to-storage uploads: it signs
// upload URLs, validates them on PUT, and records finalized uploads as
// asset rows.
type UploadService struct {
	DB     *gorm.DB
	Store  utils.ObjectStore
	Signer *utils.Signer
	Cfg    *config.Config
}

func NewUploadService(db *gorm.DB, store utils.ObjectStore, signer *utils.Signer, cfg *config.Config) *UploadService {
	return &UploadService{DB: db, Store: store, Signer: signer, Cfg: cfg}
}

func validAssetKind(kind string) bool {
	switch kind {
	case models.AssetKindImage, models.AssetKindVideo, models.AssetKindMindTarget:
		return true
	}
	return false
}

// SignUpload issues a short-lived signed upload URL for an
// authenticated caller (or the generation job via its secret).
func (s *UploadService) SignUpload(c *fiber.Ctx) error {
	var req struct {
		Kind     string `json:"kind"`
		Mime     string `json:"mime"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if !validAssetKind(req.Kind) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be image, video or mind-target"})
	}
	if req.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "filename is required"})
	}

	key := utils.MakeStorageKey(req.Kind, req.Filename)
	expiresAt := time.Now().Add(utils.UploadSignatureTTL).Unix()
	sig := s.Signer.SignUpload(key, req.Mime, expiresAt)

	uploadURL := fmt.Sprintf("%s/uploads?key=%s&sig=%s&exp=%d&mime=%s",
		s.Cfg.PublicBaseURL, url.QueryEscape(key), sig, expiresAt, url.QueryEscape(req.Mime))

	return c.JSON(fiber.Map{
		"key":        key,
		"upload_url": uploadURL,
		"expires_at": expiresAt,
	})
}

// PutUpload accepts the signed PUT. The signature is the only
// credential here, on purpose: browsers upload straight to this route
// without ever holding the main bearer token.
func (s *UploadService) PutUpload(c *fiber.Ctx) error {
	key := c.Query("key")
	sig := c.Query("sig")
	mime := c.Query("mime")
	expStr := c.Query("exp")

	if key == "" || sig == "" || expStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "upload signature missing"})
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid upload expiry"})
	}
	if time.Now().Unix() > exp {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "upload signature expired"})
	}
	if !s.Signer.VerifyUpload(key, mime, exp, sig) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "upload signature mismatch"})
	}

	contentType := mime
	if contentType == "" {
		contentType = c.Get("Content-Type")
	}
	if err := s.Store.Put(c.Context(), key, c.Body(), contentType); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store upload"})
	}

	return c.JSON(fiber.Map{"ok": true, "key": key})
}

// CompleteUpload records a finished upload as an asset row and returns
// its id plus a tokenized access URL. It trusts that the PUT happened;
// the object at key is not verified here.
func (s *UploadService) CompleteUpload(c *fiber.Ctx) error {
	var req struct {
		Kind     string `json:"kind"`
		Key      string `json:"key"`
		Mime     string `json:"mime"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if !validAssetKind(req.Kind) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be image, video or mind-target"})
	}
	if req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key is required"})
	}

	asset := &models.Asset{
		ID:         uuid.NewString(),
		Kind:       req.Kind,
		StorageKey: req.Key,
		MimeType:   req.Mime,
		FileName:   req.Filename,
		SizeBytes:  req.Size,
	}
	if err := s.DB.Create(asset).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record asset"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":  asset.ID,
		"url": s.Cfg.AssetURL(asset.ID, s.Signer.SignAsset(asset.ID)),
	})
}

// GetAsset streams an asset's bytes. Access is gated by the asset read
// token, the same HMAC scheme as upload signatures.
func (s *UploadService) GetAsset(c *fiber.Ctx) error {
	id := c.Params("id")
	token := c.Query("token")

	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "asset token missing"})
	}
	if !s.Signer.VerifyAsset(id, token) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "asset token mismatch"})
	}

	var asset models.Asset
	if err := s.DB.First(&asset, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset not found"})
	}

	body, contentType, err := s.Store.Get(c.Context(), asset.StorageKey)
	if err != nil {
		if errors.Is(err, utils.ErrObjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "object not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read object"})
	}

	if contentType == "" {
		contentType = asset.MimeType
	}
	if contentType != "" {
		c.Set("Content-Type", contentType)
	}
	return c.Send(body)
}
