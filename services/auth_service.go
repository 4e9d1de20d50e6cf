// services/auth_service.go
package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/models"
)

// TokenTTL applies to both token strategies.
const TokenTTL = 7 * 24 * time.Hour

const (
	pbkdf2Iterations = 10000
	pbkdf2KeyLen     = 32
)

type AuthService struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{DB: db, Cfg: cfg}
}

// HashPassword derives the stored hash from a password and a hex salt.
func HashPassword(password, saltHex string) (string, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return hex.EncodeToString(key), nil
}

// NewSalt returns a fresh random hex salt for a new user.
func NewSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SeedAdmin creates the configured admin user if the users table is
// empty. Safe to call on every boot.
func (s *AuthService) SeedAdmin() error {
	if s.Cfg.SeedAdminEmail == "" || s.Cfg.SeedAdminPassword == "" {
		return nil
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}
	hash, err := HashPassword(s.Cfg.SeedAdminPassword, salt)
	if err != nil {
		return err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        s.Cfg.SeedAdminEmail,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.DB.Create(user).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded admin user %s", user.Email)
	return nil
}

// Login checks the salted hash and issues a token per the configured
// strategy. Any mismatch or inactive user is the same 401.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and password are required"})
	}

	var user models.User
	if err := s.DB.First(&user, "email = ? AND active = ?", req.Email, true).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	hash, err := HashPassword(req.Password, user.PasswordSalt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !hmac.Equal([]byte(hash), []byte(user.PasswordHash)) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token, expiresAt, err := s.issueToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

func (s *AuthService) issueToken(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(TokenTTL)

	if s.Cfg.TokenStrategy == config.TokenStrategyJWT {
		claims := jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Cfg.TokenSecret))
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
		}
		return token, expiresAt, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	session := &models.Session{
		Token:     base64.URLEncoding.EncodeToString(buf),
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}
	if err := s.DB.Create(session).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session.Token, expiresAt, nil
}

// VerifyToken resolves a bearer token to its active user, or an error.
// Expired session rows are deleted opportunistically on lookup.
func (s *AuthService) VerifyToken(token string) (*models.User, error) {
	if s.Cfg.TokenStrategy == config.TokenStrategyJWT {
		return s.verifyJWT(token)
	}

	var session models.Session
	if err := s.DB.First(&session, "token = ?", token).Error; err != nil {
		return nil, errors.New("session not found")
	}
	if time.Now().After(session.ExpiresAt) {
		s.DB.Delete(&models.Session{}, "token = ?", session.Token)
		return nil, errors.New("session expired")
	}

	var user models.User
	if err := s.DB.First(&user, "id = ? AND active = ?", session.UserID, true).Error; err != nil {
		return nil, errors.New("user not found or inactive")
	}
	return &user, nil
}

func (s *AuthService) verifyJWT(token string) (*models.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.Cfg.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}

	var user models.User
	if err := s.DB.First(&user, "email = ? AND active = ?", claims.Subject, true).Error; err != nil {
		return nil, errors.New("user not found or inactive")
	}
	return &user, nil
}

// Logout deletes the session row if one exists. Under the jwt strategy
// this is a no-op: stateless tokens cannot be revoked before expiry.
func (s *AuthService) Logout(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if s.Cfg.TokenStrategy == config.TokenStrategySession && token != "" {
		s.DB.Delete(&models.Session{}, "token = ?", token)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Me returns the authenticated user attached by the auth middleware.
func (s *AuthService) Me(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}
	return c.JSON(user)
}
