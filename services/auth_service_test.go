package services_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webar-publish-system/config"
	"webar-publish-system/models"
)

func TestLoginIssuesSessionToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var count int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp := env.request(t, "GET", "/auth/me", nil, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	decodeJSON(t, resp, &user)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", "hunter22")

	resp := env.request(t, "POST", "/auth/login",
		fiber.Map{"email": "admin@example.com", "password": "wrong"}, reqOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "admin@example.com", "hunter22")
	require.NoError(t, env.db.Model(user).Update("active", false).Error)

	resp := env.request(t, "POST", "/auth/login",
		fiber.Map{"email": "admin@example.com", "password": "hunter22"}, reqOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/auth/me", nil, reqOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, "GET", "/auth/me", nil, reqOpts{token: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	resp := env.request(t, "POST", "/auth/logout", nil, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, "GET", "/auth/me", nil, reqOpts{token: token})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestExpiredSessionRejectedAndReaped(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "admin@example.com", "hunter22")

	session := &models.Session{
		Token:     "expired-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.db.Create(session).Error)

	resp := env.request(t, "GET", "/auth/me", nil, reqOpts{token: "expired-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Lookup deletes the expired row opportunistically.
	var count int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestJWTStrategy(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.TokenStrategy = config.TokenStrategyJWT
	})
	token := env.login(t)

	// Stateless: no session row is written.
	var count int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	resp := env.request(t, "GET", "/auth/me", nil, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout cannot revoke a signed token; the token keeps working
	// until its embedded expiry.
	resp = env.request(t, "POST", "/auth/logout", nil, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, "GET", "/auth/me", nil, reqOpts{token: token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJWTRejectsTokenSignedWithWrongSecret(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.TokenStrategy = config.TokenStrategyJWT
	})
	other := newTestEnv(t, func(cfg *config.Config) {
		cfg.TokenStrategy = config.TokenStrategyJWT
		cfg.TokenSecret = "some-other-secret"
	})

	env.seedUser(t, "admin@example.com", "hunter22")
	foreign := other.login(t)

	resp := env.request(t, "GET", "/auth/me", nil, reqOpts{token: foreign})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
