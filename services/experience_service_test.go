package services_test

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webar-publish-system/models"
)

var qrPattern = regexp.MustCompile(`^[a-z0-9]{10}$`)

func TestCreateExperienceGeneratesQRID(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	exp := env.createExperience(t, token, "Demo")
	assert.Equal(t, "Demo", exp["name"])
	assert.Regexp(t, qrPattern, exp["qr_id"])
	assert.Equal(t, true, exp["active"])
}

func TestCreateExperienceAcceptsExplicitQRID(t *testing.T) {
	// Sharing a code across experiences is intentional; no uniqueness
	// check applies to caller-supplied codes.
	env := newTestEnv(t)
	token := env.login(t)

	for i := 0; i < 2; i++ {
		resp := env.request(t, "POST", "/experiences",
			fiber.Map{"name": "Shared", "qr_id": "ab12cd34ef"}, reqOpts{token: token})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Experience{}).Where("qr_id = ?", "ab12cd34ef").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateExperienceRequiresName(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	resp := env.request(t, "POST", "/experiences", fiber.Map{}, reqOpts{token: token})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExperienceCRUDRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/experiences", nil, reqOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, "POST", "/experiences", fiber.Map{"name": "x"}, reqOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateExperiencePatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	exp := env.createExperience(t, token, "Before")
	id := exp["id"].(string)
	originalQR := exp["qr_id"].(string)

	// Only active changes; name and qr_id stay.
	resp := env.request(t, "PUT", "/experiences/"+id, fiber.Map{"active": false}, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Experience
	require.NoError(t, env.db.First(&updated, "id = ?", id).Error)
	assert.Equal(t, "Before", updated.Name)
	assert.Equal(t, originalQR, updated.QRID)
	assert.False(t, updated.Active)
}

func TestDeleteExperienceCascadesPairs(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	exp := env.createExperience(t, token, "Doomed")
	expID := exp["id"].(string)
	pair := env.createPair(t, token, expID, nil)
	pairID := pair["id"].(string)

	resp := env.request(t, "DELETE", "/experiences/"+expID, nil, reqOpts{token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Pair{}).Where("experience_id = ?", expID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// Reading the pair after experience deletion is a 404.
	resp = env.request(t, "PUT", "/pairs/"+pairID, fiber.Map{"priority": 1}, reqOpts{token: token})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, "GET", "/experiences/"+expID, nil, reqOpts{token: token})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
