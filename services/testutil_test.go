package services_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"webar-publish-system/config"
	"webar-publish-system/handlers"
	"webar-publish-system/models"
	"webar-publish-system/services"
	"webar-publish-system/utils"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Asset{},
		&models.Experience{},
		&models.Pair{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		PublicBaseURL: "http://api.test",
		SigningSecret: "test-signing-secret",
		TokenSecret:   "test-token-secret",
		JobSecret:     "test-job-secret",
		TokenStrategy: config.TokenStrategySession,
		DispatchMode:  config.DispatchModeWorkflow,
	}
}

// stubDispatcher records triggers and optionally fails them.
type stubDispatcher struct {
	calls []string
	err   error
}

func (d *stubDispatcher) Dispatch(pairID, imageURL string) error {
	d.calls = append(d.calls, pairID)
	return d.err
}

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	store      *utils.MemoryStore
	signer     *utils.Signer
	auth       *services.AuthService
	dispatcher *stubDispatcher
}

func newTestEnv(t *testing.T, cfgOpts ...func(*config.Config)) *testEnv {
	t.Helper()
	db := testDB(t)
	cfg := testConfig()
	for _, opt := range cfgOpts {
		opt(cfg)
	}
	store := utils.NewMemoryStore()
	signer := utils.NewSigner(cfg.SigningSecret)
	dispatcher := &stubDispatcher{}

	authService := services.NewAuthService(db, cfg)
	uploadService := services.NewUploadService(db, store, signer, cfg)
	experienceService := services.NewExperienceService(db, cfg)
	pairService := services.NewPairService(db, signer, cfg, dispatcher)
	resolverService := services.NewResolverService(db, signer, cfg)

	app := fiber.New()
	// Public routes go first: the experience group mounts the auth
	// middleware at "/", which guards everything registered after it.
	handlers.SetupPublicRoutes(app, resolverService, pairService, cfg)
	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupUploadRoutes(app, uploadService, authService, cfg)
	handlers.SetupExperienceRoutes(app, experienceService, pairService, authService)

	return &testEnv{
		app:        app,
		db:         db,
		cfg:        cfg,
		store:      store,
		signer:     signer,
		auth:       authService,
		dispatcher: dispatcher,
	}
}

// seedUser creates an active admin directly in the DB.
func (e *testEnv) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	salt, err := services.NewSalt()
	require.NoError(t, err)
	hash, err := services.HashPassword(password, salt)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// login seeds a user and returns a bearer token through the login route.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	e.seedUser(t, "admin@example.com", "hunter22")

	resp := e.request(t, "POST", "/auth/login",
		fiber.Map{"email": "admin@example.com", "password": "hunter22"}, reqOpts{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) seedAsset(t *testing.T, kind string) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		ID:         uuid.NewString(),
		Kind:       kind,
		StorageKey: utils.MakeStorageKey(kind, "fixture.bin"),
		MimeType:   "application/octet-stream",
		FileName:   "fixture.bin",
		SizeBytes:  4,
	}
	require.NoError(t, e.db.Create(asset).Error)
	return asset
}

type reqOpts struct {
	token     string
	jobSecret string
	rawBody   []byte
	mime      string
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, opts reqOpts) *http.Response {
	t.Helper()

	var reader io.Reader
	contentType := ""
	if opts.rawBody != nil {
		reader = bytes.NewReader(opts.rawBody)
		contentType = opts.mime
	} else if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}
	if opts.jobSecret != "" {
		req.Header.Set("X-Job-Secret", opts.jobSecret)
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// createExperience is a shortcut used across pair/resolver tests.
func (e *testEnv) createExperience(t *testing.T, token, name string) map[string]interface{} {
	t.Helper()
	resp := e.request(t, "POST", "/experiences", fiber.Map{"name": name}, reqOpts{token: token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var exp map[string]interface{}
	decodeJSON(t, resp, &exp)
	return exp
}

// createPair binds two fresh assets into a pair under the experience.
func (e *testEnv) createPair(t *testing.T, token, experienceID string, extra fiber.Map) map[string]interface{} {
	t.Helper()
	img := e.seedAsset(t, models.AssetKindImage)
	vid := e.seedAsset(t, models.AssetKindVideo)

	body := fiber.Map{
		"image_asset_id": img.ID,
		"video_asset_id": vid.ID,
	}
	for k, v := range extra {
		body[k] = v
	}

	resp := e.request(t, "POST", fmt.Sprintf("/experiences/%s/pairs", experienceID), body, reqOpts{token: token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pair map[string]interface{}
	decodeJSON(t, resp, &pair)
	return pair
}
