// config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	TokenStrategySession = "session"
	TokenStrategyJWT     = "jwt"
)

const (
	DispatchModeWorkflow = "workflow"
	DispatchModeExec     = "exec"
)

// Config collects every setting the service needs, loaded once in main
// and passed into each component. Nothing reads the environment after
// Load returns.
type Config struct {
	Port        string
	DatabaseURL string

	// Public base URL of this API, used to build upload and asset URLs
	// handed to browsers and to the generation job.
	PublicBaseURL string

	AllowedOrigins string

	// R2 / S3 object storage
	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	R2Bucket            string

	// Secrets
	SigningSecret string // upload/asset HMAC signatures
	TokenSecret   string // jwt strategy
	JobSecret     string // machine callers (generation job)

	// "session" (opaque, revocable) or "jwt" (stateless)
	TokenStrategy string

	// Target-generation dispatch: "workflow" posts to DispatchURL,
	// "exec" spawns DispatchCommand once per trigger.
	DispatchMode    string
	DispatchURL     string
	DispatchToken   string
	DispatchCommand string

	// Seed admin credentials, applied only when the users table is empty.
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads the environment into a Config. Optional settings get
// defaults; missing required settings are an error so the service fails
// at boot instead of mid-request.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getenvDefault("PORT", "5300"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		PublicBaseURL:       strings.TrimRight(getenvDefault("PUBLIC_BASE_URL", "http://localhost:5300"), "/"),
		AllowedOrigins:      getenvDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:       os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:   os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:            os.Getenv("R2_BUCKET_NAME"),
		SigningSecret:       os.Getenv("SIGNING_SECRET"),
		TokenSecret:         os.Getenv("TOKEN_SECRET"),
		JobSecret:           os.Getenv("JOB_SECRET"),
		TokenStrategy:       getenvDefault("TOKEN_STRATEGY", TokenStrategySession),
		DispatchMode:        getenvDefault("DISPATCH_MODE", DispatchModeWorkflow),
		DispatchURL:         os.Getenv("DISPATCH_URL"),
		DispatchToken:       os.Getenv("DISPATCH_TOKEN"),
		DispatchCommand:     os.Getenv("DISPATCH_COMMAND"),
		SeedAdminEmail:      os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:   os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("SIGNING_SECRET is required")
	}
	if cfg.JobSecret == "" {
		return nil, fmt.Errorf("JOB_SECRET is required")
	}
	switch cfg.TokenStrategy {
	case TokenStrategySession:
	case TokenStrategyJWT:
		if cfg.TokenSecret == "" {
			return nil, fmt.Errorf("TOKEN_SECRET is required when TOKEN_STRATEGY=jwt")
		}
	default:
		return nil, fmt.Errorf("unknown TOKEN_STRATEGY %q (use session or jwt)", cfg.TokenStrategy)
	}
	switch cfg.DispatchMode {
	case DispatchModeWorkflow, DispatchModeExec:
	default:
		return nil, fmt.Errorf("unknown DISPATCH_MODE %q (use workflow or exec)", cfg.DispatchMode)
	}

	return cfg, nil
}

// AssetURL builds the token-gated access URL for an asset id.
func (c *Config) AssetURL(assetID, token string) string {
	return fmt.Sprintf("%s/assets/%s?token=%s", c.PublicBaseURL, assetID, token)
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
