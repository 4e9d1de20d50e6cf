// middleware/jobsecret.go
package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// JobSecretHeader carries the shared secret the external generation job
// uses to call back into the service without a user session.
const JobSecretHeader = "X-Job-Secret"

// JobSecretRequired validates the machine trust channel: an exact match
// of the configured job secret in the request header.
func JobSecretRequired(jobSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(JobSecretHeader)
		if got == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "job secret missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(jobSecret)) != 1 {
			log.Printf("🚫 [JOB_AUTH] Invalid job secret for %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid job secret",
			})
		}
		return c.Next()
	}
}

// IsJobSecretValid reports whether a request carries the valid job
// secret. Used on routes that accept either a user session or the
// machine channel (e.g. upload signing for the generation job).
func IsJobSecretValid(c *fiber.Ctx, jobSecret string) bool {
	got := c.Get(JobSecretHeader)
	if got == "" || jobSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(jobSecret)) == 1
}
