// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"webar-publish-system/models"
)

// StartSessionSweeper reaps expired session rows every hour. Stateless
// jwt deployments have no session table to sweep, so this is a no-op
// loop there (the table simply stays empty).
func (s *AuthService) StartSessionSweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			res := s.DB.Where("expires_at <= ?", time.Now()).Delete(&models.Session{})
			if res.Error != nil {
				log.Printf("[SessionSweeper] DB error: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("🧹 [SessionSweeper] Deleted %d expired session(s)", res.RowsAffected)
			}
		}),
	)
}
