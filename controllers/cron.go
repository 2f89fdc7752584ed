package controllers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

// CronController exposes the sweep to an external scheduler. Calls are
// authenticated by a shared key header, not a JWT.
type CronController struct {
	Sweeper   *services.Sweeper
	Scheduler *services.SchedulerService
}

func NewCronController(sweeper *services.Sweeper, scheduler *services.SchedulerService) *CronController {
	return &CronController{Sweeper: sweeper, Scheduler: scheduler}
}

// POST /cron/sweep
// Runs the four transition passes and then heals any broken schedule chains.
// Safe to call on any cadence; an immediate second call is a no-op.
func (c *CronController) Sweep(w http.ResponseWriter, r *http.Request) {
	key := os.Getenv("CRON_KEY")
	if key == "" {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "Cron is not configured"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-CRON-KEY")), []byte(key)) != 1 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid cron key"})
		return
	}

	summary := c.Sweeper.Run(r.Context())

	healed, err := c.Scheduler.HealAll(r.Context())
	if err != nil {
		log.Printf("[cron] schedule heal: %v", err)
	}
	if healed > 0 {
		log.Printf("[cron] healed %d schedule(s)", healed)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Sweep complete", Data: summary})
}
