package users

import (
	"net/http"
	"strconv"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type PointsController struct {
	Ledger *services.PointsLedgerService
	Users  services.UserRepository
}

func NewPointsController(ledger *services.PointsLedgerService, users services.UserRepository) *PointsController {
	return &PointsController{Ledger: ledger, Users: users}
}

// GET /users/points
// The caller's balance plus recent ledger history.
func (c *PointsController) My(w http.ResponseWriter, r *http.Request) {
	member, err := c.Users.FindByExternalID(r.Context(), middleware.Actor(r))
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unknown member"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := c.Ledger.History(r.Context(), member.ID, r.URL.Query().Get("category"), limit)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"points_current":  member.PointsCurrent,
		"points_lifetime": member.PointsLifetime,
		"history":         entries,
	}})
}

// GET /users/leaderboard
func (c *PointsController) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := c.Ledger.GetLeaderboard(r.Context(), limit)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: entries})
}

// GET /users/rank
func (c *PointsController) Rank(w http.ResponseWriter, r *http.Request) {
	member, err := c.Users.FindByExternalID(r.Context(), middleware.Actor(r))
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unknown member"})
		return
	}
	rank, err := c.Ledger.GetUserRank(r.Context(), member.ID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"rank":           rank,
		"points_current": member.PointsCurrent,
	}})
}
