package admins

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type PointsController struct {
	Ledger *services.PointsLedgerService
}

func NewPointsController(ledger *services.PointsLedgerService) *PointsController {
	return &PointsController{Ledger: ledger}
}

// POST /admin/members/{id}/points
// Manual adjustment outside the task flow. Negative amounts are fines or
// corrections; every one still lands as a ledger entry.
func (c *PointsController) Award(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid member id"})
		return
	}
	var req struct {
		Amount   int    `json:"amount"`
		Reason   string `json:"reason"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if req.Category == "" {
		req.Category = models.LedgerCategoryManual
	}
	entry, err := c.Ledger.Award(r.Context(), id, services.AwardInput{
		Amount:   req.Amount,
		Reason:   req.Reason,
		Category: req.Category,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Points recorded", Data: entry})
}

// GET /admin/members/{id}/ledger?category=&limit=
func (c *PointsController) History(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid member id"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := c.Ledger.History(r.Context(), id, r.URL.Query().Get("category"), limit)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: entries})
}

// GET /admin/members/{id}/reconcile
// Compares the stored balance against the ledger sum. A mismatch means a
// write landed on only one side and needs investigating.
func (c *PointsController) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid member id"})
		return
	}
	balance, sum, err := c.Ledger.Reconcile(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"balance":    balance,
		"ledger_sum": sum,
		"in_sync":    int64(balance) == sum,
	}})
}
