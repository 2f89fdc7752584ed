package admins

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type MemberController struct {
	Users services.UserRepository
}

func NewMemberController(users services.UserRepository) *MemberController {
	return &MemberController{Users: users}
}

// GET /admin/members
func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	members, err := c.Users.FindTopByPoints(r.Context(), 500)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: members})
}

// POST /admin/members
// Registers a member keyed by their chat-platform id.
func (c *MemberController) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExternalID string `json:"external_id"`
		Name       string `json:"name"`
		Handle     string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ExternalID == "" || req.Name == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "external_id and name are required"})
		return
	}
	if strings.HasPrefix(req.ExternalID, "admin:") {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Reserved external_id prefix"})
		return
	}

	member := &models.Member{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Handle:     req.Handle,
		Status:     models.MemberStatusActive,
	}
	if err := c.Users.Create(r.Context(), member); err != nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Member already exists"})
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Member created", Data: member})
}

// POST /admin/members/token
// Issues a member access token on their behalf. The bot calls this after a
// chat-side identity check; the backend never sees chat credentials.
func (c *MemberController) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExternalID string `json:"external_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}

	member, err := c.Users.FindByExternalID(r.Context(), strings.TrimSpace(req.ExternalID))
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Member not found"})
		return
	}
	if member.Status != models.MemberStatusActive {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Member is not active"})
		return
	}

	token, err := utils.GenerateJWT(member.ExternalID, member.Name, "member")
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Could not issue token"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Token issued", Data: map[string]interface{}{
		"token": token,
	}})
}
