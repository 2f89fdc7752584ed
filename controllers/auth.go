package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/database"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a short-lived access token. The
// token subject is "admin:<id>" so the engine can tell admins apart from
// members, whose subjects are chat ids.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Username and password are required"})
		return
	}

	admin, err := models.GetAdminByUsername(database.DB, req.Username)
	if err != nil || !admin.ValidatePassword(req.Password) {
		// identical response for unknown user and wrong password
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	if !admin.IsActive {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Account is disabled"})
		return
	}

	token, err := utils.GenerateJWT(fmt.Sprintf("admin:%d", admin.ID), admin.Username, "admin")
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Could not issue token"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Login successful", Data: map[string]interface{}{
		"token":    token,
		"username": admin.Username,
	}})
}

// Logout revokes the presented token's jti for the remainder of its life.
func Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == "" || tokenStr == authHeader {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Missing bearer token"})
		return
	}

	_, claims, err := utils.ValidateAccessToken(tokenStr)
	if err != nil {
		// already invalid; nothing to revoke
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
		return
	}

	jti, _ := claims["jti"].(string)
	ttl := time.Hour
	if exp, ok := claims["exp"].(float64); ok {
		if remain := time.Until(time.Unix(int64(exp), 0)); remain > 0 {
			ttl = remain
		}
	}
	if err := utils.RevokeJTI(jti, ttl); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Could not revoke token"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
