package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

// AuthMiddleware validates member bearer tokens and puts the actor id (the
// member's external chat id) into the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		_, claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Session expired, please log in again"})
				return
			}
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid token"})
			return
		}

		role, _ := claims["role"].(string)
		if role == "admin" {
			// admin tokens are not valid on member endpoints
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), utils.ActorKey, sub)
		ctx = context.WithValue(ctx, utils.ExternalIDKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor returns the authenticated actor id stored by AuthMiddleware or
// AdminAuthMiddleware.
func Actor(r *http.Request) string {
	if v, ok := r.Context().Value(utils.ActorKey).(string); ok {
		return v
	}
	return ""
}
