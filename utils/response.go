package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteServiceError maps engine error kinds onto HTTP statuses. External
// failures surface as a generic message; everything else is user-correctable
// and returned verbatim.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		WriteJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrAuthorization):
		WriteJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrConflict):
		WriteJSON(w, http.StatusConflict, APIResponse{Success: false, Message: err.Error()})
	default:
		WriteJSON(w, http.StatusInternalServerError, APIResponse{Success: false, Message: "Something went wrong, please try again"})
	}
}
