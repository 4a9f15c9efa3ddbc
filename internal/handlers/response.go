package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
)

const maxRequestBodySize = 1 << 20

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Status: statusSuccess, Message: message, Data: data})
}

// writeError maps an AppError to its status. Other errors become a 500
// without leaking details.
func writeError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.HTTPStatus(), Response{Status: statusError, Code: string(appErr.Code), Message: appErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, Response{Status: statusError, Code: "internal_unexpected_error", Message: "an unexpected error occurred"})
}
