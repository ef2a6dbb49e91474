package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/mondokter/mondokter-backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithAppError maps an application error onto the right HTTP status
func respondWithAppError(w http.ResponseWriter, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		respondWithError(w, appErr.HTTPStatus(), appErr.Message)
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
