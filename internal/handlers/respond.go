package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithServiceError maps the service error taxonomy to HTTP status
// codes. Anything unrecognized is treated as a validation failure.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateEmail):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, models.ErrInsufficientQuantity):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrAddressUnresolvable):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		respondWithError(w, http.StatusBadRequest, err.Error())
	}
}
