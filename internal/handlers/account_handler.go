package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lu-jeremy/food-bridge/internal/middleware"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/service"
)

type AccountHandler struct {
	service service.IdentityService
}

func NewAccountHandler(service service.IdentityService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	account, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	account, err := h.service.GetAccountByID(r.Context(), accountID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}

	respondWithJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
