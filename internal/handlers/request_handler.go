package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lu-jeremy/food-bridge/internal/middleware"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/service"
)

type RequestHandler struct {
	service service.RequestService
}

func NewRequestHandler(service service.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	recipientID := middleware.AccountIDFromContext(r.Context())
	request, err := h.service.CreateRequest(r.Context(), recipientID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, request)
}

func (h *RequestHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	recipientID := middleware.AccountIDFromContext(r.Context())

	requests, err := h.service.ListByRecipient(r.Context(), recipientID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list requests")
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.service.AcceptRequest, models.RequestAccepted)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.service.RejectRequest, models.RequestRejected)
}

func (h *RequestHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.service.FulfillRequest, models.RequestFulfilled)
}

func (h *RequestHandler) updateStatus(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, providerID, requestID int64) error, status string) {
	requestID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	providerID := middleware.AccountIDFromContext(r.Context())
	if err := action(r.Context(), providerID, requestID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": status})
}
