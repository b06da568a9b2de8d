package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lu-jeremy/food-bridge/internal/middleware"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/service"
)

type ListingHandler struct {
	listings service.ListingService
	matching service.MatchingService
}

func NewListingHandler(listings service.ListingService, matching service.MatchingService) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		matching: matching,
	}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	providerID := middleware.AccountIDFromContext(r.Context())
	listing, err := h.listings.CreateListing(r.Context(), providerID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, listing)
}

// Browse returns available listings, newest first. With ?q= the results
// are ranked by semantic relevance to the query instead.
func (h *ListingHandler) Browse(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.ListAvailable(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list listings")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithJSON(w, http.StatusOK, listings)
		return
	}

	ranked, err := h.matching.Rank(r.Context(), query, listings)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Relevance ranking failed")
		return
	}

	respondWithJSON(w, http.StatusOK, ranked)
}

func (h *ListingHandler) MyListings(w http.ResponseWriter, r *http.Request) {
	providerID := middleware.AccountIDFromContext(r.Context())

	listings, err := h.listings.ListByProvider(r.Context(), providerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list listings")
		return
	}

	respondWithJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	listingID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}

	providerID := middleware.AccountIDFromContext(r.Context())
	if err := h.listings.WithdrawListing(r.Context(), providerID, listingID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": models.ListingWithdrawn})
}
