package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lu-jeremy/food-bridge/internal/config"
	"github.com/lu-jeremy/food-bridge/internal/messaging"
	"github.com/lu-jeremy/food-bridge/internal/middleware"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/repository"
	"github.com/lu-jeremy/food-bridge/internal/service"
)

const testSecret = "handler-test-secret"

type fakeGeocoder struct{}

func (fakeGeocoder) Resolve(context.Context, string) (float64, float64, error) {
	return 51.5, -0.12, nil
}

type fakeEmbedder struct{}

// Identical texts embed identically; anything else is orthogonal enough
// to fall below the similarity cutoff.
func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func setupRouter(t *testing.T) *mux.Router {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	producer := messaging.NewNoopProducer()

	identityService := service.NewIdentityService(accountRepo, fakeGeocoder{}, testSecret)
	listingService := service.NewListingService(listingRepo, accountRepo, producer, false)
	requestService := service.NewRequestService(requestRepo, listingRepo, accountRepo, producer, config.PolicyReserve)
	matchingService := service.NewMatchingService(fakeEmbedder{})

	accountHandler := NewAccountHandler(identityService)
	listingHandler := NewListingHandler(listingService, matchingService)
	requestHandler := NewRequestHandler(requestService)

	router := mux.NewRouter()
	router.HandleFunc("/accounts/register", accountHandler.Register).Methods(http.MethodPost)
	router.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/accounts/me", middleware.AuthMiddleware(accountHandler.GetProfile, testSecret)).Methods(http.MethodGet)
	router.HandleFunc("/listings", middleware.AuthMiddleware(listingHandler.Create, testSecret)).Methods(http.MethodPost)
	router.HandleFunc("/listings", middleware.AuthMiddleware(listingHandler.Browse, testSecret)).Methods(http.MethodGet)
	router.HandleFunc("/listings/mine", middleware.AuthMiddleware(listingHandler.MyListings, testSecret)).Methods(http.MethodGet)
	router.HandleFunc("/listings/{id:[0-9]+}/withdraw", middleware.AuthMiddleware(listingHandler.Withdraw, testSecret)).Methods(http.MethodPost)
	router.HandleFunc("/requests", middleware.AuthMiddleware(requestHandler.Create, testSecret)).Methods(http.MethodPost)
	router.HandleFunc("/requests/mine", middleware.AuthMiddleware(requestHandler.MyRequests, testSecret)).Methods(http.MethodGet)
	router.HandleFunc("/requests/{id:[0-9]+}/accept", middleware.AuthMiddleware(requestHandler.Accept, testSecret)).Methods(http.MethodPost)
	router.HandleFunc("/health", accountHandler.HealthCheck).Methods(http.MethodGet)

	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func registerAndLogin(t *testing.T, router *mux.Router, email, role, name string) string {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/accounts/register", "", models.RegisterRequest{
		Email:    email,
		Password: "secret123",
		Role:     role,
		Name:     name,
		Address:  "1 Main St",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPost, "/accounts/login", "", models.LoginRequest{
		Email:    email,
		Password: "secret123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return resp["token"]
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRegisterLoginProfile(t *testing.T) {
	router := setupRouter(t)

	token := registerAndLogin(t, router, "p@example.com", models.RoleProvider, "Bakery")

	rr := doJSON(t, router, http.MethodGet, "/accounts/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var account models.Account
	if err := json.Unmarshal(rr.Body.Bytes(), &account); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if account.Email != "p@example.com" || account.Role != models.RoleProvider {
		t.Fatalf("unexpected profile: %+v", account)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("password_hash")) {
		t.Fatalf("profile leaks password hash")
	}
}

func TestLoginWrongPasswordReturns401(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router, "p@example.com", models.RoleProvider, "Bakery")

	rr := doJSON(t, router, http.MethodPost, "/accounts/login", "", models.LoginRequest{
		Email:    "p@example.com",
		Password: "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestDuplicateRegisterReturns409(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router, "p@example.com", models.RoleProvider, "Bakery")

	rr := doJSON(t, router, http.MethodPost, "/accounts/register", "", models.RegisterRequest{
		Email:    "p@example.com",
		Password: "secret123",
		Role:     models.RoleProvider,
		Name:     "Again",
		Address:  "1 Main St",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	router := setupRouter(t)

	for _, path := range []string{"/listings", "/requests/mine", "/accounts/me"} {
		rr := doJSON(t, router, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestListingAndRequestFlow(t *testing.T) {
	router := setupRouter(t)

	providerToken := registerAndLogin(t, router, "p@example.com", models.RoleProvider, "Bakery")
	bankToken := registerAndLogin(t, router, "b@example.com", models.RoleRecipient, "Food Bank")

	// Provider posts a listing.
	rr := doJSON(t, router, http.MethodPost, "/listings", providerToken, models.CreateListingRequest{
		FoodItem:    "Bread",
		Quantity:    10,
		Expiry:      "2030-01-01",
		Description: "fresh sourdough loaves",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create listing returned %d: %s", rr.Code, rr.Body.String())
	}
	var listing models.Listing
	if err := json.Unmarshal(rr.Body.Bytes(), &listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}

	// Recipient browses and sees it with provider info.
	rr = doJSON(t, router, http.MethodGet, "/listings", bankToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("browse returned %d", rr.Code)
	}
	var browse []models.ListingWithProvider
	if err := json.Unmarshal(rr.Body.Bytes(), &browse); err != nil {
		t.Fatalf("failed to decode browse: %v", err)
	}
	if len(browse) != 1 || browse[0].ProviderName != "Bakery" {
		t.Fatalf("unexpected browse results: %+v", browse)
	}

	// Ranked browse with the exact description surfaces the listing.
	rr = doJSON(t, router, http.MethodGet, "/listings?q=fresh+sourdough+loaves", bankToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("ranked browse returned %d: %s", rr.Code, rr.Body.String())
	}
	var ranked []models.ScoredListing
	if err := json.Unmarshal(rr.Body.Bytes(), &ranked); err != nil {
		t.Fatalf("failed to decode ranked browse: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Similarity < 0.3 {
		t.Fatalf("expected the listing ranked above threshold, got %+v", ranked)
	}

	// Recipient requests more than available: 409, quantity unchanged.
	rr = doJSON(t, router, http.MethodPost, "/requests", bankToken, models.CreateFoodRequest{
		ListingID: listing.ID,
		Quantity:  11,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for over-ask, got %d: %s", rr.Code, rr.Body.String())
	}

	// Then a valid request.
	rr = doJSON(t, router, http.MethodPost, "/requests", bankToken, models.CreateFoodRequest{
		ListingID: listing.ID,
		Quantity:  4,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create request returned %d: %s", rr.Code, rr.Body.String())
	}
	var request models.Request
	if err := json.Unmarshal(rr.Body.Bytes(), &request); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}

	// Provider sees the request on the dashboard.
	rr = doJSON(t, router, http.MethodGet, "/listings/mine", providerToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("my listings returned %d", rr.Code)
	}
	var mine []models.ProviderListing
	if err := json.Unmarshal(rr.Body.Bytes(), &mine); err != nil {
		t.Fatalf("failed to decode my listings: %v", err)
	}
	if len(mine) != 1 || mine[0].RequestCount != 1 || mine[0].Requesters[0] != "Food Bank" {
		t.Fatalf("unexpected provider dashboard: %+v", mine)
	}
	if mine[0].Quantity != 6 {
		t.Fatalf("expected remaining 6 after reservation, got %d", mine[0].Quantity)
	}

	// Recipient sees it too, with provider info joined.
	rr = doJSON(t, router, http.MethodGet, "/requests/mine", bankToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("my requests returned %d", rr.Code)
	}
	var myRequests []models.RecipientRequest
	if err := json.Unmarshal(rr.Body.Bytes(), &myRequests); err != nil {
		t.Fatalf("failed to decode my requests: %v", err)
	}
	if len(myRequests) != 1 || myRequests[0].ProviderName != "Bakery" || myRequests[0].FoodItem != "Bread" {
		t.Fatalf("unexpected recipient dashboard: %+v", myRequests)
	}

	// Provider accepts.
	rr = doJSON(t, router, http.MethodPost, fmt.Sprintf("/requests/%d/accept", request.ID), providerToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept returned %d: %s", rr.Code, rr.Body.String())
	}

	// A recipient cannot accept requests against someone else's listing.
	rr = doJSON(t, router, http.MethodPost, fmt.Sprintf("/requests/%d/accept", request.ID), bankToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequestAgainstMissingListingReturns404(t *testing.T) {
	router := setupRouter(t)
	bankToken := registerAndLogin(t, router, "b@example.com", models.RoleRecipient, "Food Bank")

	rr := doJSON(t, router, http.MethodPost, "/requests", bankToken, models.CreateFoodRequest{
		ListingID: 9999,
		Quantity:  1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWithdrawEndpoint(t *testing.T) {
	router := setupRouter(t)
	providerToken := registerAndLogin(t, router, "p@example.com", models.RoleProvider, "Bakery")

	rr := doJSON(t, router, http.MethodPost, "/listings", providerToken, models.CreateListingRequest{
		FoodItem: "Soup",
		Quantity: 5,
		Expiry:   "2030-01-01",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create listing returned %d", rr.Code)
	}
	var listing models.Listing
	if err := json.Unmarshal(rr.Body.Bytes(), &listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}

	rr = doJSON(t, router, http.MethodPost, fmt.Sprintf("/listings/%d/withdraw", listing.ID), providerToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("withdraw returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodGet, "/listings", providerToken, nil)
	var browse []models.ListingWithProvider
	if err := json.Unmarshal(rr.Body.Bytes(), &browse); err != nil {
		t.Fatalf("failed to decode browse: %v", err)
	}
	if len(browse) != 0 {
		t.Fatalf("withdrawn listing still visible in browse")
	}
}
