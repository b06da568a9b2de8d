package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lu-jeremy/food-bridge/internal/geo"
	"github.com/lu-jeremy/food-bridge/internal/messaging"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/repository"
)

type fixture struct {
	db       *sqlx.DB
	accounts repository.AccountRepository
	listings repository.ListingRepository
	requests repository.RequestRepository
	producer messaging.Producer
}

func newFixture(t *testing.T) *fixture {
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

	return &fixture{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		listings: repository.NewListingRepository(db),
		requests: repository.NewRequestRepository(db),
		producer: messaging.NewNoopProducer(),
	}
}

func (f *fixture) account(t *testing.T, email, role, name string) *models.Account {
	t.Helper()

	account := &models.Account{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Name:         name,
		Address:      "1 Main St",
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func (f *fixture) listing(t *testing.T, providerID int64, item string, quantity int) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		ProviderID:  providerID,
		FoodItem:    item,
		Quantity:    quantity,
		Expiry:      time.Now().Add(48 * time.Hour).UTC(),
		Description: item + " in good condition",
		Status:      models.ListingAvailable,
	}
	if err := f.listings.Create(context.Background(), listing); err != nil {
		t.Fatalf("failed to create listing: %v", err)
	}
	return listing
}

type fakeGeocoder struct {
	lat, lng float64
	err      error
}

func (g fakeGeocoder) Resolve(context.Context, string) (float64, float64, error) {
	if g.err != nil {
		return 0, 0, g.err
	}
	return g.lat, g.lng, nil
}

var _ geo.Geocoder = fakeGeocoder{}
