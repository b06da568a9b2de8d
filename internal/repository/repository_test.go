package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database alive and
	// serializes access the way a server-side database would.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccount(t *testing.T, db *sqlx.DB, email, role, name string) *models.Account {
	t.Helper()

	account := &models.Account{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Name:         name,
		Address:      "1 Main St",
		Lat:          37.77,
		Lng:          -122.42,
	}
	if err := NewAccountRepository(db).Create(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func createTestListing(t *testing.T, db *sqlx.DB, providerID int64, item string, quantity int) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		ProviderID:  providerID,
		FoodItem:    item,
		Quantity:    quantity,
		Expiry:      time.Now().Add(48 * time.Hour).UTC(),
		Description: item + " in good condition",
		Status:      models.ListingAvailable,
	}
	if err := NewListingRepository(db).Create(context.Background(), listing); err != nil {
		t.Fatalf("failed to create listing: %v", err)
	}
	return listing
}
