package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id int64) (*models.Listing, error)
	ListAvailable(ctx context.Context, excludeExpired bool) ([]*models.ListingWithProvider, error)
	ListByProvider(ctx context.Context, providerID int64) ([]*models.ProviderListing, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ReserveQuantity(ctx context.Context, id int64, quantity int) error
	ReleaseQuantity(ctx context.Context, id int64, quantity int) error
}

type listingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	query := r.db.Rebind(`
		INSERT INTO listings (provider_id, food_item, quantity, expiry, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	now := time.Now().UTC()
	err := r.db.QueryRowContext(
		ctx,
		query,
		listing.ProviderID,
		listing.FoodItem,
		listing.Quantity,
		listing.Expiry,
		listing.Description,
		listing.Status,
		now,
		now,
	).Scan(&listing.ID)

	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	listing.CreatedAt = now
	listing.UpdatedAt = now
	return nil
}

func (r *listingRepository) FindByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	query := r.db.Rebind(`
		SELECT id, provider_id, food_item, quantity, expiry, description, status, created_at, updated_at
		FROM listings WHERE id = ?
	`)

	err := r.db.GetContext(ctx, &listing, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}

	return &listing, nil
}

func (r *listingRepository) ListAvailable(ctx context.Context, excludeExpired bool) ([]*models.ListingWithProvider, error) {
	query := `
		SELECT l.id, l.provider_id, l.food_item, l.quantity, l.expiry, l.description,
		       l.status, l.created_at, l.updated_at,
		       a.name AS provider_name, a.address AS provider_address
		FROM listings l
		JOIN accounts a ON l.provider_id = a.id
		WHERE l.status = ?
	`
	args := []interface{}{models.ListingAvailable}
	if excludeExpired {
		query += ` AND l.expiry > ?`
		args = append(args, time.Now().UTC())
	}
	query += ` ORDER BY l.id DESC`

	listings := []*models.ListingWithProvider{}
	err := r.db.SelectContext(ctx, &listings, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list available listings: %w", err)
	}

	return listings, nil
}

// ListByProvider returns the provider's listings with each listing's
// request count and requester names. Listings with no requests appear
// with a zero count; the aggregation happens here rather than in SQL so
// the query works unchanged on both drivers.
func (r *listingRepository) ListByProvider(ctx context.Context, providerID int64) ([]*models.ProviderListing, error) {
	query := r.db.Rebind(`
		SELECT l.id, l.provider_id, l.food_item, l.quantity, l.expiry, l.description,
		       l.status, l.created_at, l.updated_at,
		       a.name AS requester_name
		FROM listings l
		LEFT JOIN requests r ON r.listing_id = l.id
		LEFT JOIN accounts a ON r.recipient_id = a.id
		WHERE l.provider_id = ?
		ORDER BY l.id DESC, r.id ASC
	`)

	rows, err := r.db.QueryxContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider listings: %w", err)
	}
	defer rows.Close()

	var result []*models.ProviderListing
	byID := map[int64]*models.ProviderListing{}

	for rows.Next() {
		var row struct {
			models.Listing
			RequesterName sql.NullString `db:"requester_name"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan provider listing: %w", err)
		}

		pl, ok := byID[row.ID]
		if !ok {
			pl = &models.ProviderListing{Listing: row.Listing, Requesters: []string{}}
			byID[row.ID] = pl
			result = append(result, pl)
		}
		if row.RequesterName.Valid {
			pl.RequestCount++
			pl.Requesters = append(pl.Requesters, row.RequesterName.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read provider listings: %w", err)
	}

	if result == nil {
		result = []*models.ProviderListing{}
	}
	return result, nil
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := r.db.Rebind(`UPDATE listings SET status = ?, updated_at = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ReserveQuantity decrements the listing's remaining quantity by a single
// guarded UPDATE. The quantity check is part of the statement, so two
// concurrent reservations can never drive the quantity below zero. When
// the decrement empties the listing, the same statement flips its status
// to exhausted.
func (r *listingRepository) ReserveQuantity(ctx context.Context, id int64, quantity int) error {
	query := r.db.Rebind(`
		UPDATE listings
		SET quantity = quantity - ?,
		    status = CASE WHEN quantity - ? = 0 THEN ? ELSE status END,
		    updated_at = ?
		WHERE id = ? AND status = ? AND quantity >= ?
	`)

	res, err := r.db.ExecContext(ctx, query,
		quantity, quantity, models.ListingExhausted, time.Now().UTC(),
		id, models.ListingAvailable, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve quantity: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrInsufficientQuantity
	}

	return nil
}

// ReleaseQuantity returns previously reserved quantity to a listing,
// reviving an exhausted listing if the release makes it non-empty. Used
// to compensate when request persistence fails after a reservation.
func (r *listingRepository) ReleaseQuantity(ctx context.Context, id int64, quantity int) error {
	query := r.db.Rebind(`
		UPDATE listings
		SET quantity = quantity + ?,
		    status = CASE WHEN status = ? THEN ? ELSE status END,
		    updated_at = ?
		WHERE id = ?
	`)

	_, err := r.db.ExecContext(ctx, query,
		quantity, models.ListingExhausted, models.ListingAvailable, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to release quantity: %w", err)
	}

	return nil
}
