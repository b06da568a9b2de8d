package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, id int64) (*models.Request, error)
	ListByRecipient(ctx context.Context, recipientID int64) ([]*models.RecipientRequest, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type requestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	query := r.db.Rebind(`
		INSERT INTO requests (listing_id, recipient_id, quantity, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	now := time.Now().UTC()
	err := r.db.QueryRowContext(
		ctx,
		query,
		request.ListingID,
		request.RecipientID,
		request.Quantity,
		request.Status,
		now,
	).Scan(&request.ID)

	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.CreatedAt = now
	return nil
}

func (r *requestRepository) FindByID(ctx context.Context, id int64) (*models.Request, error) {
	var request models.Request
	query := r.db.Rebind(`
		SELECT id, listing_id, recipient_id, quantity, status, created_at
		FROM requests WHERE id = ?
	`)

	err := r.db.GetContext(ctx, &request, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find request: %w", err)
	}

	return &request, nil
}

func (r *requestRepository) ListByRecipient(ctx context.Context, recipientID int64) ([]*models.RecipientRequest, error) {
	query := r.db.Rebind(`
		SELECT r.id, r.listing_id, r.recipient_id, r.quantity, r.status, r.created_at,
		       l.food_item, l.quantity AS available_quantity, l.expiry,
		       a.name AS provider_name, a.address AS provider_address
		FROM requests r
		JOIN listings l ON r.listing_id = l.id
		JOIN accounts a ON l.provider_id = a.id
		WHERE r.recipient_id = ?
		ORDER BY r.created_at DESC, r.id DESC
	`)

	requests := []*models.RecipientRequest{}
	err := r.db.SelectContext(ctx, &requests, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests by recipient: %w", err)
	}

	return requests, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := r.db.Rebind(`UPDATE requests SET status = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
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
