package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	query := r.db.Rebind(`
		INSERT INTO accounts (email, password_hash, role, name, address, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	now := time.Now().UTC()
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Name,
		account.Address,
		account.Lat,
		account.Lng,
		now,
	).Scan(&account.ID)

	if isUniqueViolation(err) {
		return models.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	account.CreatedAt = now
	return nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	query := r.db.Rebind(`SELECT id, email, password_hash, role, name, address, lat, lng, created_at FROM accounts WHERE email = ?`)

	err := r.db.GetContext(ctx, &account, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return &account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := r.db.Rebind(`SELECT id, email, password_hash, role, name, address, lat, lng, created_at FROM accounts WHERE id = ?`)

	err := r.db.GetContext(ctx, &account, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return &account, nil
}

// isUniqueViolation recognizes duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
