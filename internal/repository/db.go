package repository

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects to the database with a bounded retry loop. Transient
// connection failures at startup (database container still coming up)
// are retried with a fixed backoff; anything still failing after the
// last attempt is returned.
func Open(driver, url string) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = sqlx.Connect(driver, url)
		if err == nil {
			return db, nil
		}
		if attempt < connectAttempts {
			log.Printf("Database connection attempt %d/%d failed: %v", attempt, connectAttempts, err)
			time.Sleep(connectBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
}

// Migrate creates the schema if it does not exist.
func Migrate(db *sqlx.DB) error {
	serial := "SERIAL PRIMARY KEY"
	if db.DriverName() == "sqlite3" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS accounts (
		id %[1]s,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL,
		name VARCHAR(255) NOT NULL,
		address VARCHAR(512) NOT NULL,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		id %[1]s,
		provider_id INTEGER NOT NULL REFERENCES accounts(id),
		food_item VARCHAR(256) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		expiry TIMESTAMP NOT NULL,
		description VARCHAR(1024) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requests (
		id %[1]s,
		listing_id INTEGER NOT NULL REFERENCES listings(id),
		recipient_id INTEGER NOT NULL REFERENCES accounts(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	CREATE INDEX IF NOT EXISTS idx_listings_provider ON listings(provider_id);
	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
	CREATE INDEX IF NOT EXISTS idx_requests_listing ON requests(listing_id);
	CREATE INDEX IF NOT EXISTS idx_requests_recipient ON requests(recipient_id);
	`, serial)

	_, err := db.Exec(schema)
	return err
}
