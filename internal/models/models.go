package models

import (
	"errors"
	"time"
)

// Account roles.
const (
	RoleProvider  = "provider"
	RoleRecipient = "recipient"
)

// Listing statuses.
const (
	ListingAvailable = "available"
	ListingExhausted = "exhausted"
	ListingWithdrawn = "withdrawn"
)

// Request statuses.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestRejected  = "rejected"
	RequestFulfilled = "fulfilled"
)

// Sentinel errors shared across the service layer. Handlers map these to
// HTTP status codes with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrAddressUnresolvable  = errors.New("address could not be resolved")
	ErrForbidden            = errors.New("forbidden")
)

type Account struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Name         string    `db:"name" json:"name"`
	Address      string    `db:"address" json:"address"`
	Lat          float64   `db:"lat" json:"lat"`
	Lng          float64   `db:"lng" json:"lng"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Listing struct {
	ID          int64     `db:"id" json:"id"`
	ProviderID  int64     `db:"provider_id" json:"provider_id"`
	FoodItem    string    `db:"food_item" json:"food_item"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Expiry      time.Time `db:"expiry" json:"expiry"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type Request struct {
	ID          int64     `db:"id" json:"id"`
	ListingID   int64     `db:"listing_id" json:"listing_id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ListingWithProvider is the browse view: a listing joined with its
// provider's name and pickup address.
type ListingWithProvider struct {
	Listing
	ProviderName    string `db:"provider_name" json:"provider_name"`
	ProviderAddress string `db:"provider_address" json:"provider_address"`
}

// ScoredListing is a browse row with a relevance score attached.
type ScoredListing struct {
	ListingWithProvider
	Similarity float64 `json:"similarity"`
}

// ProviderListing is the provider dashboard view: a listing with the
// number of requests against it and the requester names.
type ProviderListing struct {
	Listing
	RequestCount int      `json:"request_count"`
	Requesters   []string `json:"requesters"`
}

// RecipientRequest is the recipient dashboard view: a request joined with
// its listing and the provider's contact info.
type RecipientRequest struct {
	Request
	FoodItem          string    `db:"food_item" json:"food_item"`
	AvailableQuantity int       `db:"available_quantity" json:"available_quantity"`
	Expiry            time.Time `db:"expiry" json:"expiry"`
	ProviderName      string    `db:"provider_name" json:"provider_name"`
	ProviderAddress   string    `db:"provider_address" json:"provider_address"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateListingRequest struct {
	FoodItem    string `json:"food_item"`
	Quantity    int    `json:"quantity"`
	Expiry      string `json:"expiry"`
	Description string `json:"description"`
}

type CreateFoodRequest struct {
	ListingID int64 `json:"listing_id"`
	Quantity  int   `json:"quantity"`
}

// MarketplaceEvent is published to Kafka on listing and request state
// changes.
type MarketplaceEvent struct {
	Type      string    `json:"type"`
	ListingID int64     `json:"listing_id"`
	RequestID int64     `json:"request_id,omitempty"`
	AccountID int64     `json:"account_id,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if r.Role != RoleProvider && r.Role != RoleRecipient {
		return errors.New("role must be provider or recipient")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Address == "" {
		return errors.New("address is required")
	}
	return nil
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func (r *CreateListingRequest) Validate() error {
	if r.FoodItem == "" {
		return errors.New("food_item is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if r.Expiry == "" {
		return errors.New("expiry is required")
	}
	return nil
}

// ParseExpiry accepts an RFC 3339 timestamp or a bare date.
func (r *CreateListingRequest) ParseExpiry() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, r.Expiry); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", r.Expiry)
	if err != nil {
		return time.Time{}, errors.New("expiry must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return t, nil
}

func (r *CreateFoodRequest) Validate() error {
	if r.ListingID <= 0 {
		return errors.New("listing_id is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}
