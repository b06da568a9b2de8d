package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lu-jeremy/food-bridge/internal/messaging"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/repository"
)

type ListingService interface {
	CreateListing(ctx context.Context, providerID int64, req *models.CreateListingRequest) (*models.Listing, error)
	ListAvailable(ctx context.Context) ([]*models.ListingWithProvider, error)
	ListByProvider(ctx context.Context, providerID int64) ([]*models.ProviderListing, error)
	WithdrawListing(ctx context.Context, providerID, listingID int64) error
}

type listingService struct {
	listings       repository.ListingRepository
	accounts       repository.AccountRepository
	producer       messaging.Producer
	excludeExpired bool
}

func NewListingService(listings repository.ListingRepository, accounts repository.AccountRepository, producer messaging.Producer, excludeExpired bool) ListingService {
	return &listingService{
		listings:       listings,
		accounts:       accounts,
		producer:       producer,
		excludeExpired: excludeExpired,
	}
}

func (s *listingService) CreateListing(ctx context.Context, providerID int64, req *models.CreateListingRequest) (*models.Listing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	expiry, err := req.ParseExpiry()
	if err != nil {
		return nil, err
	}

	provider, err := s.accounts.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider.Role != models.RoleProvider {
		return nil, models.ErrForbidden
	}

	listing := &models.Listing{
		ProviderID:  providerID,
		FoodItem:    req.FoodItem,
		Quantity:    req.Quantity,
		Expiry:      expiry,
		Description: req.Description,
		Status:      models.ListingAvailable,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventListingCreated,
		ListingID: listing.ID,
		AccountID: providerID,
		Quantity:  listing.Quantity,
		Status:    listing.Status,
		Timestamp: listing.CreatedAt,
	})

	return listing, nil
}

func (s *listingService) ListAvailable(ctx context.Context) ([]*models.ListingWithProvider, error) {
	return s.listings.ListAvailable(ctx, s.excludeExpired)
}

func (s *listingService) ListByProvider(ctx context.Context, providerID int64) ([]*models.ProviderListing, error) {
	return s.listings.ListByProvider(ctx, providerID)
}

func (s *listingService) WithdrawListing(ctx context.Context, providerID, listingID int64) error {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.ProviderID != providerID {
		return models.ErrForbidden
	}
	if listing.Status != models.ListingAvailable {
		return fmt.Errorf("listing is not available")
	}

	if err := s.listings.UpdateStatus(ctx, listingID, models.ListingWithdrawn); err != nil {
		return err
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventListingWithdrawn,
		ListingID: listingID,
		AccountID: providerID,
		Status:    models.ListingWithdrawn,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

func (s *listingService) publish(ctx context.Context, event *models.MarketplaceEvent) {
	if err := s.producer.PublishEvent(ctx, event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Type, err)
	}
}
