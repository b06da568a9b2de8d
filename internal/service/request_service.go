package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lu-jeremy/food-bridge/internal/config"
	"github.com/lu-jeremy/food-bridge/internal/messaging"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/repository"
)

type RequestService interface {
	CreateRequest(ctx context.Context, recipientID int64, req *models.CreateFoodRequest) (*models.Request, error)
	ListByRecipient(ctx context.Context, recipientID int64) ([]*models.RecipientRequest, error)
	AcceptRequest(ctx context.Context, providerID, requestID int64) error
	RejectRequest(ctx context.Context, providerID, requestID int64) error
	FulfillRequest(ctx context.Context, providerID, requestID int64) error
}

type requestService struct {
	requests repository.RequestRepository
	listings repository.ListingRepository
	accounts repository.AccountRepository
	producer messaging.Producer
	policy   string
}

// NewRequestService builds the request workflow with the configured
// reservation policy. Under config.PolicyReserve quantity is reserved
// atomically at request creation; under config.PolicyManual the request
// is recorded pending and the decrement happens on acceptance.
func NewRequestService(
	requests repository.RequestRepository,
	listings repository.ListingRepository,
	accounts repository.AccountRepository,
	producer messaging.Producer,
	policy string,
) RequestService {
	return &requestService{
		requests: requests,
		listings: listings,
		accounts: accounts,
		producer: producer,
		policy:   policy,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, recipientID int64, req *models.CreateFoodRequest) (*models.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	recipient, err := s.accounts.FindByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient.Role != models.RoleRecipient {
		return nil, models.ErrForbidden
	}

	listing, err := s.listings.FindByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingAvailable {
		return nil, fmt.Errorf("listing is not available")
	}

	if s.policy == config.PolicyReserve {
		if err := s.listings.ReserveQuantity(ctx, req.ListingID, req.Quantity); err != nil {
			return nil, err
		}
	}

	request := &models.Request{
		ListingID:   req.ListingID,
		RecipientID: recipientID,
		Quantity:    req.Quantity,
		Status:      models.RequestPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if s.policy == config.PolicyReserve {
			if relErr := s.listings.ReleaseQuantity(ctx, req.ListingID, req.Quantity); relErr != nil {
				log.Printf("Failed to release reserved quantity for listing %d: %v", req.ListingID, relErr)
			}
		}
		return nil, err
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventRequestCreated,
		ListingID: request.ListingID,
		RequestID: request.ID,
		AccountID: recipientID,
		Quantity:  request.Quantity,
		Status:    request.Status,
		Timestamp: request.CreatedAt,
	})
	s.publishIfExhausted(ctx, req.ListingID)

	return request, nil
}

func (s *requestService) ListByRecipient(ctx context.Context, recipientID int64) ([]*models.RecipientRequest, error) {
	return s.requests.ListByRecipient(ctx, recipientID)
}

func (s *requestService) AcceptRequest(ctx context.Context, providerID, requestID int64) error {
	request, listing, err := s.requestForProvider(ctx, providerID, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.RequestPending {
		return fmt.Errorf("request is not pending")
	}

	// Under the manual policy the quantity is only claimed now; the
	// request stays pending when the listing can no longer cover it.
	if s.policy == config.PolicyManual {
		if err := s.listings.ReserveQuantity(ctx, listing.ID, request.Quantity); err != nil {
			return err
		}
	}

	if err := s.requests.UpdateStatus(ctx, requestID, models.RequestAccepted); err != nil {
		return err
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventRequestAccepted,
		ListingID: listing.ID,
		RequestID: requestID,
		AccountID: providerID,
		Quantity:  request.Quantity,
		Status:    models.RequestAccepted,
		Timestamp: time.Now().UTC(),
	})
	s.publishIfExhausted(ctx, listing.ID)

	return nil
}

func (s *requestService) RejectRequest(ctx context.Context, providerID, requestID int64) error {
	request, listing, err := s.requestForProvider(ctx, providerID, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.RequestPending {
		return fmt.Errorf("request is not pending")
	}

	if err := s.requests.UpdateStatus(ctx, requestID, models.RequestRejected); err != nil {
		return err
	}

	// Reserved quantity goes back on the market when the provider turns
	// the request down.
	if s.policy == config.PolicyReserve {
		if err := s.listings.ReleaseQuantity(ctx, listing.ID, request.Quantity); err != nil {
			log.Printf("Failed to release quantity for rejected request %d: %v", requestID, err)
		}
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventRequestRejected,
		ListingID: listing.ID,
		RequestID: requestID,
		AccountID: providerID,
		Quantity:  request.Quantity,
		Status:    models.RequestRejected,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

func (s *requestService) FulfillRequest(ctx context.Context, providerID, requestID int64) error {
	request, listing, err := s.requestForProvider(ctx, providerID, requestID)
	if err != nil {
		return err
	}

	// Acceptance is implicit under reserve-on-request, so a pending
	// request can be fulfilled directly there.
	switch request.Status {
	case models.RequestAccepted:
	case models.RequestPending:
		if s.policy != config.PolicyReserve {
			return fmt.Errorf("request has not been accepted")
		}
	default:
		return fmt.Errorf("request cannot be fulfilled from status %s", request.Status)
	}

	if err := s.requests.UpdateStatus(ctx, requestID, models.RequestFulfilled); err != nil {
		return err
	}

	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventRequestFulfilled,
		ListingID: listing.ID,
		RequestID: requestID,
		AccountID: providerID,
		Quantity:  request.Quantity,
		Status:    models.RequestFulfilled,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

func (s *requestService) requestForProvider(ctx context.Context, providerID, requestID int64) (*models.Request, *models.Listing, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	listing, err := s.listings.FindByID(ctx, request.ListingID)
	if err != nil {
		return nil, nil, err
	}
	if listing.ProviderID != providerID {
		return nil, nil, models.ErrForbidden
	}

	return request, listing, nil
}

func (s *requestService) publishIfExhausted(ctx context.Context, listingID int64) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil || listing.Status != models.ListingExhausted {
		return
	}
	s.publish(ctx, &models.MarketplaceEvent{
		Type:      messaging.EventListingExhausted,
		ListingID: listingID,
		Status:    models.ListingExhausted,
		Timestamp: time.Now().UTC(),
	})
}

func (s *requestService) publish(ctx context.Context, event *models.MarketplaceEvent) {
	if err := s.producer.PublishEvent(ctx, event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Type, err)
	}
}
