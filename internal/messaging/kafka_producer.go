package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lu-jeremy/food-bridge/internal/models"
)

// Event types published on listing and request state changes.
const (
	EventListingCreated   = "listing.created"
	EventListingExhausted = "listing.exhausted"
	EventListingWithdrawn = "listing.withdrawn"
	EventRequestCreated   = "request.created"
	EventRequestAccepted  = "request.accepted"
	EventRequestRejected  = "request.rejected"
	EventRequestFulfilled = "request.fulfilled"
)

type Producer interface {
	PublishEvent(ctx context.Context, event *models.MarketplaceEvent) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}

	return &kafkaProducer{writer: writer}
}

func (p *kafkaProducer) PublishEvent(ctx context.Context, event *models.MarketplaceEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal marketplace event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ListingID, 10)),
		Value: eventJSON,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write marketplace event to kafka: %w", err)
	}

	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// noopProducer is used when no brokers are configured.
type noopProducer struct{}

func NewNoopProducer() Producer {
	return noopProducer{}
}

func (noopProducer) PublishEvent(context.Context, *models.MarketplaceEvent) error { return nil }
func (noopProducer) Close() error                                                 { return nil }
