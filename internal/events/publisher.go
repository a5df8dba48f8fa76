package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/circuitbreaker"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/retry"
)

// Event types
const (
	TypeSessionPriced  = "session.priced"
	TypeCouponRedeemed = "coupon.redeemed"
)

// Event represents a domain event
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Aggregate string          `json:"aggregate"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Version   int             `json:"version"`
}

// SessionPriced is the payload of a session.priced event
type SessionPriced struct {
	RequestID       string                 `json:"requestId,omitempty"`
	Location        string                 `json:"location"`
	EntryTime       time.Time              `json:"entryTime"`
	DurationMinutes int                    `json:"durationMinutes"`
	Breakdown       pricing.PriceBreakdown `json:"breakdown"`
}

// CouponRedeemed is the payload of a coupon.redeemed event
type CouponRedeemed struct {
	Code           string        `json:"code"`
	Location       string        `json:"location"`
	DiscountAmount pricing.Money `json:"discountAmount"`
}

// Publisher defines the interface for publishing events
type Publisher interface {
	// Publish publishes an event
	Publish(ctx context.Context, event *Event) error

	// PublishBatch publishes multiple events
	PublishBatch(ctx context.Context, events []*Event) error

	// Close closes the publisher
	Close() error
}

// NewEvent creates a new event. aggregate is the partition key, normally the parking location.
func NewEvent(eventType, aggregate string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Aggregate: aggregate,
		Data:      payload,
		Timestamp: time.Now().Unix(),
		Version:   1,
	}, nil
}

// NoopPublisher is a no-operation publisher for testing and development
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error        { return nil }
func (NoopPublisher) PublishBatch(context.Context, []*Event) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }

// KafkaPublisher publishes JSON encoded events to a Kafka topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	retry    retry.Config
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewSaramaConfig returns the producer settings used by KafkaPublisher
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "pricing-service"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 0 // retries go through retry.Do
	return cfg
}

// NewKafkaPublisher connects a sync producer to the brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, retry.DefaultConfig(), logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer. Once the broker keeps failing the
// circuit opens and events are dropped without waiting on retries.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, retryCfg retry.Config, logger *zap.Logger) *KafkaPublisher {
	retryCfg.Retryable = retry.IsRetryableError
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		retry:    retryCfg,
		breaker:  circuitbreaker.New("kafka", circuitbreaker.DefaultConfig(), logger),
		logger:   logger,
	}
}

// WithCircuitBreaker replaces the default breaker
func (p *KafkaPublisher) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *KafkaPublisher {
	p.breaker = cb
	return p
}

func (p *KafkaPublisher) message(event *Event) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Aggregate),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("event_id"), Value: []byte(event.ID)},
		},
	}, nil
}

// Publish publishes an event
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}

	err = p.breaker.Execute(func() error {
		return retry.Do(ctx, p.retry, p.logger, func(context.Context) error {
			partition, offset, err := p.producer.SendMessage(msg)
			if err == nil {
				p.logger.Debug("Event published",
					zap.String("event_id", event.ID),
					zap.String("event_type", event.Type),
					zap.Int32("partition", partition),
					zap.Int64("offset", offset))
			}
			return err
		})
	})
	if err != nil {
		metrics.RecordEventPublished(event.Type, "error")
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	metrics.RecordEventPublished(event.Type, "ok")
	return nil
}

// PublishBatch publishes multiple events
func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the publisher
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
