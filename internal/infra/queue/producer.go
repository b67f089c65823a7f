package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// SyncRequest asks the worker to run one sync.
type SyncRequest struct {
	RequestID   string          `json:"request_id"`
	Mode        entity.SyncMode `json:"mode"`
	RequestedBy string          `json:"requested_by"` // "api-key", "session", "scheduler"
	RequestedAt time.Time       `json:"requested_at"`
}

type SyncRequestPublisher interface {
	PublishSyncRequest(ctx context.Context, req SyncRequest) error
}

// Publisher is the part of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishSyncRequest(ctx context.Context, req SyncRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode sync request: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: req.RequestID,
			Timestamp:     req.RequestedAt,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}
	return nil
}
