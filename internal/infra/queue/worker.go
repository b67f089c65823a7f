package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// SyncRunner executes one sync run.
type SyncRunner interface {
	Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error)
}

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Runner  SyncRunner

	// DefaultMode is used when a request does not name one.
	DefaultMode entity.SyncMode
}

func NewWorker(ch Consumer, runner SyncRunner, defaultMode entity.SyncMode) *Worker {
	return &Worker{Channel: ch, Runner: runner, DefaultMode: defaultMode}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"salesops-sync",
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register RabbitMQ consumer: %w", err)
	}

	logging.Info().Str("queue", queueName).Msg(" [*] Worker waiting for sync requests")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("RabbitMQ delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	log := logging.Ctx(ctx)
	log.Info().Str("correlation_id", d.CorrelationId).Msg("📥 [WORKER] Sync request received")

	var req SyncRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		log.Error().Err(err).Msg("❌ [WORKER] Invalid JSON, dropping message")
		d.Nack(false, false)
		return
	}

	mode, err := entity.ParseSyncMode(string(req.Mode), w.DefaultMode)
	if err != nil {
		log.Error().Err(err).Msg("❌ [WORKER] Invalid sync mode, dropping message")
		d.Nack(false, false)
		return
	}

	_, err = w.Runner.Run(ctx, mode)
	switch {
	case err == nil:
		log.Info().Str("request_id", req.RequestID).Msg("✅ [WORKER] Sync request done")
		d.Ack(false)
	case errors.Is(err, entity.ErrSyncInProgress):
		// The running sync already covers this request.
		log.Warn().Str("request_id", req.RequestID).Msg("⚠️ [WORKER] Sync already running, request acknowledged")
		d.Ack(false)
	case ctx.Err() != nil:
		// Shutting down: give the request back to the queue.
		d.Nack(false, true)
	default:
		log.Error().Err(err).Str("request_id", req.RequestID).Msg("❌ [WORKER] Sync failed, request sent to DLQ")
		d.Nack(false, false)
	}
}
