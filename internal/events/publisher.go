package events

import (
	"context"

	"phi/internal/adapters/kafka"
	"phi/internal/domain/prediction"
	"phi/pkg/logger"
)

const eventSource = "forecast_service"

// Producer is the transport the publisher writes to
type Producer interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

// Publisher publishes prediction lifecycle events. A nil producer makes every
// publish a no-op, so the pipeline runs without Kafka.
type Publisher struct {
	producer Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Component("event_publisher"),
	}
}

// PublishPredictionCreated announces a newly stored prediction
func (p *Publisher) PublishPredictionCreated(ctx context.Context, pred *prediction.Prediction) error {
	return p.publish(ctx, kafka.TopicPredictionCreated, pred.ID.String(), PredictionCreatedEvent{
		Base:         NewBaseEvent(kafka.TopicPredictionCreated, eventSource, pred.UserID),
		PredictionID: pred.ID.String(),
		EventID:      pred.EventID,
		Result:       pred.Result(),
		Seed:         pred.Seed,
		Source:       pred.Source,
		AgentVersion: pred.AgentVersion,
	})
}

// PublishPredictionAnchored announces the ledger references of a prediction
func (p *Publisher) PublishPredictionAnchored(ctx context.Context, pred *prediction.Prediction, txHash, contentID string) error {
	return p.publish(ctx, kafka.TopicPredictionAnchored, pred.ID.String(), PredictionAnchoredEvent{
		Base:            NewBaseEvent(kafka.TopicPredictionAnchored, eventSource, pred.UserID),
		PredictionID:    pred.ID.String(),
		TxHash:          txHash,
		ContentObjectID: contentID,
	})
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if p == nil || p.producer == nil {
		return nil
	}
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Warnw("Event publish failed", "topic", topic, "key", key, "error", err)
		return err
	}
	return nil
}
