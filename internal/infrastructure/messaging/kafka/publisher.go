package kafka

import (
	"context"
	"encoding/json"

	"github.com/turtacn/mixingcompass/internal/domain/experiment"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// ExperimentPublisher routes experiment domain events to their Kafka
// topics.  The partition key is the experiment ID so events for one
// experiment stay ordered.
type ExperimentPublisher struct {
	producer *Producer
	logger   logging.Logger
}

var _ experiment.EventPublisher = (*ExperimentPublisher)(nil)

func NewExperimentPublisher(producer *Producer, log logging.Logger) *ExperimentPublisher {
	if log == nil {
		log = logging.Default()
	}
	return &ExperimentPublisher{producer: producer, logger: log.Named("experiment_publisher")}
}

// Publish implements experiment.EventPublisher.
func (p *ExperimentPublisher) Publish(ctx context.Context, event experiment.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event payload")
	}
	envelope := NewEnvelope(event.EventType(), payload)
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}

	return p.producer.Publish(ctx, &Message{
		Topic:     event.EventType(),
		Key:       partitionKey(event),
		Value:     data,
		Timestamp: envelope.Timestamp,
	})
}

func partitionKey(event experiment.DomainEvent) []byte {
	switch e := event.(type) {
	case experiment.CalculatedEvent:
		return []byte(e.ExperimentID)
	case experiment.DeletedEvent:
		return []byte(e.ExperimentID)
	default:
		return nil
	}
}
