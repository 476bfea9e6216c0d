package experiment

import (
	"context"
	"time"

	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for experiment-related events.
type DomainEvent interface {
	EventType() string
}

// CalculatedEvent is published after a successful sphere calculation.  It
// carries a flat snapshot of the result so consumers never need the domain
// types to decode it.
type CalculatedEvent struct {
	ExperimentID common.ID `json:"experiment_id"`
	SampleName   string    `json:"sample_name"`
	Mode         string    `json:"mode"`
	Loss         string    `json:"loss"`
	DeltaD       float64   `json:"delta_d"`
	DeltaP       float64   `json:"delta_p"`
	DeltaH       float64   `json:"delta_h"`
	Radius       float64   `json:"radius"`
	Accuracy     float64   `json:"accuracy"`
	Converged    bool      `json:"converged"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (e CalculatedEvent) EventType() string { return "experiment.calculated" }

// DeletedEvent is published when an experiment is removed.
type DeletedEvent struct {
	ExperimentID common.ID `json:"experiment_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (e DeletedEvent) EventType() string { return "experiment.deleted" }

// ─────────────────────────────────────────────────────────────────────────────
// Publisher
// ─────────────────────────────────────────────────────────────────────────────

// EventPublisher delivers experiment domain events to downstream consumers.
// The Kafka producer implements it; tests use an in-memory recorder.  Publish
// failures are reported to the caller but must not roll back the calculation
// itself.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// NopPublisher discards all events.  Used by the CLI and by deployments
// without a message broker.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, DomainEvent) error { return nil }
