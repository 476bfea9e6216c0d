// Package kafka publishes experiment lifecycle events to a Kafka broker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// Topic names mirror the event type strings so a consumer can subscribe by
// the same identifier it finds in the envelope.
const (
	TopicExperimentCalculated = "experiment.calculated"
	TopicExperimentDeleted    = "experiment.deleted"
)

// EventEnvelope is the wire format for every published event.  Payload is
// the JSON-encoded domain event; consumers dispatch on EventType without
// decoding it.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

const (
	envelopeSource        = "mixingcompass"
	envelopeSchemaVersion = "1.0"
)

// NewEnvelope wraps an already-encoded payload.
func NewEnvelope(eventType string, payload json.RawMessage) EventEnvelope {
	return EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        envelopeSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: envelopeSchemaVersion,
		Payload:       payload,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic administration
// ─────────────────────────────────────────────────────────────────────────────

// TopicConfig describes one topic to provision.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// AdminConn is the subset of *kafka.Conn the TopicManager uses.
type AdminConn interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions the experiment topics at startup.
type TopicManager struct {
	conn   AdminConn
	logger logging.Logger
}

func NewTopicManager(conn AdminConn, log logging.Logger) *TopicManager {
	if log == nil {
		log = logging.Default()
	}
	return &TopicManager{conn: conn, logger: log.Named("kafka_topics")}
}

// DialTopicManager connects to the cluster controller for admin operations.
func DialTopicManager(ctx context.Context, broker string, log logging.Logger) (*TopicManager, error) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "kafka admin dial failed")
	}
	return NewTopicManager(conn, log), nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "topic creation failed")
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureDefaultTopics provisions every topic the publisher writes to.
// Positive partitions or replication values override the per-topic defaults
// cluster-wide; zero keeps them.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context, partitions, replication int) error {
	for _, cfg := range DefaultTopics() {
		if partitions > 0 {
			cfg.NumPartitions = partitions
		}
		if replication > 0 {
			cfg.ReplicationFactor = replication
		}
		if err := m.CreateTopic(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

func DefaultTopics() []TopicConfig {
	const week = 7 * 24 * 3600 * 1000
	return []TopicConfig{
		{Name: TopicExperimentCalculated, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: TopicExperimentDeleted, NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 4 * week},
	}
}
