package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/internal/testutil"
	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
)

type mockAdminConn struct {
	createFunc func(topics ...kafkago.TopicConfig) error
	readFunc   func(topics ...string) ([]kafkago.Partition, error)
	closeFunc  func() error
}

func (m *mockAdminConn) CreateTopics(topics ...kafkago.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockAdminConn) ReadPartitions(topics ...string) ([]kafkago.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, errors.New("no partitions")
}

func (m *mockAdminConn) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestTopicManager(conn *mockAdminConn) *TopicManager {
	return NewTopicManager(conn, testutil.NewMockLogger())
}

func TestDefaultTopicsCoverPublishedEvents(t *testing.T) {
	t.Parallel()

	topics := DefaultTopics()
	require.Len(t, topics, 2)

	names := make(map[string]TopicConfig, len(topics))
	for _, cfg := range topics {
		names[cfg.Name] = cfg
	}
	assert.Contains(t, names, TopicExperimentCalculated)
	assert.Contains(t, names, TopicExperimentDeleted)
	for _, cfg := range topics {
		assert.Greater(t, cfg.NumPartitions, 0)
		assert.Greater(t, cfg.ReplicationFactor, 0)
		assert.Greater(t, cfg.RetentionMs, int64(0))
	}
}

func TestCreateTopicSuccess(t *testing.T) {
	t.Parallel()

	var created []kafkago.TopicConfig
	conn := &mockAdminConn{
		createFunc: func(topics ...kafkago.TopicConfig) error {
			created = append(created, topics...)
			return nil
		},
	}
	manager := newTestTopicManager(conn)

	err := manager.CreateTopic(context.Background(), TopicConfig{
		Name:              "experiment.calculated",
		NumPartitions:     3,
		ReplicationFactor: 2,
		RetentionMs:       604800000,
	})
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, "experiment.calculated", created[0].Topic)
	assert.Equal(t, 3, created[0].NumPartitions)
	assert.Equal(t, 2, created[0].ReplicationFactor)
	require.Len(t, created[0].ConfigEntries, 1)
	assert.Equal(t, "retention.ms", created[0].ConfigEntries[0].ConfigName)
	assert.Equal(t, "604800000", created[0].ConfigEntries[0].ConfigValue)
}

func TestCreateTopicAppliesDefaults(t *testing.T) {
	t.Parallel()

	var created []kafkago.TopicConfig
	conn := &mockAdminConn{
		createFunc: func(topics ...kafkago.TopicConfig) error {
			created = append(created, topics...)
			return nil
		},
	}
	manager := newTestTopicManager(conn)

	require.NoError(t, manager.CreateTopic(context.Background(), TopicConfig{Name: "bare"}))

	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].NumPartitions)
	assert.Equal(t, 1, created[0].ReplicationFactor)
	assert.Empty(t, created[0].ConfigEntries)
}

func TestCreateTopicEmptyName(t *testing.T) {
	t.Parallel()

	manager := newTestTopicManager(&mockAdminConn{})
	err := manager.CreateTopic(context.Background(), TopicConfig{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestCreateTopicAlreadyExists(t *testing.T) {
	t.Parallel()

	// The broker rejects the create but the topic is readable, so the
	// provisioning call is treated as satisfied.
	conn := &mockAdminConn{
		createFunc: func(...kafkago.TopicConfig) error {
			return errors.New("topic already exists")
		},
		readFunc: func(topics ...string) ([]kafkago.Partition, error) {
			return []kafkago.Partition{{Topic: topics[0], ID: 0}}, nil
		},
	}
	manager := newTestTopicManager(conn)

	assert.NoError(t, manager.CreateTopic(context.Background(), TopicConfig{Name: "experiment.deleted"}))
}

func TestCreateTopicBrokerFailure(t *testing.T) {
	t.Parallel()

	conn := &mockAdminConn{
		createFunc: func(...kafkago.TopicConfig) error {
			return errors.New("not authorized")
		},
	}
	manager := newTestTopicManager(conn)

	err := manager.CreateTopic(context.Background(), TopicConfig{Name: "experiment.calculated"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
}

func TestEnsureDefaultTopics(t *testing.T) {
	t.Parallel()

	var created []kafkago.TopicConfig
	conn := &mockAdminConn{
		createFunc: func(topics ...kafkago.TopicConfig) error {
			created = append(created, topics...)
			return nil
		},
	}
	manager := newTestTopicManager(conn)

	require.NoError(t, manager.EnsureDefaultTopics(context.Background(), 0, 0))

	require.Len(t, created, len(DefaultTopics()))
	names := make([]string, 0, len(created))
	for _, cfg := range created {
		names = append(names, cfg.Topic)
	}
	assert.Contains(t, names, TopicExperimentCalculated)
	assert.Contains(t, names, TopicExperimentDeleted)
}

func TestEnsureDefaultTopicsAppliesOverrides(t *testing.T) {
	t.Parallel()

	var created []kafkago.TopicConfig
	conn := &mockAdminConn{
		createFunc: func(topics ...kafkago.TopicConfig) error {
			created = append(created, topics...)
			return nil
		},
	}
	manager := newTestTopicManager(conn)

	require.NoError(t, manager.EnsureDefaultTopics(context.Background(), 5, 3))

	require.Len(t, created, len(DefaultTopics()))
	for _, cfg := range created {
		assert.Equal(t, 5, cfg.NumPartitions)
		assert.Equal(t, 3, cfg.ReplicationFactor)
	}
}

func TestEnsureDefaultTopicsStopsOnFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	conn := &mockAdminConn{
		createFunc: func(...kafkago.TopicConfig) error {
			calls++
			return errors.New("broker down")
		},
	}
	manager := newTestTopicManager(conn)

	err := manager.EnsureDefaultTopics(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTopicManagerClose(t *testing.T) {
	t.Parallel()

	closed := false
	conn := &mockAdminConn{closeFunc: func() error {
		closed = true
		return nil
	}}
	manager := newTestTopicManager(conn)

	require.NoError(t, manager.Close())
	assert.True(t, closed)
}
