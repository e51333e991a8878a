package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

// Topics.  Dead-letter topics derive from the source topic by suffix.
const (
	TopicCompoundClassified = "compound.classified"
	TopicSortRequested      = "storage.sort.requested"
	TopicSortCompleted      = "storage.sort.completed"

	DeadLetterSuffix = ".dlq"
)

// DeadLetterTopic returns the dead-letter topic paired with the given topic.
func DeadLetterTopic(topic string) string {
	if strings.HasSuffix(topic, DeadLetterSuffix) {
		return topic
	}
	return topic + DeadLetterSuffix
}

// EventEnvelope standardizes every event on the bus.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CompoundClassifiedPayload announces a freshly classified compound.
type CompoundClassifiedPayload struct {
	CID          string    `json:"cid,omitempty"`
	Name         string    `json:"name"`
	Pictograms   []string  `json:"pictograms"`
	AcidBase     []string  `json:"acid_base,omitempty"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// SortRequestedPayload queues a sort run for the worker.  Names ride along so
// the worker can execute without a read-back when the run row lags behind.
type SortRequestedPayload struct {
	RunID       string    `json:"run_id"`
	Names       []string  `json:"names"`
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// SortCompletedPayload announces a finished sort run.
type SortCompletedPayload struct {
	RunID           string    `json:"run_id"`
	Status          string    `json:"status"`
	Placed          int       `json:"placed"`
	Skipped         int       `json:"skipped"`
	OverflowCreated int       `json:"overflow_created"`
	RejectionCount  int       `json:"rejection_count"`
	FinishedAt      time.Time `json:"finished_at"`
}

// NewEventEnvelope wraps a payload for publishing.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unpacks the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage renders the envelope as a producer message with routing headers.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed message back into an envelope.
func DecodeEnvelope(msg *Message) (*EventEnvelope, error) {
	if msg == nil || len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic bootstrap
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts the broker admin connection for tests.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the platform topics on startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker for admin operations.
func NewTopicManager(brokers []string, log logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial kafka broker")
	}
	return &TopicManager{conn: conn, logger: log.Named("kafka.topics")}, nil
}

// CreateTopic creates one topic.  An already existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name is required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "topic partitions and replication must be positive").
			WithDetail("topic=" + cfg.Name)
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10),
		})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "cleanup.policy",
			ConfigValue: cfg.CleanupPolicy,
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create topic").
			WithDetail("topic=" + cfg.Name)
	}
	m.logger.Info("topic created",
		logging.String("topic", cfg.Name),
		logging.Int("partitions", cfg.NumPartitions),
	)
	return nil
}

// TopicExists probes the topic through partition metadata.
func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every listed topic.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsurePlatformTopics creates the fixed topic set sized from configuration.
func (m *TopicManager) EnsurePlatformTopics(ctx context.Context, cfg config.KafkaConfig) error {
	return m.EnsureTopics(ctx, PlatformTopics(cfg))
}

// Close releases the admin connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// PlatformTopics is the topic set this system publishes and consumes, sized
// from configuration with single-node fallbacks.
func PlatformTopics(cfg config.KafkaConfig) []TopicConfig {
	partitions := cfg.NumPartitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	const (
		week  = 7 * 24 * 3600 * 1000
		month = 30 * 24 * 3600 * 1000
	)
	return []TopicConfig{
		{Name: TopicCompoundClassified, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicSortRequested, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicSortCompleted, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: month},
		{Name: DeadLetterTopic(TopicSortRequested), NumPartitions: 1, ReplicationFactor: replication, RetentionMs: month},
	}
}

//Personal.AI order the ending
