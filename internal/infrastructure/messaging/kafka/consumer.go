package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

const (
	defaultRetryBackoff    = 1 * time.Second
	defaultMaxRetryBackoff = 30 * time.Second
	fetchMaxBytes          = 10 * 1024 * 1024
)

// ConsumerConfig drives one consumer group membership.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string

	// Handler failures are retried with exponential backoff; exhausted
	// messages go to <topic>.dlq when DeadLetter is set.
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetter      bool
}

// ConsumerConfigFrom combines the broker and worker sections into a consumer
// configuration for the given topics.
func ConsumerConfigFrom(cfg config.KafkaConfig, worker config.WorkerConfig, topics []string) ConsumerConfig {
	backoff := defaultRetryBackoff
	if worker.RetryBackoffMS > 0 {
		backoff = time.Duration(worker.RetryBackoffMS) * time.Millisecond
	}
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		MaxRetries:      worker.MaxRetries,
		RetryBackoff:    backoff,
		DeadLetter:      true,
	}
}

// ConsumerMetrics tracks consumer progress.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
	Lag                  atomic.Int64
	LastConsumedAt       atomic.Value // time.Time
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the subscribed topics, dispatches to per-topic handlers, and
// commits offsets only after the handler outcome is settled, so a crash
// mid-message redelivers rather than drops.
type Consumer struct {
	reader ReaderInterface
	cfg    ConsumerConfig
	logger logging.Logger

	handlers map[string]MessageHandler
	mu       sync.RWMutex

	dlq     *Producer
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *ConsumerMetrics
}

// NewConsumer builds a group consumer for the configured topics.
func NewConsumer(cfg ConsumerConfig, log logging.Logger) (*Consumer, error) {
	if err := validateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("kafka.consumer")

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.MaxRetryBackoff <= 0 {
		cfg.MaxRetryBackoff = defaultMaxRetryBackoff
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    fetchMaxBytes,
		MaxWait:     1 * time.Second,
		StartOffset: startOffset,
	})

	var dlq *Producer
	if cfg.DeadLetter {
		p, err := NewProducer(config.KafkaConfig{Brokers: cfg.Brokers, AutoCreateTopics: true}, log)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
		dlq = p
	}

	return &Consumer{
		reader:   reader,
		cfg:      cfg,
		logger:   log,
		handlers: make(map[string]MessageHandler),
		dlq:      dlq,
		metrics:  &ConsumerMetrics{},
	}, nil
}

// Subscribe installs the handler for a topic.  The last handler per topic
// wins.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("handler subscribed", logging.String("topic", topic))
}

// Start launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("consumer started",
		logging.String("group", c.cfg.GroupID),
		logging.Strings("topics", c.cfg.Topics),
	)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.metrics.MessagesConsumed.Add(1)
		c.metrics.LastConsumedAt.Store(time.Now())
		c.metrics.Lag.Store(m.HighWaterMark - m.Offset)

		msg := toMessage(m)

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
			c.commit(ctx, m)
			continue
		}

		if err := c.process(ctx, msg, handler); err != nil {
			// Only context cancellation escapes process; leave the offset
			// uncommitted so the message redelivers.
			return
		}
		c.commit(ctx, m)
	}
}

// process runs the handler with retries.  Exhausted messages are routed to
// the dead-letter topic and treated as settled.
func (c *Consumer) process(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil {
		c.metrics.MessagesProcessed.Add(1)
		return nil
	}

	backoff := c.cfg.RetryBackoff
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.metrics.MessagesRetried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = handler(ctx, msg); err == nil {
			c.metrics.MessagesProcessed.Add(1)
			return nil
		}

		backoff *= 2
		if backoff > c.cfg.MaxRetryBackoff {
			backoff = c.cfg.MaxRetryBackoff
		}
	}

	c.metrics.MessagesFailed.Add(1)
	c.logger.Error("handler failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("retries", c.cfg.MaxRetries),
		logging.Err(err),
	)
	c.deadLetter(ctx, msg, err)
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg *Message, cause error) {
	if c.dlq == nil {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["error_message"] = cause.Error()
	headers["retries"] = strconv.Itoa(c.cfg.MaxRetries)

	dlMsg := &ProducerMessage{
		Topic:   DeadLetterTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.dlq.Publish(ctx, dlMsg); err != nil {
		c.logger.Error("dead-letter publish failed",
			logging.String("topic", dlMsg.Topic),
			logging.Err(err),
		)
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("offset commit failed",
			logging.String("topic", m.Topic),
			logging.Int64("offset", m.Offset),
			logging.Err(err),
		)
	}
}

// Metrics returns a snapshot of the counters.
func (c *Consumer) Metrics() ConsumerMetrics {
	var m ConsumerMetrics
	m.MessagesConsumed.Store(c.metrics.MessagesConsumed.Load())
	m.MessagesProcessed.Store(c.metrics.MessagesProcessed.Load())
	m.MessagesFailed.Store(c.metrics.MessagesFailed.Load())
	m.MessagesRetried.Store(c.metrics.MessagesRetried.Load())
	m.MessagesDeadLettered.Store(c.metrics.MessagesDeadLettered.Load())
	m.Lag.Store(c.metrics.Lag.Load())
	if v := c.metrics.LastConsumedAt.Load(); v != nil {
		m.LastConsumedAt.Store(v)
	}
	return m
}

// Close stops the loop, waits for the in-flight message, and releases the
// reader and dead-letter producer.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	if c.dlq != nil {
		_ = c.dlq.Close()
	}
	c.logger.Info("consumer closed",
		logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}

func toMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func validateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "consumer group id is required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic is required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "auto offset reset must be earliest or latest")
	}
	return nil
}

//Personal.AI order the ending
