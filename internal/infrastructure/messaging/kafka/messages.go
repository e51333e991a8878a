// Package kafka carries the platform's event traffic: classification results
// fan out to downstream consumers, and sort requests queue up for the worker.
package kafka

import (
	"context"
	"time"
)

// Message is one consumed record, decoupled from the transport type so
// handlers never import the SDK.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// MessageHandler processes one consumed message.  Returning an error triggers
// the consumer's retry and dead-letter policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// ProducerMessage is one record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// BatchItemError records a failed entry of a batch publish.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult accounts for a batch publish outcome per message.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// TopicConfig describes one topic for the bootstrap path.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
}

//Personal.AI order the ending
