// Package broker carries classification events to downstream consumers.
package broker

import "context"

// Broker abstracts message publishing and consumption.
type Broker interface {
	// Publish sends a message to a topic. The key selects the partition on
	// Redpanda and is ignored in memory.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages from a topic. groupID names the
	// consumer group on Redpanda and is ignored in memory.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	// Unix milliseconds.
	Timestamp int64
}
