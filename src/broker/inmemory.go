package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity of each in-memory subscription.
const subscriberBuffer = 100

// InMemoryBroker fans every published message out to all subscribers of the topic.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	offsets     map[string]int64
	closed      bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		offsets:     make(map[string]int64),
	}
}

// Publish delivers the message to every current subscriber of the topic. It blocks
// while a subscriber's buffer is full, until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a new subscriber. Only messages published afterwards are delivered.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, subscriberBuffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch, nil
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil
	return nil
}
