package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"buildtriage/src/contracts"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"
	key := "test-key"
	value := []byte("test message")

	// Subscribe before publishing
	msgChan, err := broker.Subscribe(ctx, topic, "test-group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"

	sub1, err := broker.Subscribe(ctx, topic, "group1")
	if err != nil {
		t.Fatalf("Subscribe 1 failed: %v", err)
	}
	sub2, err := broker.Subscribe(ctx, topic, "group2")
	if err != nil {
		t.Fatalf("Subscribe 2 failed: %v", err)
	}

	value := []byte("broadcast message")
	if err := broker.Publish(ctx, topic, "key", value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != string(value) {
				t.Errorf("Subscriber %d: expected value %s, got %s", i+1, string(value), string(msg.Value))
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_Offsets(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, err := broker.Subscribe(ctx, "topic", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := broker.Publish(ctx, "topic", "", []byte("m")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for want := int64(0); want < 3; want++ {
		msg := <-ch
		if msg.Offset != want {
			t.Errorf("Offset = %d, expected %d", msg.Offset, want)
		}
	}
}

func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	chB, err := broker.Subscribe(ctx, "topic-b", "group")
	if err != nil {
		t.Fatalf("Subscribe to topic-b failed: %v", err)
	}

	if err := broker.Publish(ctx, "topic-a", "", []byte("message for topic-a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
		// Expected: no message received
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	ch, err := broker.Subscribe(context.Background(), "test", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	broker.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected subscriber channel to be closed")
	}

	ctx := context.Background()
	if err := broker.Publish(ctx, "test", "key", []byte("value")); err == nil {
		t.Error("Expected error when publishing to closed broker")
	}
	if _, err := broker.Subscribe(ctx, "test", "group"); err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
	if err := broker.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

func TestInMemoryBroker_PublishHonoursContext(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	if _, err := broker.Subscribe(context.Background(), "full", "group"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	for i := 0; i < subscriberBuffer; i++ {
		if err := broker.Publish(context.Background(), "full", "", nil); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := broker.Publish(ctx, "full", "", nil); err == nil {
		t.Error("Expected error publishing to a full subscriber after the deadline")
	}
}

func TestInMemoryBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	const numGoroutines = 50
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		if i%2 == 0 {
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_ = broker.Publish(ctx, "concurrent-topic", "", []byte("msg"))
				}
			}()
		} else {
			go func() {
				defer wg.Done()
				ch, err := broker.Subscribe(ctx, "concurrent-topic", "")
				if err != nil {
					return
				}
				// Drain so publishers never block on a full buffer
				go func() {
					for range ch {
					}
				}()
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout - possible deadlock in concurrent access")
	}
}

func TestPublishFailure(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, err := broker.Subscribe(ctx, contracts.TopicFailuresClassified, "test")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b := &contracts.Build{
		ID:        "PM_job_5",
		JobName:   "PM_job",
		BuildNum:  "5",
		Result:    contracts.ResultFailure,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Branch:    "master",
		Stage:     contracts.StagePM,
		BuildHierarchy: []contracts.Cause{
			{Name: "PM_job", BuildNum: "5", URL: "http://jenkins/job/PM_job/5"},
		},
	}
	f := contracts.NewFailure("f1", b.ID, "SSHFailure", "SSH failures",
		contracts.CategorySSH, "Permission denied (publickey)")

	if err := PublishFailure(ctx, broker, f, b); err != nil {
		t.Fatalf("PublishFailure failed: %v", err)
	}

	msg := <-ch
	if msg.Key != b.ID {
		t.Errorf("Key = %q, expected %q", msg.Key, b.ID)
	}
	ev, err := DecodeFailureEvent(msg)
	if err != nil {
		t.Fatalf("DecodeFailureEvent failed: %v", err)
	}
	if ev.FailureID != "f1" || ev.Category != contracts.CategorySSH {
		t.Errorf("event = %+v, expected failure f1 in SSH", ev)
	}
	if ev.BuildURL != "http://jenkins/job/PM_job/5" {
		t.Errorf("BuildURL = %q, expected the build's own link", ev.BuildURL)
	}
	if ev.Detail != "Permission denied (publickey)" {
		t.Errorf("Detail = %q", ev.Detail)
	}
}

func TestDecodeFailureEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeFailureEvent(Message{Value: []byte("not json")}); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

func TestNewRedpandaBrokerRequiresAddresses(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, nil); err == nil {
		t.Error("Expected error with no broker addresses")
	}
}
