//go:build integration

package broker

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"buildtriage/src/contracts"
)

func TestRedpandaBrokerIntegration(t *testing.T) {
	addrs := os.Getenv("REDPANDA_BROKERS")
	if addrs == "" {
		t.Skip("REDPANDA_BROKERS not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	br, err := NewRedpandaBroker(strings.Split(addrs, ","), nil)
	if err != nil {
		t.Fatalf("NewRedpandaBroker failed: %v", err)
	}
	defer br.Close()

	if err := br.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	topic := "triage-test-" + uuid.NewString()
	msgs, err := br.Subscribe(ctx, topic, "triage-test")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := br.Publish(ctx, topic, "PM_newton_1", []byte(`{"failure_id":"f-1"}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgs:
		ev, err := DecodeFailureEvent(msg)
		if err != nil {
			t.Fatalf("DecodeFailureEvent failed: %v", err)
		}
		if msg.Key != "PM_newton_1" || ev.FailureID != "f-1" {
			t.Errorf("received key %q event %+v", msg.Key, ev)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the event")
	}

	// the classified topic name is accepted by the broker
	if err := br.Publish(ctx, contracts.TopicFailuresClassified, "PM_newton_1", []byte(`{}`)); err != nil {
		t.Errorf("Publish to %s failed: %v", contracts.TopicFailuresClassified, err)
	}
}
