package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"buildtriage/src/contracts"
)

// PublishFailure sends the event for failure f of build b, keyed by build id.
func PublishFailure(ctx context.Context, br Broker, f *contracts.Failure, b *contracts.Build) error {
	data, err := json.Marshal(contracts.NewFailureEvent(f, b))
	if err != nil {
		return fmt.Errorf("failed to marshal failure event: %w", err)
	}
	if err := br.Publish(ctx, contracts.TopicFailuresClassified, b.ID, data); err != nil {
		return fmt.Errorf("failed to publish failure %s: %w", f.ID, err)
	}
	return nil
}

// DecodeFailureEvent parses a message published by PublishFailure.
func DecodeFailureEvent(msg Message) (contracts.FailureEvent, error) {
	var ev contracts.FailureEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return ev, nil
}
