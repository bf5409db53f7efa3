package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// JobPublisher publishes raw payloads to one topic and waits for the server ack.
type JobPublisher struct {
	publisher *pubsub.Publisher
}

// NewJobPublisher wraps a topic publisher handle.
func NewJobPublisher(publisher *pubsub.Publisher) (*JobPublisher, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &JobPublisher{publisher: publisher}, nil
}

func (p *JobPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Stop flushes pending messages and releases the publisher goroutines.
func (p *JobPublisher) Stop() {
	if p == nil || p.publisher == nil {
		return
	}
	p.publisher.Stop()
}
